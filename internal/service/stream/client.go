package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"CrediPulse/internal/domain/models"
	drepo "CrediPulse/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// Client implements a SignalStream backed by the upstream emotion feed's
// WebSocket endpoint.
type Client struct {
	apiKey         string
	websocketURL   string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
}

// New creates a new emotion feed SignalStream.
func New(apiKey, websocketURL string, reconnectDelay, pingInterval time.Duration) drepo.SignalStream {
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("emotion feed connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("emotion feed: connected")
	return nil
}

type feedSignal struct {
	UserID      string  `json:"userId"`
	Timestamp   string  `json:"ts"`
	TraceID     string  `json:"traceId"`
	EventType   string  `json:"eventType"`
	Positivity  float64 `json:"positivity"`
	Intensity   float64 `json:"intensity"`
	StressLevel float64 `json:"stress_level"`
}

type feedMessage struct {
	Type string       `json:"type"`
	Data []feedSignal `json:"data"`
}

// Read streams EmotionEvent frames and errors.
func (c *Client) Read(ctx context.Context) (<-chan *models.EmotionEvent, <-chan error) {
	events := make(chan *models.EmotionEvent, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(events)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("emotion feed conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("emotion feed read: %w", err)
					return
				}
				var m feedMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-signal frames
					continue
				}
				if m.Type != "emotion" {
					continue
				}
				for _, d := range m.Data {
					ev := toEvent(d)
					select {
					case events <- ev:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return events, errs
}

func toEvent(d feedSignal) *models.EmotionEvent {
	ts, err := time.Parse(time.RFC3339, d.Timestamp)
	if err != nil {
		ts = time.Now().UTC()
	}
	ev := &models.EmotionEvent{
		UserID:    d.UserID,
		Timestamp: ts,
		TraceID:   d.TraceID,
	}
	ev.Event.Type = d.EventType
	ev.Event.Metrics = models.EmotionMetrics{
		Positivity:  d.Positivity,
		Intensity:   d.Intensity,
		StressLevel: d.StressLevel,
	}
	return ev
}

// Reconnect closes and reconnects.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	return c.Connect(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }
