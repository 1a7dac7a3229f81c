package usecase

import (
	"context"

	"CrediPulse/internal/domain/models"
	drepo "CrediPulse/internal/domain/repository"
)

// SignalCollector bridges the upstream emotion feed into the Kafka ingest
// topic. The aggregation itself happens downstream in the consumer, so a
// collector restart loses nothing that was already published.
type SignalCollector struct {
	stream  drepo.SignalStream
	pub     drepo.SignalPublisher
	metrics drepo.Metrics
}

// NewSignalCollector creates a new SignalCollector instance.
func NewSignalCollector(stream drepo.SignalStream, pub drepo.SignalPublisher, metrics drepo.Metrics) *SignalCollector {
	return &SignalCollector{stream: stream, pub: pub, metrics: metrics}
}

// IsConnected returns true if the upstream feed is connected.
func (c *SignalCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *SignalCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	evCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, evCh, errCh)
	return nil
}

func (c *SignalCollector) consume(ctx context.Context, evCh <-chan *models.EmotionEvent, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case ev := <-evCh:
			if ev == nil {
				continue
			}
			if err := c.pub.Publish(ctx, ev); err != nil {
				c.metrics.RecordError("stream_publish")
				continue
			}
			c.metrics.RecordEventProcessed("stream")
		}
	}
}

// Shutdown closes the upstream connection.
func (c *SignalCollector) Shutdown(ctx context.Context) error {
	return c.stream.Close()
}
