package models

import "time"

// EmotionMetrics are normalized behavioral scores in [0, 1].
type EmotionMetrics struct {
	Positivity  float64 `json:"positivity"`
	Intensity   float64 `json:"intensity"`
	StressLevel float64 `json:"stress_level"`
}

// EmotionEvent is a single inbound emotional signal for a user.
// TraceID doubles as the idempotency key under redelivery.
type EmotionEvent struct {
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
	TraceID   string    `json:"traceId"`
	Event     struct {
		Type    string         `json:"type"`
		Metrics EmotionMetrics `json:"metrics"`
	} `json:"emotionEvent"`
}

// DailySignalSummary is the rolling per-user-per-day aggregate.
// Averages are exact means over EventCount observations.
type DailySignalSummary struct {
	UserID        string    `json:"user_id"`
	SummaryDate   time.Time `json:"summary_date"`
	AvgPositivity float64   `json:"avg_positivity_score"`
	AvgIntensity  float64   `json:"avg_intensity_score"`
	AvgStress     float64   `json:"avg_stress_level"`
	EventCount    int64     `json:"event_count"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TransactionEvent is an inbound financial transaction signal.
type TransactionEvent struct {
	UserID string  `json:"userId"`
	Amount float64 `json:"amount"`
}
