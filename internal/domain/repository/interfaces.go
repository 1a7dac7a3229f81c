package repository

import (
	"context"
	"time"

	"CrediPulse/internal/domain/models"

	"github.com/shopspring/decimal"
)

// SignalStream is an upstream feed of raw emotion events.
type SignalStream interface {
	Connect(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.EmotionEvent, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// SignalStore owns the per-user-per-day rolling aggregates.
type SignalStore interface {
	// IngestEmotion applies one event to the daily summary. Redelivery of
	// an already-processed trace id is a silent no-op.
	IngestEmotion(ctx context.Context, ev *models.EmotionEvent) error
	// Window returns summaries with summary_date in [from, to), oldest first.
	Window(ctx context.Context, userID string, from, to time.Time) ([]*models.DailySignalSummary, error)
	Health(ctx context.Context) error
}

// TransactionStore records transactions and serves trailing-window features.
type TransactionStore interface {
	Record(ctx context.Context, userID string, amount decimal.Decimal) error
	// Stats returns count and mean amount of transactions since from.
	Stats(ctx context.Context, userID string, from time.Time) (int64, decimal.Decimal, error)
}

// OfferStore persists credit offers and enforces lifecycle transitions
// through conditional writes.
type OfferStore interface {
	Create(ctx context.Context, offer *models.CreditOffer) error
	Get(ctx context.Context, offerID string) (*models.CreditOffer, error)
	// HasOpenOffer reports whether the user has a non-expired offered row.
	HasOpenOffer(ctx context.Context, userID string, now time.Time) (bool, error)
	// Activate transitions offered -> active for the owning user. Returns
	// the resulting row, or a sentinel error describing why the transition
	// cannot ever succeed.
	Activate(ctx context.Context, offerID, userID string, now time.Time) (*models.CreditOffer, error)
	// MarkNotified records that the activation notification went out.
	// Returns false when another delivery already claimed it.
	MarkNotified(ctx context.Context, offerID string) (bool, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.CreditOffer, int64, error)
}

// EventArchive is an append-only sink for raw emotion events.
type EventArchive interface {
	Archive(ctx context.Context, ev *models.EmotionEvent) error
	Close() error
}

// SignalPublisher pushes raw emotion events onto the ingest topic.
type SignalPublisher interface {
	Publish(ctx context.Context, ev *models.EmotionEvent) error
	PublishBatch(ctx context.Context, evs []*models.EmotionEvent) error
	Close() error
}

// EventBus publishes domain lifecycle events.
type EventBus interface {
	PublishAccepted(ctx context.Context, ev *models.OfferAcceptedEvent) error
	PublishNotification(ctx context.Context, n *models.Notification) error
	Close() error
}

// RiskScorer evaluates a feature vector into a risk score in [0, 1].
type RiskScorer interface {
	Score(ctx context.Context, userID string, features *models.FeatureVector) (float64, error)
}

// Metrics is the domain-facing metrics surface.
type Metrics interface {
	RecordEventProcessed(source string)
	RecordError(kind string)
	RecordDecision(outcome string)
	RecordCacheLookup(result string)
	RecordOfferTransition(transition string)
	RecordBreakerState(name string, state int)
	RecordLatency(op string, seconds float64)
}
