package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"CrediPulse/internal/domain/models"
	domrepo "CrediPulse/internal/domain/repository"
	pkgkafka "CrediPulse/pkg/kafka"
	applogger "CrediPulse/pkg/logger"

	"github.com/shopspring/decimal"
)

type nopMetrics struct{}

func (nopMetrics) RecordEventProcessed(string)    {}
func (nopMetrics) RecordError(string)             {}
func (nopMetrics) RecordDecision(string)          {}
func (nopMetrics) RecordCacheLookup(string)       {}
func (nopMetrics) RecordOfferTransition(string)   {}
func (nopMetrics) RecordBreakerState(string, int) {}
func (nopMetrics) RecordLatency(string, float64)  {}

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

// fakeOfferStore mimics the conditional-write semantics of the Postgres
// store for a single offer row.
type fakeOfferStore struct {
	offer       *models.CreditOffer
	activations int
	createErr   error
	markErr     error
	open        bool
}

func (f *fakeOfferStore) Create(ctx context.Context, o *models.CreditOffer) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.offer = o
	return nil
}

func (f *fakeOfferStore) Get(ctx context.Context, id string) (*models.CreditOffer, error) {
	if f.offer == nil || f.offer.ID != id {
		return nil, domrepo.ErrOfferNotFound
	}
	cp := *f.offer
	return &cp, nil
}

func (f *fakeOfferStore) HasOpenOffer(ctx context.Context, userID string, now time.Time) (bool, error) {
	return f.open, nil
}

func (f *fakeOfferStore) Activate(ctx context.Context, offerID, userID string, now time.Time) (*models.CreditOffer, error) {
	if f.offer == nil || f.offer.ID != offerID {
		return nil, domrepo.ErrOfferNotFound
	}
	if f.offer.UserID != userID {
		return nil, domrepo.ErrOfferNotOwned
	}
	if f.offer.Status == models.OfferStatusActive {
		cp := *f.offer
		return &cp, domrepo.ErrOfferAlreadyActive
	}
	if f.offer.Status != models.OfferStatusOffered {
		return nil, domrepo.ErrOfferNotActivatable
	}
	if !f.offer.ExpiresAt.After(now) {
		f.offer.Status = models.OfferStatusExpired
		return nil, domrepo.ErrOfferExpired
	}
	f.offer.Status = models.OfferStatusActive
	at := now
	f.offer.ActivatedAt = &at
	f.activations++
	cp := *f.offer
	return &cp, nil
}

func (f *fakeOfferStore) MarkNotified(ctx context.Context, offerID string) (bool, error) {
	if f.markErr != nil {
		return false, f.markErr
	}
	if f.offer == nil || f.offer.ID != offerID || f.offer.NotifiedAt != nil {
		return false, nil
	}
	now := time.Now()
	f.offer.NotifiedAt = &now
	return true, nil
}

func (f *fakeOfferStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.CreditOffer, int64, error) {
	if f.offer == nil || f.offer.UserID != userID {
		return nil, 0, nil
	}
	cp := *f.offer
	return []*models.CreditOffer{&cp}, 1, nil
}

type fakeBus struct {
	notifications []*models.Notification
	accepted      []*models.OfferAcceptedEvent
	publishErr    error
}

func (f *fakeBus) PublishAccepted(ctx context.Context, ev *models.OfferAcceptedEvent) error {
	f.accepted = append(f.accepted, ev)
	return nil
}

func (f *fakeBus) PublishNotification(ctx context.Context, n *models.Notification) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.notifications = append(f.notifications, n)
	return nil
}

func (f *fakeBus) Close() error { return nil }

func offeredRow(id, user string, expires time.Time) *models.CreditOffer {
	return &models.CreditOffer{
		ID:           id,
		UserID:       user,
		Status:       models.OfferStatusOffered,
		CreditLimit:  decimal.NewFromInt(9000),
		InterestRate: decimal.RequireFromString("6.5"),
		CreditType:   models.CreditTypeShortTermPersonalLoan,
		ExpiresAt:    expires,
	}
}

func acceptedPayload(t *testing.T, offerID, userID string) []byte {
	t.Helper()
	b, err := json.Marshal(models.OfferAcceptedEvent{OfferID: offerID, UserID: userID, AcceptedAt: time.Now()})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestActivationHappyPath(t *testing.T) {
	store := &fakeOfferStore{offer: offeredRow("o1", "u1", time.Now().Add(time.Hour))}
	bus := &fakeBus{}
	h := NewKafkaOfferActivationHandler("credit.offers.accepted", store, bus, nopMetrics{}, testLogger(t))

	if err := h.Handle(context.Background(), acceptedPayload(t, "o1", "u1")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if store.offer.Status != models.OfferStatusActive {
		t.Fatalf("status = %s", store.offer.Status)
	}
	if store.offer.ActivatedAt == nil {
		t.Fatalf("activated_at not set")
	}
	if len(bus.notifications) != 1 {
		t.Fatalf("notifications = %d", len(bus.notifications))
	}
	n := bus.notifications[0]
	if n.Type != models.NotificationTypeCreditLimitApplied || n.UserID != "u1" {
		t.Fatalf("unexpected notification %+v", n)
	}
}

func TestActivationIdempotentUnderRedelivery(t *testing.T) {
	store := &fakeOfferStore{offer: offeredRow("o1", "u1", time.Now().Add(time.Hour))}
	bus := &fakeBus{}
	h := NewKafkaOfferActivationHandler("credit.offers.accepted", store, bus, nopMetrics{}, testLogger(t))

	payload := acceptedPayload(t, "o1", "u1")
	for i := 0; i < 3; i++ {
		if err := h.Handle(context.Background(), payload); err != nil {
			t.Fatalf("delivery %d: %v", i+1, err)
		}
	}
	if store.activations != 1 {
		t.Fatalf("transitions = %d, want 1", store.activations)
	}
	if len(bus.notifications) != 1 {
		t.Fatalf("notifications = %d, want 1", len(bus.notifications))
	}
}

func TestActivationRetriesOnlyNotification(t *testing.T) {
	store := &fakeOfferStore{offer: offeredRow("o1", "u1", time.Now().Add(time.Hour))}
	bus := &fakeBus{publishErr: errors.New("broker down")}
	h := NewKafkaOfferActivationHandler("credit.offers.accepted", store, bus, nopMetrics{}, testLogger(t))

	payload := acceptedPayload(t, "o1", "u1")
	err := h.Handle(context.Background(), payload)
	if err == nil || errors.Is(err, pkgkafka.ErrPermanent) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if store.offer.Status != models.OfferStatusActive {
		t.Fatalf("transition should have happened before the publish failure")
	}

	// Redelivery with the broker back: transition is a no-op, the
	// notification goes out exactly once.
	bus.publishErr = nil
	if err := h.Handle(context.Background(), payload); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if store.activations != 1 {
		t.Fatalf("transitions = %d, want 1", store.activations)
	}
	if len(bus.notifications) != 1 {
		t.Fatalf("notifications = %d, want 1", len(bus.notifications))
	}
}

func TestActivationPermanentRejections(t *testing.T) {
	cases := []struct {
		name    string
		store   *fakeOfferStore
		offerID string
		userID  string
	}{
		{"not found", &fakeOfferStore{}, "missing", "u1"},
		{"wrong owner", &fakeOfferStore{offer: offeredRow("o1", "u1", time.Now().Add(time.Hour))}, "o1", "intruder"},
		{"expired", &fakeOfferStore{offer: offeredRow("o1", "u1", time.Now().Add(-time.Hour))}, "o1", "u1"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			bus := &fakeBus{}
			h := NewKafkaOfferActivationHandler("credit.offers.accepted", c.store, bus, nopMetrics{}, testLogger(t))
			err := h.Handle(context.Background(), acceptedPayload(t, c.offerID, c.userID))
			if !errors.Is(err, pkgkafka.ErrPermanent) {
				t.Fatalf("expected permanent error, got %v", err)
			}
			if len(bus.notifications) != 0 {
				t.Fatalf("rejection emitted a notification")
			}
		})
	}
}

func TestExpiredOfferIsRetired(t *testing.T) {
	store := &fakeOfferStore{offer: offeredRow("o1", "u1", time.Now().Add(-time.Minute))}
	h := NewKafkaOfferActivationHandler("credit.offers.accepted", store, &fakeBus{}, nopMetrics{}, testLogger(t))

	err := h.Handle(context.Background(), acceptedPayload(t, "o1", "u1"))
	if !errors.Is(err, pkgkafka.ErrPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if store.offer.Status != models.OfferStatusExpired {
		t.Fatalf("offer not retired: %s", store.offer.Status)
	}
}
