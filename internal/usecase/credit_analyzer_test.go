package usecase

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"CrediPulse/internal/domain/models"
	icache "CrediPulse/internal/service/cache"
	"CrediPulse/internal/service/scoring"
	pkgcache "CrediPulse/pkg/cache"

	"github.com/shopspring/decimal"
)

type fakeTxStore struct {
	count int64
	avg   decimal.Decimal
}

func (f *fakeTxStore) Record(ctx context.Context, userID string, amount decimal.Decimal) error {
	f.count++
	return nil
}

func (f *fakeTxStore) Stats(ctx context.Context, userID string, from time.Time) (int64, decimal.Decimal, error) {
	return f.count, f.avg, nil
}

type countingScorer struct {
	score float64
	err   error
	calls int
	last  *models.FeatureVector
}

func (s *countingScorer) Score(ctx context.Context, userID string, f *models.FeatureVector) (float64, error) {
	s.calls++
	s.last = f
	return s.score, s.err
}

func newAnalyzer(t *testing.T, signals *fakeSignalStore, txs *fakeTxStore, offers *fakeOfferStore, scorer *countingScorer) *CreditAnalyzer {
	t.Helper()
	dc := icache.NewDecisionCache(pkgcache.NewMemoryCache(), testLogger(t), nopMetrics{})
	return NewCreditAnalyzer(dc, signals, txs, offers, scorer, nopMetrics{}, testLogger(t), AnalyzerConfig{
		DecisionTTL:      5 * time.Minute,
		SignalWindowDays: 7,
		TxWindowDays:     30,
		OfferValidity:    7 * 24 * time.Hour,
	})
}

func TestAnalyzeCachedDecisionWithinTTL(t *testing.T) {
	scorer := &countingScorer{score: 0.1}
	a := newAnalyzer(t, newFakeSignalStore(), &fakeTxStore{}, &fakeOfferStore{}, scorer)

	first, err := a.Analyze(context.Background(), "u1")
	if err != nil {
		t.Fatalf("first analyze: %v", err)
	}
	second, err := a.Analyze(context.Background(), "u1")
	if err != nil {
		t.Fatalf("second analyze: %v", err)
	}

	if scorer.calls != 1 {
		t.Fatalf("scoring calls = %d, want 1", scorer.calls)
	}
	if first.RiskScore != second.RiskScore || first.OfferID != second.OfferID || !first.ComputedAt.Equal(second.ComputedAt) {
		t.Fatalf("cached decision differs: %+v vs %+v", first, second)
	}
}

func TestAnalyzeDeniesAboveThreshold(t *testing.T) {
	scorer := &countingScorer{score: 0.7}
	offers := &fakeOfferStore{}
	a := newAnalyzer(t, newFakeSignalStore(), &fakeTxStore{}, offers, scorer)

	d, err := a.Analyze(context.Background(), "u1")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if d.Approved {
		t.Fatalf("risk 0.7 approved")
	}
	if offers.offer != nil {
		t.Fatalf("denied decision persisted an offer")
	}
}

func TestAnalyzeScoringUnavailableSurfaced(t *testing.T) {
	scorer := &countingScorer{err: scoring.ErrScoringUnavailable}
	a := newAnalyzer(t, newFakeSignalStore(), &fakeTxStore{}, &fakeOfferStore{}, scorer)

	_, err := a.Analyze(context.Background(), "u1")
	if !errors.Is(err, scoring.ErrScoringUnavailable) {
		t.Fatalf("expected ErrScoringUnavailable, got %v", err)
	}

	// Failure is not cached: the next call re-attempts the dependency.
	scorer.err = nil
	scorer.score = 0.2
	if _, err := a.Analyze(context.Background(), "u1"); err != nil {
		t.Fatalf("recovery analyze: %v", err)
	}
	if scorer.calls != 2 {
		t.Fatalf("scoring calls = %d, want 2", scorer.calls)
	}
}

func TestAnalyzeNoDuplicateOfferInsideWindow(t *testing.T) {
	scorer := &countingScorer{score: 0.1}
	offers := &fakeOfferStore{open: true}
	a := newAnalyzer(t, newFakeSignalStore(), &fakeTxStore{}, offers, scorer)

	d, err := a.Analyze(context.Background(), "u1")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !d.Approved {
		t.Fatalf("expected approval")
	}
	if d.OfferID != "" || offers.offer != nil {
		t.Fatalf("second offer minted while one is open")
	}
}

func TestAnalyzeFeatureVector(t *testing.T) {
	signals := newFakeSignalStore()
	day := time.Now().UTC()
	h := NewKafkaEmotionHandler("user.emotions", signals, nil, nopMetrics{}, testLogger(t))
	for i, p := range []float64{0.2, 0.6, 1.0} {
		payload := emotionPayload(t, "u1", string(rune('a'+i)), p, 0.5, 1.0, day)
		if err := h.Handle(context.Background(), payload); err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
	}

	scorer := &countingScorer{score: 0.1}
	txs := &fakeTxStore{count: 4, avg: decimal.RequireFromString("125.50")}
	a := newAnalyzer(t, signals, txs, &fakeOfferStore{}, scorer)

	if _, err := a.Analyze(context.Background(), "u1"); err != nil {
		t.Fatalf("analyze: %v", err)
	}

	f := scorer.last
	if f == nil {
		t.Fatalf("scorer never called")
	}
	if math.Abs(f.AvgPositivity7d-0.6) > 1e-9 {
		t.Fatalf("avg_positivity_7d = %v, want 0.6", f.AvgPositivity7d)
	}
	if f.TransactionCount30d != 4 {
		t.Fatalf("transaction_count_30d = %d", f.TransactionCount30d)
	}
	if math.Abs(f.AvgTransactionValue30-125.5) > 1e-9 {
		t.Fatalf("avg_transaction_value_30d = %v", f.AvgTransactionValue30)
	}
	if f.StressEvents30d != 3 {
		t.Fatalf("stress_events_30d = %d, want 3", f.StressEvents30d)
	}
}

func TestEndToEndApproveAndActivate(t *testing.T) {
	signals := newFakeSignalStore()
	day := time.Now().UTC()
	eh := NewKafkaEmotionHandler("user.emotions", signals, nil, nopMetrics{}, testLogger(t))
	for i, p := range []float64{0.2, 0.6, 1.0} {
		payload := emotionPayload(t, "u1", string(rune('a'+i)), p, 0.5, 0.0, day)
		if err := eh.Handle(context.Background(), payload); err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
	}

	scorer := &countingScorer{score: 0.1}
	offers := &fakeOfferStore{}
	a := newAnalyzer(t, signals, &fakeTxStore{}, offers, scorer)

	d, err := a.Analyze(context.Background(), "u1")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !d.Approved {
		t.Fatalf("risk 0.1 denied")
	}
	if !d.CreditLimit.Equal(decimal.NewFromInt(9000)) {
		t.Fatalf("limit = %s, want 9000", d.CreditLimit)
	}
	if !d.InterestRate.Equal(decimal.RequireFromString("6.5")) {
		t.Fatalf("rate = %s, want 6.5", d.InterestRate)
	}
	if offers.offer == nil || offers.offer.Status != models.OfferStatusOffered {
		t.Fatalf("offer not persisted as offered")
	}

	bus := &fakeBus{}
	ah := NewKafkaOfferActivationHandler("credit.offers.accepted", offers, bus, nopMetrics{}, testLogger(t))
	if err := ah.Handle(context.Background(), acceptedPayload(t, d.OfferID, "u1")); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if offers.offer.Status != models.OfferStatusActive || offers.offer.ActivatedAt == nil {
		t.Fatalf("offer not activated: %+v", offers.offer)
	}
	if len(bus.notifications) != 1 {
		t.Fatalf("notifications = %d, want 1", len(bus.notifications))
	}
}
