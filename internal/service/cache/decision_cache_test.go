package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"CrediPulse/internal/domain/models"
	pkgcache "CrediPulse/pkg/cache"
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

func TestDecisionCacheRoundTrip(t *testing.T) {
	dc := NewDecisionCache(pkgcache.NewMemoryCache(), testLogger(t), nopMetrics{})
	ctx := context.Background()

	d := &models.RiskDecision{
		UserID:       "u1",
		RiskScore:    0.1,
		Approved:     true,
		CreditLimit:  decimal.NewFromInt(9000),
		InterestRate: decimal.RequireFromString("6.5"),
		ComputedAt:   time.Now(),
		ExpiresAt:    time.Now().Add(5 * time.Minute),
	}

	if _, ok := dc.Get(ctx, "u1"); ok {
		t.Fatalf("expected miss before put")
	}

	dc.Put(ctx, d, 5*time.Minute)

	got, ok := dc.Get(ctx, "u1")
	if !ok {
		t.Fatalf("expected hit after put")
	}
	if got.UserID != "u1" || !got.Approved || got.RiskScore != 0.1 {
		t.Fatalf("unexpected decision %+v", got)
	}
	if !got.CreditLimit.Equal(d.CreditLimit) {
		t.Fatalf("limit mismatch: %s", got.CreditLimit)
	}
}

func TestDecisionCacheExpiredEntryIsMiss(t *testing.T) {
	dc := NewDecisionCache(pkgcache.NewMemoryCache(), testLogger(t), nopMetrics{})
	ctx := context.Background()

	d := &models.RiskDecision{
		UserID:    "u1",
		ExpiresAt: time.Now().Add(-time.Second),
	}
	dc.Put(ctx, d, time.Minute)

	if _, ok := dc.Get(ctx, "u1"); ok {
		t.Fatalf("expired entry served as hit")
	}
}

type failingBackend struct{}

func (failingBackend) Set(context.Context, string, interface{}, time.Duration) error {
	return errors.New("backend down")
}
func (failingBackend) Get(context.Context, string, interface{}) error {
	return errors.New("backend down")
}
func (failingBackend) Delete(context.Context, ...string) error { return errors.New("backend down") }
func (failingBackend) Exists(context.Context, ...string) (bool, error) {
	return false, errors.New("backend down")
}
func (failingBackend) Increment(context.Context, string) (int64, error) {
	return 0, errors.New("backend down")
}
func (failingBackend) Expire(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("backend down")
}
func (failingBackend) TryLock(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("backend down")
}
func (failingBackend) Unlock(context.Context, string) error { return errors.New("backend down") }

func TestDecisionCacheAdvisoryOnBackendFailure(t *testing.T) {
	dc := NewDecisionCache(failingBackend{}, testLogger(t), nopMetrics{})
	ctx := context.Background()

	// Writes are swallowed, reads degrade to a miss.
	dc.Put(ctx, &models.RiskDecision{UserID: "u1", ExpiresAt: time.Now().Add(time.Minute)}, time.Minute)
	if _, ok := dc.Get(ctx, "u1"); ok {
		t.Fatalf("unreachable backend produced a hit")
	}
}
