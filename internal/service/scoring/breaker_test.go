package scoring

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"CrediPulse/internal/domain/models"
)

type stubScorer struct {
	score float64
	err   error
	calls int
}

func (s *stubScorer) Score(ctx context.Context, userID string, f *models.FeatureVector) (float64, error) {
	s.calls++
	return s.score, s.err
}

func unavailErr() error {
	return fmt.Errorf("%w: connection refused", ErrScoringUnavailable)
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	stub := &stubScorer{err: unavailErr()}
	b := NewBreaker(stub, 5, 30*time.Second)

	for i := 0; i < 5; i++ {
		if _, err := b.Score(context.Background(), "u1", &models.FeatureVector{}); err == nil {
			t.Fatalf("expected failure on call %d", i+1)
		}
	}
	if b.State() != StateOpen {
		t.Fatalf("expected open, got %d", b.State())
	}

	// Next call fails fast without invoking the dependency.
	before := stub.calls
	_, err := b.Score(context.Background(), "u1", &models.FeatureVector{})
	if !errors.Is(err, ErrScoringUnavailable) {
		t.Fatalf("expected ErrScoringUnavailable, got %v", err)
	}
	if stub.calls != before {
		t.Fatalf("dependency invoked while open")
	}
}

func TestBreakerHalfOpenSingleTrial(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	stub := &stubScorer{err: unavailErr()}
	b := NewBreaker(stub, 2, 30*time.Second, WithClock(clock))

	b.Score(context.Background(), "u1", &models.FeatureVector{})
	b.Score(context.Background(), "u1", &models.FeatureVector{})
	if b.State() != StateOpen {
		t.Fatalf("expected open")
	}

	// Cool-down elapses; exactly one trial allowed.
	now = now.Add(31 * time.Second)
	if !b.allow() {
		t.Fatalf("expected trial allowed after cooldown")
	}
	if b.allow() {
		t.Fatalf("second concurrent trial allowed in half-open")
	}

	// Trial failure reopens and restarts the cool-down.
	b.record(false)
	if b.State() != StateOpen {
		t.Fatalf("expected reopen after failed trial")
	}
	if b.allow() {
		t.Fatalf("call allowed immediately after reopen")
	}
}

func TestBreakerResetsOnTrialSuccess(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	stub := &stubScorer{err: unavailErr()}
	b := NewBreaker(stub, 2, 30*time.Second, WithClock(clock))

	b.Score(context.Background(), "u1", &models.FeatureVector{})
	b.Score(context.Background(), "u1", &models.FeatureVector{})

	now = now.Add(time.Minute)
	stub.err = nil
	stub.score = 0.3

	got, err := b.Score(context.Background(), "u1", &models.FeatureVector{})
	if err != nil {
		t.Fatalf("trial failed: %v", err)
	}
	if got != 0.3 {
		t.Fatalf("unexpected score %v", got)
	}
	if b.State() != StateClosed {
		t.Fatalf("expected closed after successful trial")
	}
	if b.failures != 0 {
		t.Fatalf("failure count not reset")
	}
}

func TestBreakerClosedSuccessResetsCount(t *testing.T) {
	stub := &stubScorer{err: unavailErr()}
	b := NewBreaker(stub, 3, time.Second)

	b.Score(context.Background(), "u1", &models.FeatureVector{})
	b.Score(context.Background(), "u1", &models.FeatureVector{})

	stub.err = nil
	if _, err := b.Score(context.Background(), "u1", &models.FeatureVector{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stub.err = unavailErr()
	b.Score(context.Background(), "u1", &models.FeatureVector{})
	b.Score(context.Background(), "u1", &models.FeatureVector{})
	if b.State() != StateClosed {
		t.Fatalf("breaker tripped though consecutive failures were interrupted")
	}
}

func TestBreakerIgnoresScorerRejections(t *testing.T) {
	stub := &stubScorer{err: errors.New("scoring rejected request: status 400")}
	b := NewBreaker(stub, 2, 30*time.Second)

	// The scorer responding with a rejection proves it is reachable;
	// no number of rejections may open the circuit.
	for i := 0; i < 5; i++ {
		if _, err := b.Score(context.Background(), "u1", &models.FeatureVector{}); err == nil {
			t.Fatalf("expected rejection error on call %d", i+1)
		}
	}
	if b.State() != StateClosed {
		t.Fatalf("breaker opened on rejections, got state %d", b.State())
	}
	if stub.calls != 5 {
		t.Fatalf("expected all calls to pass through, got %d", stub.calls)
	}
}

func TestBreakerHalfOpenRejectionCloses(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	stub := &stubScorer{err: unavailErr()}
	b := NewBreaker(stub, 2, 30*time.Second, WithClock(clock))

	b.Score(context.Background(), "u1", &models.FeatureVector{})
	b.Score(context.Background(), "u1", &models.FeatureVector{})
	if b.State() != StateOpen {
		t.Fatalf("expected open")
	}

	// The trial draws a rejection: the service is back even though this
	// particular request was refused.
	now = now.Add(time.Minute)
	stub.err = errors.New("scoring rejected request: status 422")
	if _, err := b.Score(context.Background(), "u1", &models.FeatureVector{}); err == nil {
		t.Fatalf("expected rejection error from trial")
	}
	if b.State() != StateClosed {
		t.Fatalf("expected closed after responsive trial, got %d", b.State())
	}
}
