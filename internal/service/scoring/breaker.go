package scoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"CrediPulse/internal/domain/models"
	"CrediPulse/internal/domain/repository"
)

// Breaker states. Values double as the gauge reported to metrics.
const (
	StateClosed   = 0
	StateHalfOpen = 1
	StateOpen     = 2
)

// Breaker is a three-state circuit breaker around a RiskScorer. State is
// per-process and intentionally unshared across replicas: each instance
// protects only its own outbound calls.
//
// closed: calls pass through, consecutive unavailability failures counted.
// A rejection response from the scorer proves it is reachable and does not
// count toward the threshold.
// open: every call fails fast with ErrScoringUnavailable for the
// cool-down window, no network attempt.
// half-open: exactly one trial call; success closes the breaker and
// resets the counter, failure reopens it and restarts the cool-down.
type Breaker struct {
	next      repository.RiskScorer
	threshold int
	cooldown  time.Duration
	metrics   repository.Metrics
	now       func() time.Time

	mu       sync.Mutex
	state    int
	failures int
	openedAt time.Time
	inTrial  bool
}

// BreakerOption configures a Breaker.
type BreakerOption func(*Breaker)

// WithMetrics publishes state transitions to the metrics recorder.
func WithMetrics(m repository.Metrics) BreakerOption {
	return func(b *Breaker) { b.metrics = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) BreakerOption {
	return func(b *Breaker) { b.now = now }
}

// NewBreaker wraps next with a breaker tripping after threshold
// consecutive failures and cooling down for cooldown.
func NewBreaker(next repository.RiskScorer, threshold int, cooldown time.Duration, opts ...BreakerOption) *Breaker {
	b := &Breaker{
		next:      next,
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// State returns the current breaker state.
func (b *Breaker) State() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) Score(ctx context.Context, userID string, features *models.FeatureVector) (float64, error) {
	if !b.allow() {
		return 0, fmt.Errorf("%w: circuit open", ErrScoringUnavailable)
	}

	score, err := b.next.Score(ctx, userID, features)
	b.record(err == nil || !errors.Is(err, ErrScoringUnavailable))
	return score, err
}

// allow decides whether a call may go out, claiming the half-open trial
// slot when the cool-down has elapsed.
func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return false
		}
		b.setState(StateHalfOpen)
		b.inTrial = true
		return true
	default: // StateHalfOpen
		if b.inTrial {
			return false
		}
		b.inTrial = true
		return true
	}
}

// record updates breaker state after a call. available is true when the
// scorer responded at all, including rejections.
func (b *Breaker) record(available bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.inTrial = false
	}

	if available {
		b.failures = 0
		b.setState(StateClosed)
		return
	}

	switch b.state {
	case StateHalfOpen:
		b.openedAt = b.now()
		b.setState(StateOpen)
	case StateClosed:
		b.failures++
		if b.failures >= b.threshold {
			b.openedAt = b.now()
			b.setState(StateOpen)
		}
	}
}

// setState must be called with the lock held.
func (b *Breaker) setState(s int) {
	b.state = s
	if b.metrics != nil {
		b.metrics.RecordBreakerState("scoring", s)
	}
}

var _ repository.RiskScorer = (*Breaker)(nil)
