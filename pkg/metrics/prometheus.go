package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	eventsProcessed *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	decisions       *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	offers          *prometheus.CounterVec
	breakerState    *prometheus.GaugeVec
	latency         *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		eventsProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credipulse_events_processed_total",
				Help: "Total number of domain events processed",
			},
			[]string{"source"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credipulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		decisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credipulse_decisions_total",
				Help: "Credit decisions by outcome",
			},
			[]string{"outcome"},
		),
		cacheLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credipulse_decision_cache_lookups_total",
				Help: "Decision cache lookups by result",
			},
			[]string{"result"},
		),
		offers: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credipulse_offers_total",
				Help: "Offer lifecycle transitions",
			},
			[]string{"transition"},
		),
		breakerState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "credipulse_breaker_state",
				Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
			[]string{"name"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "credipulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordEventProcessed records a processed domain event by source topic.
func (r *Recorder) RecordEventProcessed(source string) {
	r.eventsProcessed.WithLabelValues(source).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordDecision records a credit decision outcome (approved, denied).
func (r *Recorder) RecordDecision(outcome string) {
	r.decisions.WithLabelValues(outcome).Inc()
}

// RecordCacheLookup records a decision cache lookup result (hit, miss).
func (r *Recorder) RecordCacheLookup(result string) {
	r.cacheLookups.WithLabelValues(result).Inc()
}

// RecordOfferTransition records an offer lifecycle transition (offered, activated, rejected).
func (r *Recorder) RecordOfferTransition(transition string) {
	r.offers.WithLabelValues(transition).Inc()
}

// RecordBreakerState records the current breaker state.
func (r *Recorder) RecordBreakerState(name string, state int) {
	r.breakerState.WithLabelValues(name).Set(float64(state))
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
