package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"CrediPulse/internal/domain/models"
	domrepo "CrediPulse/internal/domain/repository"
	icache "CrediPulse/internal/service/cache"
	"CrediPulse/internal/service/policy"
	applogger "CrediPulse/pkg/logger"
	"CrediPulse/pkg/util"

	"github.com/google/uuid"
)

// AnalyzerConfig bounds the analysis windows and offer validity.
type AnalyzerConfig struct {
	DecisionTTL      time.Duration
	SignalWindowDays int
	TxWindowDays     int
	OfferValidity    time.Duration
}

// CreditAnalyzer is the synchronous decision path: cache, features,
// breaker-guarded scoring, policy, offer persistence.
type CreditAnalyzer struct {
	cache   *icache.DecisionCache
	signals domrepo.SignalStore
	txs     domrepo.TransactionStore
	offers  domrepo.OfferStore
	scorer  domrepo.RiskScorer
	metrics domrepo.Metrics
	logger  *applogger.Logger
	cfg     AnalyzerConfig
	now     func() time.Time
}

func NewCreditAnalyzer(
	cache *icache.DecisionCache,
	signals domrepo.SignalStore,
	txs domrepo.TransactionStore,
	offers domrepo.OfferStore,
	scorer domrepo.RiskScorer,
	metrics domrepo.Metrics,
	logger *applogger.Logger,
	cfg AnalyzerConfig,
) *CreditAnalyzer {
	return &CreditAnalyzer{
		cache:   cache,
		signals: signals,
		txs:     txs,
		offers:  offers,
		scorer:  scorer,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Analyze produces a credit decision for the user. A cached decision within
// its TTL is returned unchanged; otherwise features are gathered, scored,
// mapped through policy, and, on approval, a new offer is persisted unless
// an open one already exists. The cache populate is last-write-wins: an
// in-flight recomputation is authoritative over a concurrent one.
func (a *CreditAnalyzer) Analyze(ctx context.Context, userID string) (*models.RiskDecision, error) {
	if d, ok := a.cache.Get(ctx, userID); ok {
		return d, nil
	}

	now := a.now()
	features, err := a.gatherFeatures(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	risk, err := a.scorer.Score(ctx, userID, features)
	a.metrics.RecordLatency("scoring_call_seconds", time.Since(start).Seconds())
	if err != nil {
		// ScoringUnavailable propagates as-is so callers can distinguish
		// "could not evaluate" from a deny.
		return nil, fmt.Errorf("score user %s: %w", userID, err)
	}

	d := &models.RiskDecision{
		UserID:     userID,
		RiskScore:  risk,
		Approved:   policy.Approve(risk),
		ComputedAt: now,
		ExpiresAt:  now.Add(a.cfg.DecisionTTL),
	}

	if d.Approved {
		terms := policy.ComputeTerms(risk)
		d.CreditLimit = terms.CreditLimit
		d.InterestRate = terms.InterestRate

		offerID, err := a.persistOffer(ctx, userID, terms, now)
		if err != nil {
			return nil, err
		}
		d.OfferID = offerID
		a.metrics.RecordDecision("approved")
	} else {
		a.metrics.RecordDecision("denied")
	}

	a.cache.Put(ctx, d, a.cfg.DecisionTTL)

	a.logger.Info("credit analysis complete",
		applogger.String("user_id", userID),
		applogger.Float64("risk_score", risk),
		applogger.Bool("approved", d.Approved))
	return d, nil
}

func (a *CreditAnalyzer) gatherFeatures(ctx context.Context, userID string, now time.Time) (*models.FeatureVector, error) {
	sigFrom, sigTo := util.DayWindow(now, a.cfg.SignalWindowDays)
	summaries, err := a.signals.Window(ctx, userID, sigFrom, sigTo)
	if err != nil {
		return nil, fmt.Errorf("gather signal window user=%s: %w", userID, err)
	}

	stressFrom, _ := util.DayWindow(now, a.cfg.TxWindowDays)
	stressWindow, err := a.signals.Window(ctx, userID, stressFrom, sigTo)
	if err != nil {
		return nil, fmt.Errorf("gather stress window user=%s: %w", userID, err)
	}

	txCount, txAvg, err := a.txs.Stats(ctx, userID, now.AddDate(0, 0, -a.cfg.TxWindowDays))
	if err != nil {
		return nil, fmt.Errorf("gather transaction stats user=%s: %w", userID, err)
	}

	avgTx, _ := txAvg.Float64()
	return &models.FeatureVector{
		TransactionCount30d:   txCount,
		AvgTransactionValue30: avgTx,
		AvgPositivity7d:       weightedPositivity(summaries),
		StressEvents30d:       stressEvents(stressWindow),
	}, nil
}

// persistOffer creates a new offered row with the configured validity,
// unless the user already has one open. One decision governs one window,
// so a second analysis inside the TTL never mints a second offer.
func (a *CreditAnalyzer) persistOffer(ctx context.Context, userID string, terms policy.Terms, now time.Time) (string, error) {
	open, err := a.offers.HasOpenOffer(ctx, userID, now)
	if err != nil {
		return "", fmt.Errorf("check open offer user=%s: %w", userID, err)
	}
	if open {
		return "", nil
	}

	offer := &models.CreditOffer{
		ID:           uuid.NewString(),
		UserID:       userID,
		Status:       models.OfferStatusOffered,
		CreditLimit:  terms.CreditLimit,
		InterestRate: terms.InterestRate,
		CreditType:   models.CreditTypeShortTermPersonalLoan,
		ExpiresAt:    now.Add(a.cfg.OfferValidity),
	}
	if err := a.offers.Create(ctx, offer); err != nil {
		return "", fmt.Errorf("persist offer user=%s: %w", userID, err)
	}
	a.metrics.RecordOfferTransition("offered")
	return offer.ID, nil
}

// weightedPositivity is the event-weighted mean positivity across days,
// equal to the true mean over all events in the window.
func weightedPositivity(summaries []*models.DailySignalSummary) float64 {
	var sum float64
	var count int64
	for _, s := range summaries {
		sum += s.AvgPositivity * float64(s.EventCount)
		count += s.EventCount
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// stressEvents approximates the number of elevated-stress observations in
// the window from the per-day stress means.
func stressEvents(summaries []*models.DailySignalSummary) int64 {
	var n int64
	for _, s := range summaries {
		n += int64(math.Round(s.AvgStress * float64(s.EventCount)))
	}
	return n
}
