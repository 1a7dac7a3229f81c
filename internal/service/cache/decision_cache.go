package cache

import (
	"context"
	"errors"
	"time"

	"CrediPulse/internal/domain/models"
	"CrediPulse/internal/domain/repository"
	pkgcache "CrediPulse/pkg/cache"
	applogger "CrediPulse/pkg/logger"
)

const keyPrefix = "decision:"

// DecisionCache is an advisory read/write-through cache of risk decisions.
// Backend failures degrade to a miss on read and a no-op on write: request
// correctness never depends on the cache being reachable.
type DecisionCache struct {
	svc     pkgcache.Service
	logger  *applogger.Logger
	metrics repository.Metrics
}

// NewDecisionCache creates a decision cache over the given backend.
func NewDecisionCache(svc pkgcache.Service, logger *applogger.Logger, metrics repository.Metrics) *DecisionCache {
	return &DecisionCache{svc: svc, logger: logger, metrics: metrics}
}

// Get returns the cached decision for a user, or false on miss. An expired
// entry is treated as a miss and deleted opportunistically.
func (c *DecisionCache) Get(ctx context.Context, userID string) (*models.RiskDecision, bool) {
	var d models.RiskDecision
	err := c.svc.Get(ctx, keyPrefix+userID, &d)
	if err != nil {
		if !errors.Is(err, pkgcache.ErrCacheMiss) {
			c.metrics.RecordError("decision_cache_get")
			c.logger.Warn("decision cache read degraded to miss",
				applogger.String("user_id", userID), applogger.Error(err))
		}
		c.metrics.RecordCacheLookup("miss")
		return nil, false
	}
	if !d.ExpiresAt.After(time.Now()) {
		_ = c.svc.Delete(ctx, keyPrefix+userID)
		c.metrics.RecordCacheLookup("miss")
		return nil, false
	}
	c.metrics.RecordCacheLookup("hit")
	return &d, true
}

// Put stores a decision for ttl. Last write wins: a second in-flight
// analysis for the same user overwrites rather than duplicates.
func (c *DecisionCache) Put(ctx context.Context, d *models.RiskDecision, ttl time.Duration) {
	if err := c.svc.Set(ctx, keyPrefix+d.UserID, d, ttl); err != nil {
		c.metrics.RecordError("decision_cache_put")
		c.logger.Warn("decision cache write skipped",
			applogger.String("user_id", d.UserID), applogger.Error(err))
	}
}
