// Package customs is the abuse-control gate consulted before every mutating
// operation. A rejection aborts the operation before any core logic runs.
package customs

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
)

// Checker decides whether a caller may perform an operation.
type Checker interface {
	Check(ctx context.Context, remoteAddr, action string) error
}

// LimiterChecker applies a token bucket per (caller, action) pair.
type LimiterChecker struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
	logger  logging.Logger
}

// NewLimiterChecker allows eventsPerSecond sustained operations with the
// given burst per caller and action.
func NewLimiterChecker(eventsPerSecond float64, burst int, logger logging.Logger) *LimiterChecker {
	return &LimiterChecker{
		buckets: make(map[string]*rate.Limiter),
		limit:   rate.Limit(eventsPerSecond),
		burst:   burst,
		logger:  logger.With("module", "customs"),
	}
}

// Check reports common.ErrRateLimited when the caller's bucket for this
// action is empty.
func (c *LimiterChecker) Check(ctx context.Context, remoteAddr, action string) error {
	if c.bucket(remoteAddr + "|" + action).Allow() {
		return nil
	}
	c.logger.Warn(ctx, "customs.blocked", "action", action)
	return common.ErrRateLimited
}

func (c *LimiterChecker) bucket(key string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.buckets[key]
	if !ok {
		b = rate.NewLimiter(c.limit, c.burst)
		c.buckets[key] = b
	}
	return b
}
