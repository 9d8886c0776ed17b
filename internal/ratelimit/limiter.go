// Package ratelimit implements domain.RateLimiter in-process using token
// buckets keyed by limit id. The redis-backed implementation in
// internal/cache/redis serves deployments that share one account across
// several processes; this one serves everything else.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limit describes one named budget: Requests permits per Window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// LocalLimiter hands out permits from per-key token buckets. Keys without an
// explicit configuration fall back to the default limit.
type LocalLimiter struct {
	def    Limit
	limits map[string]Limit

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewLocalLimiter creates a limiter with the given default budget and
// optional per-key overrides.
func NewLocalLimiter(def Limit, overrides map[string]Limit) *LocalLimiter {
	limits := make(map[string]Limit, len(overrides))
	for k, v := range overrides {
		limits[k] = v
	}
	return &LocalLimiter{
		def:      def,
		limits:   limits,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until a permit for key is available or ctx is cancelled.
func (l *LocalLimiter) Wait(ctx context.Context, key string) error {
	limit, ok := l.limits[key]
	if !ok {
		limit = l.def
	}
	if err := l.limiterFor(key, limit).Wait(ctx); err != nil {
		return fmt.Errorf("ratelimit: wait %s: %w", key, err)
	}
	return nil
}

// Allow reports whether a permit for key is immediately available under the
// given budget, consuming it when so.
func (l *LocalLimiter) Allow(ctx context.Context, key string, requests int, window time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("ratelimit: allow %s: %w", key, err)
	}
	return l.limiterFor(key, Limit{Requests: requests, Window: window}).Allow(), nil
}

// limiterFor returns the token bucket for key, creating it on first use.
func (l *LocalLimiter) limiterFor(key string, limit Limit) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.limiters[key]; ok {
		return lim
	}
	if limit.Requests <= 0 {
		limit.Requests = 1
	}
	if limit.Window <= 0 {
		limit.Window = time.Second
	}
	interval := limit.Window / time.Duration(limit.Requests)
	lim := rate.NewLimiter(rate.Every(interval), limit.Requests)
	l.limiters[key] = lim
	return lim
}
