package redis

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/polkadexbot/internal/domain"
	"github.com/alanyoungcy/polkadexbot/internal/ratelimit"
)

//go:embed scripts/sliding_window.lua
var slidingWindowLua string

// waitPollInterval is the retry interval Wait uses while the window is full.
const waitPollInterval = 50 * time.Millisecond

// RateLimiter implements domain.RateLimiter using a sliding-window approach
// backed by Redis sorted sets and an atomic Lua script. Several processes
// trading the same account can share one limiter instance to stay inside
// the venue's account-wide budgets.
type RateLimiter struct {
	rdb           *redis.Client
	slidingWindow *redis.Script
	def           ratelimit.Limit
	limits        map[string]ratelimit.Limit
}

// NewRateLimiter creates a RateLimiter backed by the given Client. Wait
// draws each key's budget from overrides, falling back to def.
func NewRateLimiter(c *Client, def ratelimit.Limit, overrides map[string]ratelimit.Limit) *RateLimiter {
	limits := make(map[string]ratelimit.Limit, len(overrides))
	for k, v := range overrides {
		limits[k] = v
	}
	return &RateLimiter{
		rdb:           c.rdb,
		slidingWindow: redis.NewScript(slidingWindowLua),
		def:           def,
		limits:        limits,
	}
}

func rateLimitKey(key string) string {
	return "ratelimit:" + key
}

// Allow checks whether a request for the given key is permitted under the
// sliding window rate limit. It returns true if the request is allowed (and
// the request is counted), or false if the limit has been reached.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now().UnixMicro()
	windowMicro := window.Microseconds()

	result, err := rl.slidingWindow.Run(
		ctx,
		rl.rdb,
		[]string{rateLimitKey(key)},
		now,
		windowMicro,
		limit,
	).Int64Slice()
	if err != nil {
		return false, fmt.Errorf("redis: rate limit allow %s: %w", key, err)
	}

	if len(result) < 2 {
		return false, fmt.Errorf("redis: rate limit allow %s: unexpected result length %d", key, len(result))
	}

	return result[0] == 1, nil
}

// Wait blocks until a request for the given key is allowed under its
// configured budget, polling at a fixed interval. It returns an error if
// the context is cancelled.
func (rl *RateLimiter) Wait(ctx context.Context, key string) error {
	limit, ok := rl.limits[key]
	if !ok {
		limit = rl.def
	}
	if limit.Requests <= 0 {
		limit.Requests = 1
	}
	if limit.Window <= 0 {
		limit.Window = time.Second
	}

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("redis: rate limit wait %s: %w", key, ctx.Err())
		default:
		}

		allowed, err := rl.Allow(ctx, key, limit.Requests, limit.Window)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		// Sleep before retrying, but honour the context.
		timer := time.NewTimer(waitPollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("redis: rate limit wait %s: %w", key, ctx.Err())
		case <-timer.C:
		}
	}
}

// Compile-time interface check.
var _ domain.RateLimiter = (*RateLimiter)(nil)
