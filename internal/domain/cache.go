package domain

import (
	"context"
	"time"
)

// RateLimiter gates outbound venue calls by named limit identifier. Wait
// blocks until a permit for the given id is available or ctx is cancelled;
// it never fails a call for being over budget. The owning connector may
// share one limiter instance across several engines to enforce account-wide
// limits.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}

// OrderbookCache mirrors live order book state for out-of-process readers.
// The engine only writes to it; book state is always rebuilt from the venue
// on restart.
type OrderbookCache interface {
	SetSnapshot(ctx context.Context, pair TradingPair, snap OrderBookSnapshot) error
	GetSnapshot(ctx context.Context, pair TradingPair) (OrderBookSnapshot, error)
}
