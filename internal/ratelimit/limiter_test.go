package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowConsumesBurst(t *testing.T) {
	l := NewLocalLimiter(Limit{Requests: 2, Window: time.Hour}, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "PlaceOrder", 2, time.Hour)
		require.NoError(t, err)
		assert.True(t, ok, "call %d", i)
	}

	ok, err := l.Allow(ctx, "PlaceOrder", 2, time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	// Other keys draw from their own bucket.
	ok, err = l.Allow(ctx, "CancelOrder", 2, time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWaitUsesOverrideBudget(t *testing.T) {
	l := NewLocalLimiter(
		Limit{Requests: 1, Window: time.Hour},
		map[string]Limit{"Orderbook": {Requests: 100, Window: time.Second}},
	)
	ctx := context.Background()

	// The override's burst covers several immediate permits.
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Wait(ctx, "Orderbook"))
	}
}

func TestWaitHonorsContext(t *testing.T) {
	l := NewLocalLimiter(Limit{Requests: 1, Window: time.Hour}, nil)
	ctx := context.Background()

	// Drain the single permit, then a cancelled wait must fail fast.
	require.NoError(t, l.Wait(ctx, "AllAssets"))

	cancelled, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	err := l.Wait(cancelled, "AllAssets")
	require.Error(t, err)
}

func TestAllowWithCancelledContext(t *testing.T) {
	l := NewLocalLimiter(Limit{Requests: 1, Window: time.Second}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Allow(ctx, "AllAssets", 1, time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestZeroBudgetsFallBackToSaneDefaults(t *testing.T) {
	l := NewLocalLimiter(Limit{}, nil)
	ok, err := l.Allow(context.Background(), "x", 0, 0)
	require.NoError(t, err)
	assert.True(t, ok)
}
