package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func level(price, amount string) PriceLevel {
	return PriceLevel{
		Price:  decimal.RequireFromString(price),
		Amount: decimal.RequireFromString(amount),
	}
}

func TestApplyDiffInsertsAndReplaces(t *testing.T) {
	current := OrderBookSnapshot{
		TradingPair: "PDEX-USDT",
		UpdateID:    6,
		Bids:        []PriceLevel{level("1.0", "10")},
		Asks:        []PriceLevel{level("1.2", "5")},
	}

	next := ApplyDiff(current, OrderBookDiff{
		TradingPair: "PDEX-USDT",
		UpdateID:    7,
		Bids:        []PriceLevel{level("1.0", "12"), level("0.9", "3")},
	})

	assert.Equal(t, int64(7), next.UpdateID)
	require.Len(t, next.Bids, 2)
	assert.True(t, next.Bids[0].Amount.Equal(decimal.RequireFromString("12")))
	assert.True(t, next.Bids[1].Price.Equal(decimal.RequireFromString("0.9")))
	require.Len(t, next.Asks, 1)
}

func TestApplyDiffZeroAmountRemovesLevel(t *testing.T) {
	current := OrderBookSnapshot{
		TradingPair: "PDEX-USDT",
		UpdateID:    6,
		Asks:        []PriceLevel{level("1.2", "5"), level("1.3", "7")},
	}

	next := ApplyDiff(current, OrderBookDiff{
		UpdateID: 7,
		Asks:     []PriceLevel{level("1.2", "0")},
	})

	require.Len(t, next.Asks, 1)
	assert.True(t, next.Asks[0].Price.Equal(decimal.RequireFromString("1.3")))

	// Removing an absent level is a no-op, not an error.
	next = ApplyDiff(next, OrderBookDiff{
		UpdateID: 8,
		Bids:     []PriceLevel{level("0.5", "0")},
	})
	assert.Equal(t, int64(8), next.UpdateID)
	assert.Empty(t, next.Bids)
}

func TestApplyDiffDropsStaleUpdates(t *testing.T) {
	current := OrderBookSnapshot{
		TradingPair: "PDEX-USDT",
		UpdateID:    6,
		Bids:        []PriceLevel{level("1.0", "10")},
	}

	for _, stale := range []int64{6, 5, -1} {
		next := ApplyDiff(current, OrderBookDiff{
			UpdateID: stale,
			Bids:     []PriceLevel{level("1.0", "999")},
		})
		assert.Equal(t, current, next, "update_id=%d", stale)
	}
}

func TestApplyDiffOnEmptyBook(t *testing.T) {
	empty := OrderBookSnapshot{TradingPair: "PDEX-USDT", UpdateID: -1}

	next := ApplyDiff(empty, OrderBookDiff{
		UpdateID: 3,
		Bids:     []PriceLevel{level("1.0", "1")},
		Asks:     []PriceLevel{level("1.1", "2")},
	})

	assert.Equal(t, int64(3), next.UpdateID)
	assert.Len(t, next.Bids, 1)
	assert.Len(t, next.Asks, 1)
}
