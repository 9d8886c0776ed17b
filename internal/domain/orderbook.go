package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceLevel is a single price+amount entry in an order book side.
type PriceLevel struct {
	Price  decimal.Decimal
	Amount decimal.Decimal
}

// OrderBookSnapshot is the full order book state for a trading pair.
// UpdateID is the maximum venue sequence number folded into the snapshot,
// or -1 when the book is empty.
type OrderBookSnapshot struct {
	TradingPair TradingPair
	UpdateID    int64
	Bids        []PriceLevel
	Asks        []PriceLevel
	Timestamp   time.Time
}

// OrderBookDiff is an incremental order book update. A level with amount 0
// removes that price from the book.
type OrderBookDiff struct {
	TradingPair TradingPair
	UpdateID    int64
	Bids        []PriceLevel
	Asks        []PriceLevel
	Timestamp   time.Time
}

// ApplyDiff folds a diff into a snapshot and returns the resulting state.
// Diffs with an UpdateID at or below the snapshot's are stale duplicates and
// leave the snapshot unchanged. ApplyDiff does not detect sequence gaps; the
// engine tracks the last applied id and refetches a snapshot on a gap.
func ApplyDiff(current OrderBookSnapshot, diff OrderBookDiff) OrderBookSnapshot {
	if diff.UpdateID <= current.UpdateID {
		return current
	}

	next := OrderBookSnapshot{
		TradingPair: current.TradingPair,
		UpdateID:    diff.UpdateID,
		Bids:        applyLevels(current.Bids, diff.Bids),
		Asks:        applyLevels(current.Asks, diff.Asks),
		Timestamp:   diff.Timestamp,
	}
	return next
}

// applyLevels merges level changes into a book side: zero amount removes the
// price level, non-zero replaces or inserts it.
func applyLevels(side, changes []PriceLevel) []PriceLevel {
	out := make([]PriceLevel, 0, len(side)+len(changes))
	out = append(out, side...)

	for _, change := range changes {
		idx := -1
		for i, lvl := range out {
			if lvl.Price.Equal(change.Price) {
				idx = i
				break
			}
		}
		switch {
		case change.Amount.IsZero():
			if idx >= 0 {
				out = append(out[:idx], out[idx+1:]...)
			}
		case idx >= 0:
			out[idx] = change
		default:
			out = append(out, change)
		}
	}
	return out
}
