package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance is the per-asset funds split reported by the venue.
type Balance struct {
	Asset     AssetSymbol
	Available decimal.Decimal
	Reserved  decimal.Decimal
}

// Total returns available + reserved.
func (b Balance) Total() decimal.Decimal {
	return b.Available.Add(b.Reserved)
}

// BalanceUpdate is a single-asset balance change from the private stream.
type BalanceUpdate struct {
	Balance
	Timestamp time.Time
}
