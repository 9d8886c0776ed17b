package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide indicates whether an order buys or sells the base asset.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderType indicates the order execution policy.
type OrderType string

const (
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeMarket OrderType = "MARKET"
)

// OrderState tracks the order lifecycle.
type OrderState string

const (
	OrderStatePendingCreate   OrderState = "pending_create"
	OrderStateOpen            OrderState = "open"
	OrderStatePartiallyFilled OrderState = "partially_filled"
	OrderStateFilled          OrderState = "filled"
	OrderStatePendingCancel   OrderState = "pending_cancel"
	OrderStateCanceled        OrderState = "canceled"
	OrderStateFailed          OrderState = "failed"
)

// IsTerminal reports whether no further transitions may leave the state.
func (s OrderState) IsTerminal() bool {
	switch s {
	case OrderStateFilled, OrderStateCanceled, OrderStateFailed:
		return true
	}
	return false
}

// DeriveOrderState maps a venue-reported state and filled amount onto the
// canonical state machine. The venue never transmits "partially filled"
// directly; it is derived from an open order with a non-zero fill.
func DeriveOrderState(reported OrderState, filled decimal.Decimal) OrderState {
	if reported == OrderStateOpen && filled.IsPositive() {
		return OrderStatePartiallyFilled
	}
	return reported
}

// InFlightOrder is an order the engine tracks from placement to a terminal
// state. ClientOrderID is caller-generated and unique for the order's
// lifetime; ExchangeOrderID is empty until the venue assigns one.
type InFlightOrder struct {
	ClientOrderID   string
	ExchangeOrderID string
	TradingPair     TradingPair
	Side            OrderSide
	Type            OrderType
	Price           decimal.Decimal
	Amount          decimal.Decimal
	State           OrderState
	FilledAmount    decimal.Decimal
	CreatedAt       time.Time
}

// OrderUpdate reports a change in an order's lifecycle state.
type OrderUpdate struct {
	ClientOrderID   string
	ExchangeOrderID string
	TradingPair     TradingPair
	NewState        OrderState
	FilledAmount    decimal.Decimal
	Timestamp       time.Time
}
