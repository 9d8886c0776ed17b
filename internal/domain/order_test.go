package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDeriveOrderState(t *testing.T) {
	zero := decimal.Zero
	some := decimal.RequireFromString("0.5")

	assert.Equal(t, OrderStateOpen, DeriveOrderState(OrderStateOpen, zero))
	assert.Equal(t, OrderStatePartiallyFilled, DeriveOrderState(OrderStateOpen, some))

	// A non-zero fill never overrides a terminal report.
	assert.Equal(t, OrderStateFilled, DeriveOrderState(OrderStateFilled, some))
	assert.Equal(t, OrderStateCanceled, DeriveOrderState(OrderStateCanceled, some))

	// Negative amounts are not "positive".
	assert.Equal(t, OrderStateOpen, DeriveOrderState(OrderStateOpen, decimal.RequireFromString("-1")))
}

func TestOrderStateIsTerminal(t *testing.T) {
	terminal := []OrderState{OrderStateFilled, OrderStateCanceled, OrderStateFailed}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), "state=%s", s)
	}

	open := []OrderState{OrderStatePendingCreate, OrderStateOpen, OrderStatePartiallyFilled, OrderStatePendingCancel}
	for _, s := range open {
		assert.False(t, s.IsTerminal(), "state=%s", s)
	}
}
