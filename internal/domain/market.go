package domain

import "github.com/shopspring/decimal"

// TradingRule captures the per-market order constraints derived from the
// venue's market metadata.
type TradingRule struct {
	TradingPair             TradingPair
	MinOrderSize            decimal.Decimal
	MaxOrderSize            decimal.Decimal
	MinPriceIncrement       decimal.Decimal
	MinBaseAmountIncrement  decimal.Decimal
	MinQuoteAmountIncrement decimal.Decimal
	// MinNotional is min_order_size * min_order_price. Both factors are
	// positive on every live market, so a zero value marks a malformed rule.
	MinNotional decimal.Decimal
}
