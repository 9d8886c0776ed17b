package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PublicTrade is a trade execution observed on a market's public stream.
type PublicTrade struct {
	TradeID     string
	TradingPair TradingPair
	Side        OrderSide // taker side
	Price       decimal.Decimal
	Amount      decimal.Decimal
	Timestamp   time.Time
}

// Fee is the fee charged on a fill, denominated in the quote asset. The
// venue currently charges nothing, but the quote-asset identity is kept so
// a future non-zero schedule needs no schema change.
type Fee struct {
	Asset   AssetSymbol
	Percent decimal.Decimal
	Amount  decimal.Decimal
}

// TradeFill is a fill correlated to a tracked order. QuoteAmount is always
// Price * BaseAmount.
type TradeFill struct {
	TradeID         string
	ClientOrderID   string
	ExchangeOrderID string
	TradingPair     TradingPair
	Price           decimal.Decimal
	BaseAmount      decimal.Decimal
	QuoteAmount     decimal.Decimal
	Fee             Fee
	Timestamp       time.Time
}
