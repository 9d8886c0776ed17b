// Package domain defines the core types shared by the sync engine: assets,
// markets, order books, orders, fills, and balances, plus the store/cache
// interfaces implemented by the infrastructure packages.
package domain

import "strings"

// AssetID is the venue-native asset identifier (a numeric string, or the
// word "polkadex" for the native token).
type AssetID = string

// AssetSymbol is the human-readable ticker resolved from the asset listing.
type AssetSymbol = string

// MarketSymbol is the venue-native market identifier: two asset IDs joined
// by a dash, e.g. "polkadex-3496813586714279056140".
type MarketSymbol = string

// TradingPair is the canonical BASE-QUOTE identifier used by the connector
// layer, e.g. "PDEX-USDT".
type TradingPair = string

// CombineTradingPair builds the canonical trading pair identifier.
func CombineTradingPair(base, quote AssetSymbol) TradingPair {
	return base + "-" + quote
}

// SplitTradingPair splits a canonical trading pair into base and quote
// symbols. The second return value is false when the pair is malformed.
func SplitTradingPair(pair TradingPair) (base, quote AssetSymbol, ok bool) {
	base, quote, found := strings.Cut(pair, "-")
	if !found || base == "" || quote == "" {
		return "", "", false
	}
	return base, quote, true
}

// SplitMarketSymbol splits a venue market identifier into its base and quote
// asset IDs. Asset IDs never contain dashes, so the first dash is the
// separator.
func SplitMarketSymbol(symbol MarketSymbol) (baseID, quoteID AssetID, ok bool) {
	baseID, quoteID, found := strings.Cut(symbol, "-")
	if !found || baseID == "" || quoteID == "" {
		return "", "", false
	}
	return baseID, quoteID, true
}
