package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/polkadexbot/internal/domain"
	"github.com/alanyoungcy/polkadexbot/internal/platform/polkadex"
)

// RefreshAssets reloads the asset id to symbol map from the venue. The
// native token is mapped by hand because private balance events report it
// under a name that never appears in the registry.
func (e *Engine) RefreshAssets(ctx context.Context) error {
	assets, err := e.transport.AllAssets(ctx)
	if err != nil {
		return fmt.Errorf("engine: refresh assets: %w", err)
	}

	next := make(map[domain.AssetID]domain.AssetSymbol, len(assets)+1)
	for _, asset := range assets {
		next[asset.AssetID] = normalizeAssetName(asset.AssetID, asset.Name)
	}
	if len(next) > 0 {
		next[polkadex.NativeAssetID] = polkadex.NativeAssetSymbol
	}

	e.mu.Lock()
	e.assets = next
	e.mu.Unlock()

	e.logger.Debug("assets refreshed", slog.Int("count", len(next)))
	return nil
}

// RefreshSymbols rebuilds the bidirectional market symbol to trading pair
// map. Markets naming an asset absent from the registry are skipped; one
// unresolvable market must not block the rest.
func (e *Engine) RefreshSymbols(ctx context.Context) error {
	markets, err := e.transport.AllMarkets(ctx)
	if err != nil {
		return fmt.Errorf("engine: refresh symbols: %w", err)
	}

	e.mu.RLock()
	assets := e.assets
	e.mu.RUnlock()

	marketToPair := make(map[domain.MarketSymbol]domain.TradingPair, len(markets))
	pairToMarket := make(map[domain.TradingPair]domain.MarketSymbol, len(markets))

	for _, market := range markets {
		baseID, quoteID, ok := domain.SplitMarketSymbol(market.Market)
		if !ok {
			e.logger.Warn("skipping malformed market symbol", slog.String("market", market.Market))
			continue
		}
		base, okBase := assets[baseID]
		quote, okQuote := assets[quoteID]
		if !okBase || !okQuote {
			e.logger.Warn("skipping market with unknown asset", slog.String("market", market.Market))
			continue
		}
		pair := domain.CombineTradingPair(base, quote)
		marketToPair[market.Market] = pair
		pairToMarket[pair] = market.Market
	}

	e.mu.Lock()
	e.marketToPair = marketToPair
	e.pairToMarket = pairToMarket
	e.mu.Unlock()

	e.logger.Debug("symbols refreshed", slog.Int("count", len(marketToPair)))
	return nil
}

// RefreshTradingRules reloads the per-market order constraints. Markets
// with unparseable metadata are logged and skipped.
func (e *Engine) RefreshTradingRules(ctx context.Context) error {
	markets, err := e.transport.AllMarkets(ctx)
	if err != nil {
		return fmt.Errorf("engine: refresh trading rules: %w", err)
	}

	rules := make(map[domain.TradingPair]domain.TradingRule, len(markets))
	for _, market := range markets {
		pair, ok := e.PairForMarket(market.Market)
		if !ok {
			continue
		}
		rule, err := parseTradingRule(pair, market)
		if err != nil {
			e.logger.Warn("skipping market with malformed trading rule",
				slog.String("market", market.Market),
				slog.Any("error", err))
			continue
		}
		rules[pair] = rule
	}

	e.mu.Lock()
	e.rules = rules
	e.mu.Unlock()

	e.logger.Debug("trading rules refreshed", slog.Int("count", len(rules)))
	return nil
}

// TradingRule returns the order constraints for a trading pair.
func (e *Engine) TradingRule(pair domain.TradingPair) (domain.TradingRule, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rule, ok := e.rules[pair]
	return rule, ok
}

// TradingRules returns the constraints for every resolvable market.
func (e *Engine) TradingRules() []domain.TradingRule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]domain.TradingRule, 0, len(e.rules))
	for _, rule := range e.rules {
		out = append(out, rule)
	}
	return out
}

// PairForMarket maps a venue market symbol to its trading pair.
func (e *Engine) PairForMarket(market domain.MarketSymbol) (domain.TradingPair, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	pair, ok := e.marketToPair[market]
	return pair, ok
}

// MarketForPair maps a trading pair to its venue market symbol.
func (e *Engine) MarketForPair(pair domain.TradingPair) (domain.MarketSymbol, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	market, ok := e.pairToMarket[pair]
	return market, ok
}

// AssetSymbol resolves a venue asset id to its ticker.
func (e *Engine) AssetSymbol(id domain.AssetID) (domain.AssetSymbol, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	symbol, ok := e.assets[id]
	return symbol, ok
}

// parseTradingRule converts venue market metadata into a trading rule.
func parseTradingRule(pair domain.TradingPair, market polkadex.MarketInfo) (domain.TradingRule, error) {
	minSize, err := decimal.NewFromString(market.MinOrderQty)
	if err != nil {
		return domain.TradingRule{}, fmt.Errorf("min_order_qty: %w", err)
	}
	maxSize, err := decimal.NewFromString(market.MaxOrderQty)
	if err != nil {
		return domain.TradingRule{}, fmt.Errorf("max_order_qty: %w", err)
	}
	minPrice, err := decimal.NewFromString(market.MinOrderPrice)
	if err != nil {
		return domain.TradingRule{}, fmt.Errorf("min_order_price: %w", err)
	}
	priceTick, err := decimal.NewFromString(market.PriceTickSize)
	if err != nil {
		return domain.TradingRule{}, fmt.Errorf("price_tick_size: %w", err)
	}
	qtyStep, err := decimal.NewFromString(market.QtyStepSize)
	if err != nil {
		return domain.TradingRule{}, fmt.Errorf("qty_step_size: %w", err)
	}

	return domain.TradingRule{
		TradingPair:             pair,
		MinOrderSize:            minSize,
		MaxOrderSize:            maxSize,
		MinPriceIncrement:       priceTick,
		MinBaseAmountIncrement:  qtyStep,
		MinQuoteAmountIncrement: priceTick,
		MinNotional:             minSize.Mul(minPrice),
	}, nil
}

// normalizeAssetName resolves the display ticker for an asset. Numeric ids
// use the registered name; named ids are their own ticker. A few legacy
// prefixes are shortened.
func normalizeAssetName(id domain.AssetID, name string) domain.AssetSymbol {
	symbol := id
	if isDigits(id) {
		symbol = name
	}
	symbol = strings.ReplaceAll(symbol, "CHAINBRIDGE-", "C")
	symbol = strings.ReplaceAll(symbol, "TEST DEX", "TDEX")
	symbol = strings.ReplaceAll(symbol, "TEST BRIDGE", "TBRI")
	return symbol
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
