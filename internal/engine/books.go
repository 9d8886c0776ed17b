package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/polkadexbot/internal/domain"
	"github.com/alanyoungcy/polkadexbot/internal/platform/polkadex"
)

// OrderBook returns the engine's current book state for a trading pair.
func (e *Engine) OrderBook(pair domain.TradingPair) (domain.OrderBookSnapshot, bool) {
	market, ok := e.MarketForPair(pair)
	if !ok {
		return domain.OrderBookSnapshot{}, false
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	snap, ok := e.books[market]
	return snap, ok
}

// ResyncBook replaces the tracked book for a trading pair with a fresh
// snapshot from the venue and returns it. Diffs already streamed with lower
// sequence numbers are discarded by the stale check in ApplyDiff.
func (e *Engine) ResyncBook(ctx context.Context, pair domain.TradingPair) (domain.OrderBookSnapshot, error) {
	market, ok := e.MarketForPair(pair)
	if !ok {
		return domain.OrderBookSnapshot{}, fmt.Errorf("engine: resync book: %w: %s", domain.ErrUnknownMarket, pair)
	}

	entries, err := e.transport.Orderbook(ctx, market)
	if err != nil {
		return domain.OrderBookSnapshot{}, fmt.Errorf("engine: resync book %s: %w", market, err)
	}

	snap, err := buildSnapshot(pair, entries)
	if err != nil {
		return domain.OrderBookSnapshot{}, fmt.Errorf("engine: resync book %s: %w", market, err)
	}

	e.mu.Lock()
	e.books[market] = snap
	e.mu.Unlock()

	e.mirrorBook(ctx, snap)
	return snap, nil
}

// LastPrice returns the price of the most recent public trade on a pair.
func (e *Engine) LastPrice(ctx context.Context, pair domain.TradingPair) (decimal.Decimal, error) {
	market, ok := e.MarketForPair(pair)
	if !ok {
		return decimal.Zero, fmt.Errorf("engine: last price: %w: %s", domain.ErrUnknownMarket, pair)
	}

	trades, err := e.transport.RecentTrades(ctx, market, 1)
	if err != nil {
		return decimal.Zero, fmt.Errorf("engine: last price %s: %w", market, err)
	}
	if len(trades) == 0 {
		return decimal.Zero, fmt.Errorf("engine: last price %s: no trades", market)
	}

	price, err := decimal.NewFromString(trades[0].Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("engine: last price %s: parse %q: %w", market, trades[0].Price, err)
	}
	return price, nil
}

// RecentTrades returns the latest public trades on a pair, newest first as
// the venue reports them.
func (e *Engine) RecentTrades(ctx context.Context, pair domain.TradingPair, limit int) ([]domain.PublicTrade, error) {
	market, ok := e.MarketForPair(pair)
	if !ok {
		return nil, fmt.Errorf("engine: recent trades: %w: %s", domain.ErrUnknownMarket, pair)
	}

	entries, err := e.transport.RecentTrades(ctx, market, limit)
	if err != nil {
		return nil, fmt.Errorf("engine: recent trades %s: %w", market, err)
	}

	trades := make([]domain.PublicTrade, 0, len(entries))
	for _, entry := range entries {
		if entry.IsReverted {
			continue
		}
		price, err := decimal.NewFromString(entry.Price)
		if err != nil {
			e.logger.Warn("skipping trade with bad price", slog.String("value", entry.Price))
			continue
		}
		amount, err := decimal.NewFromString(entry.Quantity)
		if err != nil {
			e.logger.Warn("skipping trade with bad quantity", slog.String("value", entry.Quantity))
			continue
		}
		trades = append(trades, domain.PublicTrade{
			TradingPair: pair,
			Price:       price,
			Amount:      amount,
			Timestamp:   time.UnixMilli(int64(entry.Timestamp)),
		})
	}
	return trades, nil
}

// listenBooks consumes a market's incremental book stream, folding diffs
// into the tracked snapshot and publishing the result.
func (e *Engine) listenBooks(ctx context.Context, market domain.MarketSymbol, ch <-chan polkadex.StreamMessage) {
	pair, _ := e.PairForMarket(market)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			diff, err := parseBookDiff(pair, msg.Data)
			if err != nil {
				e.logger.Warn("dropping malformed book diff",
					slog.String("market", market),
					slog.Any("error", err))
				continue
			}

			e.mu.RLock()
			last := e.books[market].UpdateID
			tracked := e.books[market].TradingPair != ""
			e.mu.RUnlock()

			// A skipped sequence id means missed diffs; refetch the snapshot
			// before folding the incoming diff on top.
			if tracked && last >= 0 && diff.UpdateID > last+1 {
				e.logger.Warn("book sequence gap, refetching snapshot",
					slog.String("market", market),
					slog.Int64("have", last),
					slog.Int64("incoming", diff.UpdateID))
				if _, err := e.ResyncBook(ctx, pair); err != nil {
					e.logger.Warn("book resync failed",
						slog.String("market", market),
						slog.Any("error", err))
					continue
				}
			}

			e.mu.Lock()
			current := e.books[market]
			if current.TradingPair == "" {
				current = domain.OrderBookSnapshot{TradingPair: pair, UpdateID: -1}
			}
			next := domain.ApplyDiff(current, diff)
			changed := next.UpdateID != current.UpdateID
			if changed {
				e.books[market] = next
			}
			e.mu.Unlock()

			if !changed {
				continue
			}
			e.bookTopic.Publish(next)
			e.mirrorBook(ctx, next)
		}
	}
}

// listenTrades consumes a market's public trade stream.
func (e *Engine) listenTrades(ctx context.Context, ch <-chan polkadex.StreamMessage) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			trade, err := e.parsePublicTrade(msg.Data)
			if err != nil {
				e.logger.Warn("dropping malformed public trade", slog.Any("error", err))
				continue
			}
			e.tradeTopic.Publish(trade)
		}
	}
}

// mirrorBook writes a snapshot to the external book cache, if configured.
// Mirror failures are logged and never affect the tracked state.
func (e *Engine) mirrorBook(ctx context.Context, snap domain.OrderBookSnapshot) {
	if e.bookCache == nil {
		return
	}
	if err := e.bookCache.SetSnapshot(ctx, snap.TradingPair, snap); err != nil {
		e.logger.Warn("book cache write failed",
			slog.String("pair", snap.TradingPair),
			slog.Any("error", err))
	}
}

// buildSnapshot assembles a book snapshot from the venue's aggregated level
// listing. The snapshot's UpdateID is the highest sequence number among the
// levels, -1 for an empty book.
func buildSnapshot(pair domain.TradingPair, entries []polkadex.OrderbookEntry) (domain.OrderBookSnapshot, error) {
	snap := domain.OrderBookSnapshot{
		TradingPair: pair,
		UpdateID:    -1,
		Timestamp:   time.Now(),
	}

	for _, entry := range entries {
		price, err := decimal.NewFromString(entry.Price)
		if err != nil {
			return domain.OrderBookSnapshot{}, fmt.Errorf("parse price %q: %w", entry.Price, err)
		}
		amount, err := decimal.NewFromString(entry.Quantity)
		if err != nil {
			return domain.OrderBookSnapshot{}, fmt.Errorf("parse quantity %q: %w", entry.Quantity, err)
		}

		level := domain.PriceLevel{Price: price, Amount: amount}
		if side, _ := polkadex.SideFromVenue(entry.Side); side == domain.OrderSideBuy {
			snap.Bids = append(snap.Bids, level)
		} else {
			snap.Asks = append(snap.Asks, level)
		}

		if int64(entry.StateID) > snap.UpdateID {
			snap.UpdateID = int64(entry.StateID)
		}
	}
	return snap, nil
}

// parseBookDiff decodes an incremental book event into a domain diff.
func parseBookDiff(pair domain.TradingPair, data []byte) (domain.OrderBookDiff, error) {
	var event polkadex.BookDiffEvent
	if err := unmarshalEvent(data, &event); err != nil {
		return domain.OrderBookDiff{}, err
	}

	bids, err := parseLevels(event.Bids)
	if err != nil {
		return domain.OrderBookDiff{}, fmt.Errorf("bids: %w", err)
	}
	asks, err := parseLevels(event.Asks)
	if err != nil {
		return domain.OrderBookDiff{}, fmt.Errorf("asks: %w", err)
	}

	return domain.OrderBookDiff{
		TradingPair: pair,
		UpdateID:    int64(event.UpdateID),
		Bids:        bids,
		Asks:        asks,
		Timestamp:   time.Now(),
	}, nil
}

// parseLevels converts the venue's price-to-amount map into price levels.
func parseLevels(levels map[string]string) ([]domain.PriceLevel, error) {
	out := make([]domain.PriceLevel, 0, len(levels))
	for priceStr, amountStr := range levels {
		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			return nil, fmt.Errorf("parse price %q: %w", priceStr, err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amountStr, err)
		}
		out = append(out, domain.PriceLevel{Price: price, Amount: amount})
	}
	return out, nil
}
