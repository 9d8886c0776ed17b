package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// stopTimeout bounds how long Stop may wait for the engine's listeners to
// drain after the run context is cancelled.
const stopTimeout = 10 * time.Second

// MonitorMode runs the engine in read-only fashion: order books and public
// trades are streamed and logged, nothing is signed or submitted.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	if err := deps.Engine.Start(ctx); err != nil {
		return fmt.Errorf("app: start engine: %w", err)
	}
	defer a.stopEngine(deps)

	g, ctx := errgroup.WithContext(ctx)
	a.logPublicEvents(ctx, g, deps)

	return g.Wait()
}

// TradeMode runs the full engine: public market data, the private account
// streams, and the periodic fill reconciliation poll.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode")

	if deps.Wallet.ReadOnly() {
		return fmt.Errorf("app: trade mode requires a wallet seed phrase")
	}

	if err := deps.Engine.Start(ctx); err != nil {
		return fmt.Errorf("app: start engine: %w", err)
	}
	defer a.stopEngine(deps)

	// Re-track orders that were open before this process started so private
	// stream updates and fill polls can be correlated to them.
	open, err := deps.Engine.OpenOrders(ctx)
	if err != nil {
		a.logger.WarnContext(ctx, "open order recovery failed",
			slog.String("error", err.Error()))
	}
	for _, order := range open {
		deps.Engine.TrackOrder(order)
	}
	if len(open) > 0 {
		a.logger.InfoContext(ctx, "recovered open orders", slog.Int("count", len(open)))
	}

	g, ctx := errgroup.WithContext(ctx)
	a.logPublicEvents(ctx, g, deps)
	a.logPrivateEvents(ctx, g, deps)

	g.Go(func() error {
		return a.pollFills(ctx, deps)
	})

	return g.Wait()
}

// stopEngine stops the engine with a bounded timeout, detached from the
// already-cancelled run context.
func (a *App) stopEngine(deps *Dependencies) {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := deps.Engine.Stop(ctx); err != nil {
		a.logger.Warn("engine stop", slog.String("error", err.Error()))
	}
}

// logPublicEvents drains the book and trade topics into the log.
func (a *App) logPublicEvents(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	books := deps.Engine.BookEvents()
	trades := deps.Engine.TradeEvents()

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case snap, ok := <-books:
				if !ok {
					return nil
				}
				a.logger.DebugContext(ctx, "order book",
					slog.String("pair", snap.TradingPair),
					slog.Int64("update_id", snap.UpdateID),
					slog.Int("bids", len(snap.Bids)),
					slog.Int("asks", len(snap.Asks)),
				)
			}
		}
	})
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case trade, ok := <-trades:
				if !ok {
					return nil
				}
				a.logger.InfoContext(ctx, "public trade",
					slog.String("pair", trade.TradingPair),
					slog.String("side", string(trade.Side)),
					slog.String("price", trade.Price.String()),
					slog.String("amount", trade.Amount.String()),
				)
			}
		}
	})
}

// logPrivateEvents drains the balance, order, and fill topics into the log.
// Journal persistence happens inside the engine; this is operator visibility.
func (a *App) logPrivateEvents(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	balances := deps.Engine.BalanceEvents()
	orders := deps.Engine.OrderEvents()
	fills := deps.Engine.FillEvents()

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case bal, ok := <-balances:
				if !ok {
					return nil
				}
				a.logger.InfoContext(ctx, "balance update",
					slog.String("asset", bal.Asset),
					slog.String("available", bal.Available.String()),
					slog.String("reserved", bal.Reserved.String()),
				)
			case update, ok := <-orders:
				if !ok {
					return nil
				}
				a.logger.InfoContext(ctx, "order update",
					slog.String("client_order_id", update.ClientOrderID),
					slog.String("state", string(update.NewState)),
					slog.String("filled", update.FilledAmount.String()),
				)
			case fill, ok := <-fills:
				if !ok {
					return nil
				}
				a.logger.InfoContext(ctx, "fill",
					slog.String("client_order_id", fill.ClientOrderID),
					slog.String("pair", fill.TradingPair),
					slog.String("price", fill.Price.String()),
					slog.String("amount", fill.BaseAmount.String()),
				)
			}
		}
	})
}

// pollFills periodically reconciles trade history against the venue. The
// private stream is the primary fill source; the poll catches anything lost
// across reconnects. The first window reaches back either to the last
// journaled fill or by the configured lookback, whichever is later known.
func (a *App) pollFills(ctx context.Context, deps *Dependencies) error {
	interval := a.cfg.Engine.FillPollInterval.Duration
	if interval <= 0 {
		interval = time.Minute
	}

	from := time.Now().Add(-a.cfg.Engine.FillLookback.Duration)
	if deps.FillJournal != nil {
		last, err := deps.FillJournal.GetLastTimestamp(ctx)
		if err != nil {
			a.logger.WarnContext(ctx, "fill journal read failed",
				slog.String("error", err.Error()))
		} else if !last.IsZero() && last.After(from) {
			from = last
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			to := time.Now()
			fills, err := deps.Engine.Fills(ctx, from, to)
			if err != nil {
				a.logger.WarnContext(ctx, "fill poll failed",
					slog.String("error", err.Error()))
				continue
			}
			if len(fills) > 0 {
				a.logger.InfoContext(ctx, "fill poll",
					slog.Int("count", len(fills)),
					slog.Time("from", from),
					slog.Time("to", to),
				)
			}
			from = to
		}
	}
}
