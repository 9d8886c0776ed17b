package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/polkadexbot/internal/domain"
	"github.com/alanyoungcy/polkadexbot/internal/platform/polkadex"
)

// listenPrivate consumes an account stream, routing events on their type
// discriminant. Unknown discriminants are logged and dropped so new venue
// event types never break the listener.
func (e *Engine) listenPrivate(ctx context.Context, ch <-chan polkadex.StreamMessage) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var envelope polkadex.PrivateEnvelope
			if err := json.Unmarshal(msg.Data, &envelope); err != nil {
				e.logger.Warn("dropping malformed private event", slog.Any("error", err))
				continue
			}

			switch envelope.Type {
			case polkadex.EventTypeBalance:
				e.handleBalanceEvent(msg.Data)
			case polkadex.EventTypeOrder:
				e.handleOrderEvent(ctx, msg.Data)
			case polkadex.EventTypeTrade:
				e.handleTradeEvent(ctx, msg.Data)
			default:
				e.logger.Debug("ignoring private event", slog.String("type", envelope.Type))
			}
		}
	}
}

func (e *Engine) handleBalanceEvent(data []byte) {
	var event polkadex.BalanceEvent
	if err := json.Unmarshal(data, &event); err != nil {
		e.logger.Warn("dropping malformed balance event", slog.Any("error", err))
		return
	}
	e.touch()

	symbol, ok := e.AssetSymbol(event.Asset.Asset)
	if !ok {
		e.logger.Warn("balance event for unknown asset", slog.String("asset", event.Asset.Asset))
		return
	}
	available, err := decimal.NewFromString(event.Free)
	if err != nil {
		e.logger.Warn("dropping balance event with bad free amount", slog.String("value", event.Free))
		return
	}
	reserved, err := decimal.NewFromString(event.Reserved)
	if err != nil {
		e.logger.Warn("dropping balance event with bad reserved amount", slog.String("value", event.Reserved))
		return
	}

	e.balanceTopic.Publish(domain.BalanceUpdate{
		Balance: domain.Balance{
			Asset:     symbol,
			Available: available,
			Reserved:  reserved,
		},
		Timestamp: time.Now(),
	})
}

func (e *Engine) handleOrderEvent(ctx context.Context, data []byte) {
	var event polkadex.OrderUpdateEvent
	if err := json.Unmarshal(data, &event); err != nil {
		e.logger.Warn("dropping malformed order event", slog.Any("error", err))
		return
	}
	e.touch()

	base, okBase := e.AssetSymbol(event.Pair.Base.Asset)
	quote, okQuote := e.AssetSymbol(event.Pair.Quote.Asset)
	if !okBase || !okQuote {
		e.logger.Warn("order event with unknown asset pair",
			slog.String("base", event.Pair.Base.Asset),
			slog.String("quote", event.Pair.Quote.Asset))
		return
	}
	pair := domain.CombineTradingPair(base, quote)

	reported, ok := polkadex.OrderStateFromStatus(event.Status)
	if !ok {
		e.logger.Warn("order event with unknown status", slog.String("status", event.Status))
		return
	}
	filled, err := decimal.NewFromString(event.FilledQuantity)
	if err != nil {
		e.logger.Warn("dropping order event with bad filled quantity", slog.String("value", event.FilledQuantity))
		return
	}

	newState := domain.DeriveOrderState(reported, filled)
	update := domain.OrderUpdate{
		ClientOrderID:   event.ClientOrderID,
		ExchangeOrderID: event.ID,
		TradingPair:     pair,
		NewState:        newState,
		FilledAmount:    filled,
		Timestamp:       time.Now(),
	}

	e.mu.Lock()
	if order, ok := e.inflight[event.ClientOrderID]; ok {
		// Duplicate deliveries across the proxy and main streams can replay
		// an earlier lifecycle event; a terminal order never reopens.
		if order.State.IsTerminal() {
			e.mu.Unlock()
			e.logger.Debug("ignoring event for terminal order",
				slog.String("client_order_id", event.ClientOrderID),
				slog.String("status", event.Status))
			return
		}
		order.State = newState
		order.FilledAmount = filled
		if order.ExchangeOrderID == "" && event.ID != "" {
			order.ExchangeOrderID = event.ID
			e.byExchangeID[event.ID] = event.ClientOrderID
		}
	}
	e.mu.Unlock()

	e.orderTopic.Publish(update)
	e.journalOrder(ctx, update)
}

func (e *Engine) handleTradeEvent(ctx context.Context, data []byte) {
	var event polkadex.TradeEvent
	if err := json.Unmarshal(data, &event); err != nil {
		e.logger.Warn("dropping malformed trade event", slog.Any("error", err))
		return
	}
	e.touch()

	pair, ok := e.PairForMarket(event.Market)
	if !ok {
		e.logger.Warn("trade event on unknown market", slog.String("market", event.Market))
		return
	}
	price, err := decimal.NewFromString(event.Price)
	if err != nil {
		e.logger.Warn("dropping trade event with bad price", slog.String("value", event.Price))
		return
	}
	amount, err := decimal.NewFromString(event.Quantity)
	if err != nil {
		e.logger.Warn("dropping trade event with bad quantity", slog.String("value", event.Quantity))
		return
	}

	fill := domain.TradeFill{
		TradeID:         event.TradeID,
		ClientOrderID:   event.ClientOrderID,
		ExchangeOrderID: event.OrderID,
		TradingPair:     pair,
		Price:           price,
		BaseAmount:      amount,
		QuoteAmount:     price.Mul(amount),
		Fee:             e.zeroFee(pair),
		Timestamp:       time.Now(),
	}

	e.fillTopic.Publish(fill)
	e.journalFills(ctx, []domain.TradeFill{fill})
}

// parsePublicTrade decodes a public trade stream event.
func (e *Engine) parsePublicTrade(data []byte) (domain.PublicTrade, error) {
	var event polkadex.PublicTradeEvent
	if err := unmarshalEvent(data, &event); err != nil {
		return domain.PublicTrade{}, err
	}

	pair, ok := e.PairForMarket(event.Market)
	if !ok {
		return domain.PublicTrade{}, fmt.Errorf("unknown market %q", event.Market)
	}
	price, err := decimal.NewFromString(event.Price)
	if err != nil {
		return domain.PublicTrade{}, fmt.Errorf("parse price %q: %w", event.Price, err)
	}
	amount, err := decimal.NewFromString(event.Quantity)
	if err != nil {
		return domain.PublicTrade{}, fmt.Errorf("parse quantity %q: %w", event.Quantity, err)
	}

	side, _ := polkadex.SideFromVenue(event.MakerSide)
	return domain.PublicTrade{
		TradeID:     event.TradeID,
		TradingPair: pair,
		Side:        side,
		Price:       price,
		Amount:      amount,
		Timestamp:   time.UnixMilli(int64(event.Timestamp)),
	}, nil
}

func unmarshalEvent(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode stream event: %w", err)
	}
	return nil
}
