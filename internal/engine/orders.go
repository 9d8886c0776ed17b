package engine

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/blake2b"

	"github.com/alanyoungcy/polkadexbot/internal/codec"
	"github.com/alanyoungcy/polkadexbot/internal/crypto"
	"github.com/alanyoungcy/polkadexbot/internal/domain"
	"github.com/alanyoungcy/polkadexbot/internal/platform/polkadex"
)

// NewClientOrderID generates a fresh client order id in the venue's H256
// format: 32 random-derived bytes as 0x-prefixed hex.
func NewClientOrderID() string {
	sum := blake2b.Sum256([]byte(uuid.NewString()))
	return "0x" + hex.EncodeToString(sum[:])
}

// OrderRequest describes an order to place.
type OrderRequest struct {
	TradingPair domain.TradingPair
	Side        domain.OrderSide
	Type        domain.OrderType
	Price       decimal.Decimal
	Amount      decimal.Decimal

	// ClientOrderID is generated when empty. Callers supplying their own
	// must use the venue's H256 hex format.
	ClientOrderID string
}

// PlaceOrder signs and submits an order, returning the tracked in-flight
// order with the exchange-assigned id. The SCALE-encoded payload is signed
// with the wallet key; the venue verifies the signature against the same
// fields submitted in the mutation body.
func (e *Engine) PlaceOrder(ctx context.Context, req OrderRequest) (domain.InFlightOrder, error) {
	if e.wallet.ReadOnly() {
		return domain.InFlightOrder{}, fmt.Errorf("engine: place order: %w", domain.ErrReadOnlyWallet)
	}

	market, ok := e.MarketForPair(req.TradingPair)
	if !ok {
		return domain.InFlightOrder{}, fmt.Errorf("engine: place order: %w: %s", domain.ErrUnknownMarket, req.TradingPair)
	}

	mainAddress, err := e.ensureMainAddress(ctx)
	if err != nil {
		return domain.InFlightOrder{}, fmt.Errorf("engine: place order: %w", err)
	}

	clientOrderID := req.ClientOrderID
	if clientOrderID == "" {
		clientOrderID = NewClientOrderID()
	}

	price := codec.Normalize(req.Price, polkadex.MaxFractionScale)
	amount := codec.Normalize(req.Amount, polkadex.MaxFractionScale)
	now := time.Now()

	payload := codec.OrderPayload{
		ClientOrderID:      clientOrderID,
		User:               e.wallet.Address(),
		MainAccount:        mainAddress,
		Pair:               market,
		Side:               req.Side,
		Type:               req.Type,
		QuoteOrderQuantity: "0",
		Quantity:           amount.String(),
		Price:              price.String(),
		Timestamp:          now.UnixMilli(),
	}

	encoded, err := codec.EncodeOrderPayload(payload)
	if err != nil {
		return domain.InFlightOrder{}, fmt.Errorf("engine: place order: %w", err)
	}
	sigHex, err := e.wallet.SignHex(encoded)
	if err != nil {
		return domain.InFlightOrder{}, fmt.Errorf("engine: place order: %w", err)
	}

	submission := polkadex.OrderSubmission{
		User:          payload.User,
		MainAccount:   payload.MainAccount,
		Pair:          payload.Pair,
		Qty:           payload.Quantity,
		Price:         payload.Price,
		QuoteOrderQty: payload.QuoteOrderQuantity,
		Timestamp:     payload.Timestamp,
		ClientOrderID: payload.ClientOrderID,
		OrderType:     polkadex.TypeToVenue(req.Type),
		Side:          polkadex.SideToVenue(req.Side),
	}

	exchangeOrderID, err := e.transport.PlaceOrder(ctx, submission,
		polkadex.NewSignature(crypto.SignatureScheme, sigHex))
	if err != nil {
		return domain.InFlightOrder{}, fmt.Errorf("engine: place order: %w", err)
	}

	order := domain.InFlightOrder{
		ClientOrderID:   clientOrderID,
		ExchangeOrderID: exchangeOrderID,
		TradingPair:     req.TradingPair,
		Side:            req.Side,
		Type:            req.Type,
		Price:           price,
		Amount:          amount,
		State:           domain.OrderStateOpen,
		CreatedAt:       now,
	}
	e.trackOrder(order)

	e.journalOrder(ctx, domain.OrderUpdate{
		ClientOrderID:   clientOrderID,
		ExchangeOrderID: exchangeOrderID,
		TradingPair:     req.TradingPair,
		NewState:        domain.OrderStateOpen,
		Timestamp:       now,
	})

	e.logger.Info("order placed",
		slog.String("pair", req.TradingPair),
		slog.String("side", string(req.Side)),
		slog.String("exchange_order_id", exchangeOrderID))
	return order, nil
}

// CancelOrder signs and submits a cancel request for a tracked order. A
// venue response that the order is no longer active marks the order
// canceled and returns nil, making cancellation idempotent.
func (e *Engine) CancelOrder(ctx context.Context, clientOrderID string) (domain.OrderState, error) {
	if e.wallet.ReadOnly() {
		return "", fmt.Errorf("engine: cancel order: %w", domain.ErrReadOnlyWallet)
	}

	order, ok := e.Order(clientOrderID)
	if !ok || order.ExchangeOrderID == "" {
		return "", fmt.Errorf("engine: cancel order %s: %w", clientOrderID, domain.ErrOrderNotFound)
	}

	market, ok := e.MarketForPair(order.TradingPair)
	if !ok {
		return "", fmt.Errorf("engine: cancel order: %w: %s", domain.ErrUnknownMarket, order.TradingPair)
	}

	mainAddress, err := e.ensureMainAddress(ctx)
	if err != nil {
		return "", fmt.Errorf("engine: cancel order: %w", err)
	}

	encoded, err := codec.EncodeCancelPayload(order.ExchangeOrderID)
	if err != nil {
		return "", fmt.Errorf("engine: cancel order: %w", err)
	}
	sigHex, err := e.wallet.SignHex(encoded)
	if err != nil {
		return "", fmt.Errorf("engine: cancel order: %w", err)
	}

	accepted, err := e.transport.CancelOrder(ctx, order.ExchangeOrderID, market,
		mainAddress, e.wallet.Address(), polkadex.NewSignature(crypto.SignatureScheme, sigHex))
	if err != nil {
		if strings.Contains(err.Error(), polkadex.OrderNotActiveMessage) {
			e.setOrderState(clientOrderID, domain.OrderStateCanceled)
			return domain.OrderStateCanceled, nil
		}
		return "", fmt.Errorf("engine: cancel order: %w", err)
	}

	newState := order.State
	if accepted {
		newState = domain.OrderStatePendingCancel
		e.setOrderState(clientOrderID, newState)
	}
	return newState, nil
}

// OrderStatus queries the venue for a tracked order's current state. An
// order with reported state open and a positive filled quantity is reported
// as partially filled.
func (e *Engine) OrderStatus(ctx context.Context, clientOrderID string) (domain.OrderUpdate, error) {
	order, ok := e.Order(clientOrderID)
	if !ok || order.ExchangeOrderID == "" {
		return domain.OrderUpdate{}, fmt.Errorf("engine: order status %s: %w", clientOrderID, domain.ErrOrderNotFound)
	}

	market, ok := e.MarketForPair(order.TradingPair)
	if !ok {
		return domain.OrderUpdate{}, fmt.Errorf("engine: order status: %w: %s", domain.ErrUnknownMarket, order.TradingPair)
	}

	entry, err := e.transport.FindOrder(ctx, e.wallet.Address(), market, order.ExchangeOrderID)
	if err != nil {
		return domain.OrderUpdate{}, fmt.Errorf("engine: order status: %w", err)
	}
	if entry == nil {
		return domain.OrderUpdate{}, fmt.Errorf("engine: order status %s (%s): %w",
			clientOrderID, order.ExchangeOrderID, domain.ErrOrderNotFound)
	}

	reported, ok := polkadex.OrderStateFromStatus(entry.Status)
	if !ok {
		return domain.OrderUpdate{}, fmt.Errorf("engine: order status: unknown venue status %q", entry.Status)
	}
	filled, err := decimal.NewFromString(entry.FilledQuantity)
	if err != nil {
		return domain.OrderUpdate{}, fmt.Errorf("engine: order status: parse filled quantity %q: %w", entry.FilledQuantity, err)
	}

	newState := domain.DeriveOrderState(reported, filled)
	e.setOrderState(clientOrderID, newState)

	return domain.OrderUpdate{
		ClientOrderID:   clientOrderID,
		ExchangeOrderID: entry.ID,
		TradingPair:     order.TradingPair,
		NewState:        newState,
		FilledAmount:    filled,
		Timestamp:       time.Now(),
	}, nil
}

// Fills fetches the account's fills within [from, to] and correlates them
// to tracked orders by exchange order id, trying the maker id before the
// taker id. Fills matching no tracked order are skipped. The venue charges
// no fees, so every fill carries a zero fee in the quote asset.
func (e *Engine) Fills(ctx context.Context, from, to time.Time) ([]domain.TradeFill, error) {
	mainAddress, err := e.ensureMainAddress(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine: fills: %w", err)
	}

	entries, err := e.transport.OrderFills(ctx, mainAddress, from, to)
	if err != nil {
		return nil, fmt.Errorf("engine: fills: %w", err)
	}

	fills := make([]domain.TradeFill, 0, len(entries))
	for _, entry := range entries {
		order, ok := e.orderByExchangeID(entry.MakerID)
		if !ok {
			order, ok = e.orderByExchangeID(entry.TakerID)
		}
		if !ok {
			continue
		}

		price, err := decimal.NewFromString(entry.Price)
		if err != nil {
			e.logger.Warn("skipping fill with bad price", slog.String("value", entry.Price))
			continue
		}
		amount, err := decimal.NewFromString(entry.Quantity)
		if err != nil {
			e.logger.Warn("skipping fill with bad quantity", slog.String("value", entry.Quantity))
			continue
		}

		fills = append(fills, domain.TradeFill{
			TradeID:         entry.TradeID,
			ClientOrderID:   order.ClientOrderID,
			ExchangeOrderID: order.ExchangeOrderID,
			TradingPair:     order.TradingPair,
			Price:           price,
			BaseAmount:      amount,
			QuoteAmount:     price.Mul(amount),
			Fee:             e.zeroFee(order.TradingPair),
			Timestamp:       time.UnixMilli(int64(entry.Timestamp)),
		})
	}

	e.journalFills(ctx, fills)
	return fills, nil
}

// Balances fetches every balance of the account's main address. Assets the
// registry cannot resolve are skipped.
func (e *Engine) Balances(ctx context.Context) ([]domain.Balance, error) {
	mainAddress, err := e.ensureMainAddress(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine: balances: %w", err)
	}

	entries, err := e.transport.AllBalances(ctx, mainAddress)
	if err != nil {
		return nil, fmt.Errorf("engine: balances: %w", err)
	}

	balances := make([]domain.Balance, 0, len(entries))
	for _, entry := range entries {
		symbol, ok := e.AssetSymbol(entry.Asset)
		if !ok {
			e.logger.Warn("skipping balance for unknown asset", slog.String("asset", entry.Asset))
			continue
		}
		available, err := decimal.NewFromString(entry.Free)
		if err != nil {
			e.logger.Warn("skipping balance with bad free amount", slog.String("value", entry.Free))
			continue
		}
		reserved, err := decimal.NewFromString(entry.Reserved)
		if err != nil {
			e.logger.Warn("skipping balance with bad reserved amount", slog.String("value", entry.Reserved))
			continue
		}
		balances = append(balances, domain.Balance{
			Asset:     symbol,
			Available: available,
			Reserved:  reserved,
		})
	}
	return balances, nil
}

// OpenOrders fetches every resting order of the account. Orders on markets
// the registry cannot resolve are skipped.
func (e *Engine) OpenOrders(ctx context.Context) ([]domain.InFlightOrder, error) {
	mainAddress, err := e.ensureMainAddress(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine: open orders: %w", err)
	}

	entries, err := e.transport.ListOpenOrders(ctx, mainAddress)
	if err != nil {
		return nil, fmt.Errorf("engine: open orders: %w", err)
	}

	orders := make([]domain.InFlightOrder, 0, len(entries))
	for _, entry := range entries {
		pair, ok := e.PairForMarket(entry.Market)
		if !ok {
			e.logger.Warn("skipping open order on unknown market", slog.String("market", entry.Market))
			continue
		}

		side, _ := polkadex.SideFromVenue(entry.Side)
		orderType, _ := polkadex.TypeFromVenue(entry.OrderType)
		reported, ok := polkadex.OrderStateFromStatus(entry.Status)
		if !ok {
			reported = domain.OrderStateOpen
		}

		price, _ := decimal.NewFromString(entry.Price)
		amount, _ := decimal.NewFromString(entry.Quantity)
		filled, _ := decimal.NewFromString(entry.FilledQuantity)

		orders = append(orders, domain.InFlightOrder{
			ClientOrderID:   entry.ClientOrderID,
			ExchangeOrderID: entry.ID,
			TradingPair:     pair,
			Side:            side,
			Type:            orderType,
			Price:           price,
			Amount:          amount,
			State:           domain.DeriveOrderState(reported, filled),
			FilledAmount:    filled,
			CreatedAt:       time.UnixMilli(int64(entry.Timestamp)),
		})
	}
	return orders, nil
}

// Order returns a tracked in-flight order by client order id.
func (e *Engine) Order(clientOrderID string) (domain.InFlightOrder, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	order, ok := e.inflight[clientOrderID]
	if !ok {
		return domain.InFlightOrder{}, false
	}
	return *order, true
}

// TrackOrder registers an externally created order, e.g. one recovered from
// OpenOrders after a restart, so stream events can be correlated to it.
func (e *Engine) TrackOrder(order domain.InFlightOrder) {
	e.trackOrder(order)
}

func (e *Engine) trackOrder(order domain.InFlightOrder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inflight[order.ClientOrderID] = &order
	if order.ExchangeOrderID != "" {
		e.byExchangeID[order.ExchangeOrderID] = order.ClientOrderID
	}
}

func (e *Engine) orderByExchangeID(exchangeOrderID string) (domain.InFlightOrder, bool) {
	if exchangeOrderID == "" {
		return domain.InFlightOrder{}, false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	cid, ok := e.byExchangeID[exchangeOrderID]
	if !ok {
		return domain.InFlightOrder{}, false
	}
	order, ok := e.inflight[cid]
	if !ok {
		return domain.InFlightOrder{}, false
	}
	return *order, true
}

// setOrderState moves a tracked order to state. Terminal states are final;
// a late or duplicate transition out of one is discarded.
func (e *Engine) setOrderState(clientOrderID string, state domain.OrderState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if order, ok := e.inflight[clientOrderID]; ok && !order.State.IsTerminal() {
		order.State = state
	}
}

// zeroFee builds the venue's flat zero fee, denominated in the pair's quote
// asset.
func (e *Engine) zeroFee(pair domain.TradingPair) domain.Fee {
	_, quote, _ := domain.SplitTradingPair(pair)
	return domain.Fee{
		Asset:   quote,
		Percent: decimal.Zero,
		Amount:  decimal.Zero,
	}
}

func (e *Engine) journalOrder(ctx context.Context, update domain.OrderUpdate) {
	if e.orderJournal == nil {
		return
	}
	if err := e.orderJournal.Insert(ctx, update); err != nil {
		e.logger.Warn("order journal write failed",
			slog.String("client_order_id", update.ClientOrderID),
			slog.Any("error", err))
	}
}

func (e *Engine) journalFills(ctx context.Context, fills []domain.TradeFill) {
	if e.fillJournal == nil || len(fills) == 0 {
		return
	}
	if err := e.fillJournal.InsertBatch(ctx, fills); err != nil {
		e.logger.Warn("fill journal write failed",
			slog.Int("count", len(fills)),
			slog.Any("error", err))
	}
}
