package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polkadexbot/internal/crypto"
	"github.com/alanyoungcy/polkadexbot/internal/domain"
	"github.com/alanyoungcy/polkadexbot/internal/platform/polkadex"
)

func limitOrder() OrderRequest {
	return OrderRequest{
		TradingPair: testPair,
		Side:        domain.OrderSideBuy,
		Type:        domain.OrderTypeLimit,
		Price:       decimal.RequireFromString("1.50"),
		Amount:      decimal.RequireFromString("2.000"),
	}
}

func TestNewClientOrderID(t *testing.T) {
	id := NewClientOrderID()
	assert.True(t, strings.HasPrefix(id, "0x"))
	assert.Len(t, id, 66)
	assert.NotEqual(t, id, NewClientOrderID())
}

func TestPlaceOrder(t *testing.T) {
	transport := defaultTransport()
	e := newTestEngine(t, transport, nil, true)
	loadRegistries(t, e)

	order, err := e.PlaceOrder(context.Background(), limitOrder())
	require.NoError(t, err)

	assert.Equal(t, testExchangeID, order.ExchangeOrderID)
	assert.Equal(t, domain.OrderStateOpen, order.State)
	assert.NotEmpty(t, order.ClientOrderID)
	// Quantities are normalized before signing and submission.
	assert.Equal(t, "1.5", order.Price.String())
	assert.Equal(t, "2", order.Amount.String())

	sub := transport.lastSubmission
	assert.Equal(t, testMarket, sub.Pair)
	assert.Equal(t, "Bid", sub.Side)
	assert.Equal(t, "LIMIT", sub.OrderType)
	assert.Equal(t, "0", sub.QuoteOrderQty)
	assert.Equal(t, "1.5", sub.Price)
	assert.Equal(t, "2", sub.Qty)
	assert.Equal(t, e.wallet.Address(), sub.User)
	assert.Equal(t, testMainAccount, sub.MainAccount)
	assert.NotEmpty(t, transport.lastSignature[crypto.SignatureScheme])

	tracked, ok := e.Order(order.ClientOrderID)
	require.True(t, ok)
	assert.Equal(t, testExchangeID, tracked.ExchangeOrderID)
}

func TestPlaceOrderReadOnlyWallet(t *testing.T) {
	transport := defaultTransport()
	wallet, err := crypto.NewWallet("")
	require.NoError(t, err)
	e := New(Options{
		Transport:    transport,
		Streams:      newFakeStreams(),
		Wallet:       wallet,
		Logger:       testLogger(),
		TradingPairs: []domain.TradingPair{testPair},
	})

	_, err = e.PlaceOrder(context.Background(), limitOrder())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrReadOnlyWallet))
}

func TestPlaceOrderUnknownPair(t *testing.T) {
	transport := defaultTransport()
	e := newTestEngine(t, transport, nil, true)
	loadRegistries(t, e)

	req := limitOrder()
	req.TradingPair = "BTC-USDT"
	_, err := e.PlaceOrder(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnknownMarket))
}

func TestPlaceOrderRejected(t *testing.T) {
	transport := defaultTransport()
	transport.placeErr = domain.ErrPlacementFailed
	e := newTestEngine(t, transport, nil, true)
	loadRegistries(t, e)

	_, err := e.PlaceOrder(context.Background(), limitOrder())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrPlacementFailed))
}

func TestCancelOrder(t *testing.T) {
	transport := defaultTransport()
	e := newTestEngine(t, transport, nil, true)
	loadRegistries(t, e)

	order, err := e.PlaceOrder(context.Background(), limitOrder())
	require.NoError(t, err)

	state, err := e.CancelOrder(context.Background(), order.ClientOrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatePendingCancel, state)

	args := transport.lastCancelArgs
	require.Len(t, args, 4)
	assert.Equal(t, testExchangeID, args[0])
	assert.Equal(t, testMarket, args[1])
	assert.Equal(t, testMainAccount, args[2])
	assert.Equal(t, e.wallet.Address(), args[3])
}

func TestCancelOrderNotActiveIsIdempotent(t *testing.T) {
	transport := defaultTransport()
	transport.cancelErr = errors.New("graphql error: " + polkadex.OrderNotActiveMessage)
	e := newTestEngine(t, transport, nil, true)
	loadRegistries(t, e)

	order, err := e.PlaceOrder(context.Background(), limitOrder())
	require.NoError(t, err)

	state, err := e.CancelOrder(context.Background(), order.ClientOrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStateCanceled, state)

	tracked, _ := e.Order(order.ClientOrderID)
	assert.Equal(t, domain.OrderStateCanceled, tracked.State)
}

func TestCancelOrderUntracked(t *testing.T) {
	transport := defaultTransport()
	e := newTestEngine(t, transport, nil, true)
	loadRegistries(t, e)

	_, err := e.CancelOrder(context.Background(), "0xmissing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrOrderNotFound))
}

func TestSetOrderStateTerminalIsFinal(t *testing.T) {
	e := newTestEngine(t, defaultTransport(), nil, true)
	loadRegistries(t, e)

	for _, terminal := range []domain.OrderState{
		domain.OrderStateFilled,
		domain.OrderStateCanceled,
		domain.OrderStateFailed,
	} {
		cid := "0x" + string(terminal)
		e.TrackOrder(domain.InFlightOrder{
			ClientOrderID: cid,
			TradingPair:   testPair,
			State:         terminal,
		})

		e.setOrderState(cid, domain.OrderStateOpen)

		tracked, ok := e.Order(cid)
		require.True(t, ok)
		assert.Equal(t, terminal, tracked.State)
	}
}

func TestOrderStatus(t *testing.T) {
	transport := defaultTransport()
	e := newTestEngine(t, transport, nil, true)
	loadRegistries(t, e)

	order, err := e.PlaceOrder(context.Background(), limitOrder())
	require.NoError(t, err)

	transport.foundOrder = &polkadex.OrderEntry{
		ID:             testExchangeID,
		Market:         testMarket,
		Status:         "OPEN",
		FilledQuantity: "0.5",
	}

	update, err := e.OrderStatus(context.Background(), order.ClientOrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatePartiallyFilled, update.NewState)
	assert.Equal(t, "0.5", update.FilledAmount.String())

	tracked, _ := e.Order(order.ClientOrderID)
	assert.Equal(t, domain.OrderStatePartiallyFilled, tracked.State)
}

func TestOrderStatusNotIndexed(t *testing.T) {
	transport := defaultTransport()
	transport.foundOrder = nil
	e := newTestEngine(t, transport, nil, true)
	loadRegistries(t, e)

	order, err := e.PlaceOrder(context.Background(), limitOrder())
	require.NoError(t, err)

	_, err = e.OrderStatus(context.Background(), order.ClientOrderID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrOrderNotFound))
}

func TestFillsCorrelation(t *testing.T) {
	transport := defaultTransport()
	e := newTestEngine(t, transport, nil, true)
	loadRegistries(t, e)

	order, err := e.PlaceOrder(context.Background(), limitOrder())
	require.NoError(t, err)

	transport.fills = []polkadex.FillEntry{
		{TradeID: "t1", MakerID: testExchangeID, Price: "100", Quantity: "2", Timestamp: 1700000000000},
		{TradeID: "t2", TakerID: testExchangeID, Price: "101", Quantity: "1", Timestamp: 1700000001000},
		{TradeID: "t3", MakerID: "0xother", TakerID: "0xother2", Price: "1", Quantity: "1"},
	}

	fills, err := e.Fills(context.Background(), time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	require.Len(t, fills, 2)

	assert.Equal(t, "t1", fills[0].TradeID)
	assert.Equal(t, order.ClientOrderID, fills[0].ClientOrderID)
	assert.Equal(t, "200", fills[0].QuoteAmount.String())
	assert.Equal(t, "USDT", fills[0].Fee.Asset)
	assert.True(t, fills[0].Fee.Amount.IsZero())
	assert.True(t, fills[0].Fee.Percent.IsZero())
	assert.Equal(t, int64(1700000000000), fills[0].Timestamp.UnixMilli())

	assert.Equal(t, "t2", fills[1].TradeID)
}

func TestBalances(t *testing.T) {
	transport := defaultTransport()
	transport.balances = []polkadex.BalanceEntry{
		{Asset: "123", Free: "10.5", Reserved: "2"},
		{Asset: "polkadex", Free: "100", Reserved: "0"},
		{Asset: "999", Free: "1", Reserved: "0"}, // not in the registry
	}
	e := newTestEngine(t, transport, nil, true)
	loadRegistries(t, e)

	balances, err := e.Balances(context.Background())
	require.NoError(t, err)
	require.Len(t, balances, 2)

	assert.Equal(t, "USDT", balances[0].Asset)
	assert.Equal(t, "10.5", balances[0].Available.String())
	assert.Equal(t, "12.5", balances[0].Total().String())
	assert.Equal(t, "PDEX", balances[1].Asset)
}

func TestOpenOrders(t *testing.T) {
	transport := defaultTransport()
	transport.openOrders = []polkadex.OrderEntry{
		{
			ClientOrderID:  "0xc1",
			ID:             "0xe1",
			Market:         testMarket,
			Side:           "Ask",
			OrderType:      "LIMIT",
			Status:         "OPEN",
			Price:          "2",
			Quantity:       "5",
			FilledQuantity: "1",
			Timestamp:      1700000000000,
		},
		{ClientOrderID: "0xc2", Market: "unknown-market", Status: "OPEN"},
	}
	e := newTestEngine(t, transport, nil, true)
	loadRegistries(t, e)

	orders, err := e.OpenOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)

	order := orders[0]
	assert.Equal(t, testPair, order.TradingPair)
	assert.Equal(t, domain.OrderSideSell, order.Side)
	assert.Equal(t, domain.OrderStatePartiallyFilled, order.State)
	assert.Equal(t, "1", order.FilledAmount.String())

	// Recovered orders become trackable for stream correlation.
	e.TrackOrder(order)
	tracked, ok := e.Order("0xc1")
	assert.True(t, ok)
	assert.Equal(t, "0xe1", tracked.ExchangeOrderID)
}
