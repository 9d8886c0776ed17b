// Package engine synchronizes local state with the Polkadex orderbook
// service: asset and market registries, per-market order books, account
// balances, and the lifecycle of the account's own orders.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/polkadexbot/internal/crypto"
	"github.com/alanyoungcy/polkadexbot/internal/domain"
	"github.com/alanyoungcy/polkadexbot/internal/platform/polkadex"
)

// Transport is the venue query/mutation surface the engine drives.
type Transport interface {
	AllAssets(ctx context.Context) ([]polkadex.AssetInfo, error)
	AllMarkets(ctx context.Context) ([]polkadex.MarketInfo, error)
	Orderbook(ctx context.Context, market string) ([]polkadex.OrderbookEntry, error)
	MainAccountFromProxy(ctx context.Context, proxyAccount string) (string, error)
	RecentTrades(ctx context.Context, market string, limit int) ([]polkadex.RecentTrade, error)
	AllBalances(ctx context.Context, mainAccount string) ([]polkadex.BalanceEntry, error)
	OrderFills(ctx context.Context, mainAccount string, from, to time.Time) ([]polkadex.FillEntry, error)
	PlaceOrder(ctx context.Context, order polkadex.OrderSubmission, signature polkadex.Signature) (string, error)
	CancelOrder(ctx context.Context, orderID, market, mainAddress, proxyAddress string, signature polkadex.Signature) (bool, error)
	FindOrder(ctx context.Context, mainAccount, market, orderID string) (*polkadex.OrderEntry, error)
	ListOpenOrders(ctx context.Context, mainAccount string) ([]polkadex.OrderEntry, error)
}

// Streams is the venue subscription surface.
type Streams interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, stream string) (<-chan polkadex.StreamMessage, error)
}

// Options configures an Engine. BookCache, FillJournal and OrderJournal are
// optional; a nil value disables that sink.
type Options struct {
	Transport      Transport
	Streams        Streams
	Wallet         *crypto.Wallet
	Logger         *slog.Logger
	TradingPairs   []domain.TradingPair
	TradingEnabled bool
	BookCache      domain.OrderbookCache
	FillJournal    domain.FillJournal
	OrderJournal   domain.OrderJournal
}

// Engine is the venue synchronization engine. Create it with New, call
// Start to begin streaming, and consume events through the *Events methods.
type Engine struct {
	transport      Transport
	streams        Streams
	wallet         *crypto.Wallet
	logger         *slog.Logger
	tradingPairs   []domain.TradingPair
	tradingEnabled bool
	bookCache      domain.OrderbookCache
	fillJournal    domain.FillJournal
	orderJournal   domain.OrderJournal

	mu           sync.RWMutex
	started      bool
	cancel       context.CancelFunc
	group        *errgroup.Group
	mainAddress  string
	assets       map[domain.AssetID]domain.AssetSymbol
	marketToPair map[domain.MarketSymbol]domain.TradingPair
	pairToMarket map[domain.TradingPair]domain.MarketSymbol
	rules        map[domain.TradingPair]domain.TradingRule
	books        map[domain.MarketSymbol]domain.OrderBookSnapshot
	inflight     map[string]*domain.InFlightOrder
	byExchangeID map[string]string
	lastMessage  time.Time

	bookTopic    *Topic[domain.OrderBookSnapshot]
	tradeTopic   *Topic[domain.PublicTrade]
	balanceTopic *Topic[domain.BalanceUpdate]
	orderTopic   *Topic[domain.OrderUpdate]
	fillTopic    *Topic[domain.TradeFill]
}

// New creates an engine. It performs no I/O; call Start to connect.
func New(opts Options) *Engine {
	return &Engine{
		transport:      opts.Transport,
		streams:        opts.Streams,
		wallet:         opts.Wallet,
		logger:         opts.Logger.With(slog.String("component", "engine")),
		tradingPairs:   opts.TradingPairs,
		tradingEnabled: opts.TradingEnabled,
		bookCache:      opts.BookCache,
		fillJournal:    opts.FillJournal,
		orderJournal:   opts.OrderJournal,
		assets:         make(map[domain.AssetID]domain.AssetSymbol),
		marketToPair:   make(map[domain.MarketSymbol]domain.TradingPair),
		pairToMarket:   make(map[domain.TradingPair]domain.MarketSymbol),
		rules:          make(map[domain.TradingPair]domain.TradingRule),
		books:          make(map[domain.MarketSymbol]domain.OrderBookSnapshot),
		inflight:       make(map[string]*domain.InFlightOrder),
		byExchangeID:   make(map[string]string),
		bookTopic:      NewTopic[domain.OrderBookSnapshot](),
		tradeTopic:     NewTopic[domain.PublicTrade](),
		balanceTopic:   NewTopic[domain.BalanceUpdate](),
		orderTopic:     NewTopic[domain.OrderUpdate](),
		fillTopic:      NewTopic[domain.TradeFill](),
	}
}

// Started reports whether the engine's listeners are running.
func (e *Engine) Started() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.started
}

// Start refreshes the registries, bootstraps order books, and launches the
// stream listeners. Calling Start on a running engine fails with
// ErrAlreadyStarted.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return fmt.Errorf("engine: start: %w", domain.ErrAlreadyStarted)
	}
	e.started = true
	e.mu.Unlock()

	if err := e.bootstrap(ctx); err != nil {
		e.mu.Lock()
		e.started = false
		e.mu.Unlock()
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	group, groupCtx := errgroup.WithContext(runCtx)

	e.mu.Lock()
	e.cancel = cancel
	e.group = group
	markets := make([]domain.MarketSymbol, 0, len(e.pairToMarket))
	for _, market := range e.pairToMarket {
		markets = append(markets, market)
	}
	e.mu.Unlock()

	for _, market := range markets {
		bookCh, err := e.streams.Subscribe(ctx, market+"-"+polkadex.OrderbookStreamSuffix)
		if err != nil {
			cancel()
			return fmt.Errorf("engine: subscribe book stream %s: %w", market, err)
		}
		group.Go(func() error {
			e.listenBooks(groupCtx, market, bookCh)
			return nil
		})

		tradeCh, err := e.streams.Subscribe(ctx, market+"-"+polkadex.RecentTradesStreamSuffix)
		if err != nil {
			cancel()
			return fmt.Errorf("engine: subscribe trade stream %s: %w", market, err)
		}
		group.Go(func() error {
			e.listenTrades(groupCtx, tradeCh)
			return nil
		})
	}

	if e.tradingEnabled && !e.wallet.ReadOnly() {
		mainAddress, err := e.ensureMainAddress(ctx)
		if err != nil {
			cancel()
			return fmt.Errorf("engine: resolve main account: %w", err)
		}

		// Private events can arrive on either account's stream.
		for _, address := range []string{e.wallet.Address(), mainAddress} {
			ch, err := e.streams.Subscribe(ctx, address)
			if err != nil {
				cancel()
				return fmt.Errorf("engine: subscribe private stream: %w", err)
			}
			group.Go(func() error {
				e.listenPrivate(groupCtx, ch)
				return nil
			})
		}
	}

	e.logger.Info("engine started",
		slog.Int("markets", len(markets)),
		slog.Bool("trading", e.tradingEnabled && !e.wallet.ReadOnly()))
	return nil
}

// Stop cancels the stream listeners and waits for them to drain. The engine
// can be started again afterwards.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return fmt.Errorf("engine: stop: %w", domain.ErrNotStarted)
	}
	cancel := e.cancel
	group := e.group
	e.started = false
	e.cancel = nil
	e.group = nil
	e.mu.Unlock()

	cancel()

	done := make(chan error, 1)
	go func() { done <- group.Wait() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("engine: stop: %w", ctx.Err())
	}
}

// bootstrap loads the registries, connects the stream session, and primes
// one order book per configured trading pair.
func (e *Engine) bootstrap(ctx context.Context) error {
	if err := e.RefreshAssets(ctx); err != nil {
		return err
	}
	if err := e.RefreshSymbols(ctx); err != nil {
		return err
	}
	if err := e.RefreshTradingRules(ctx); err != nil {
		return err
	}

	if err := e.streams.Connect(ctx); err != nil {
		return fmt.Errorf("engine: connect streams: %w", err)
	}

	e.mu.RLock()
	pairs := make([]domain.TradingPair, len(e.tradingPairs))
	copy(pairs, e.tradingPairs)
	e.mu.RUnlock()

	for _, pair := range pairs {
		market, ok := e.MarketForPair(pair)
		if !ok {
			return fmt.Errorf("engine: %w: %s", domain.ErrUnknownMarket, pair)
		}
		if _, err := e.ResyncBook(ctx, pair); err != nil {
			return fmt.Errorf("engine: prime book %s: %w", market, err)
		}
	}
	return nil
}

// ensureMainAddress resolves and caches the funding account registered for
// the wallet's proxy address.
func (e *Engine) ensureMainAddress(ctx context.Context) (string, error) {
	e.mu.RLock()
	cached := e.mainAddress
	e.mu.RUnlock()
	if cached != "" {
		return cached, nil
	}

	main, err := e.transport.MainAccountFromProxy(ctx, e.wallet.Address())
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	e.mainAddress = main
	e.mu.Unlock()
	return main, nil
}

// ExchangeStatus reports whether the venue is reachable, judged by whether
// the asset registry responds with entries.
func (e *Engine) ExchangeStatus(ctx context.Context) (bool, error) {
	assets, err := e.transport.AllAssets(ctx)
	if err != nil {
		return false, fmt.Errorf("engine: exchange status: %w", err)
	}
	return len(assets) > 0, nil
}

// LastReceivedAt returns the arrival time of the most recent private stream
// event, zero when none has arrived yet.
func (e *Engine) LastReceivedAt() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastMessage
}

// BookEvents emits the book state after every applied diff or resync.
func (e *Engine) BookEvents() <-chan domain.OrderBookSnapshot { return e.bookTopic.Subscribe() }

// TradeEvents emits public trades from the subscribed markets.
func (e *Engine) TradeEvents() <-chan domain.PublicTrade { return e.tradeTopic.Subscribe() }

// BalanceEvents emits balance changes for the account.
func (e *Engine) BalanceEvents() <-chan domain.BalanceUpdate { return e.balanceTopic.Subscribe() }

// OrderEvents emits lifecycle updates for the account's orders.
func (e *Engine) OrderEvents() <-chan domain.OrderUpdate { return e.orderTopic.Subscribe() }

// FillEvents emits fills on the account's orders.
func (e *Engine) FillEvents() <-chan domain.TradeFill { return e.fillTopic.Subscribe() }

func (e *Engine) touch() {
	e.mu.Lock()
	e.lastMessage = time.Now()
	e.mu.Unlock()
}
