package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/polkadexbot/internal/cache/redis"
	"github.com/alanyoungcy/polkadexbot/internal/config"
	"github.com/alanyoungcy/polkadexbot/internal/crypto"
	"github.com/alanyoungcy/polkadexbot/internal/domain"
	"github.com/alanyoungcy/polkadexbot/internal/engine"
	"github.com/alanyoungcy/polkadexbot/internal/platform/polkadex"
	"github.com/alanyoungcy/polkadexbot/internal/ratelimit"
	"github.com/alanyoungcy/polkadexbot/internal/store/postgres"
)

// Dependencies bundles everything the application modes need to operate. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Wallet  *crypto.Wallet
	Client  *polkadex.Client
	Session *polkadex.Session
	Engine  *engine.Engine

	RateLimiter  domain.RateLimiter
	BookCache    domain.OrderbookCache
	FillJournal  domain.FillJournal
	OrderJournal domain.OrderJournal
}

// venueLimits converts the configured per-query budgets into limiter form.
// Every override shares the default window; the venue quotes its budgets as
// requests per second.
func venueLimits(cfg config.RateLimitConfig) (ratelimit.Limit, map[string]ratelimit.Limit) {
	window := cfg.DefaultWindow.Duration
	if window <= 0 {
		window = time.Second
	}
	def := ratelimit.Limit{Requests: cfg.DefaultRequests, Window: window}
	if def.Requests <= 0 {
		def.Requests = 10
	}

	overrides := make(map[string]ratelimit.Limit, len(cfg.Overrides))
	for id, requests := range cfg.Overrides {
		if requests <= 0 {
			continue
		}
		overrides[id] = ratelimit.Limit{Requests: requests, Window: window}
	}
	return def, overrides
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Wallet ---
	wallet, err := crypto.NewWallet(cfg.Wallet.SeedPhrase)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: wallet: %w", err)
	}
	deps.Wallet = wallet

	// The venue authenticates GraphQL calls with the caller's proxy account
	// address unless an explicit token is configured.
	authToken := cfg.Polkadex.AuthToken
	if authToken == "" {
		authToken = wallet.Address()
	}

	// --- Redis (book mirror and shared rate limiter) ---
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.New(ctx, redis.Config{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.BookCache = redis.NewOrderbookCache(redisClient)
	}

	// --- Rate limiter ---
	def, overrides := venueLimits(cfg.RateLimit)
	if cfg.RateLimit.Shared && redisClient != nil {
		deps.RateLimiter = redis.NewRateLimiter(redisClient, def, overrides)
	} else {
		deps.RateLimiter = ratelimit.NewLocalLimiter(def, overrides)
	}

	// --- PostgreSQL (fill and order journals) ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.Config{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.FillJournal = postgres.NewFillStore(pool)
		deps.OrderJournal = postgres.NewOrderStore(pool)
	}

	// --- Venue transport ---
	deps.Client = polkadex.NewClient(cfg.Polkadex.GraphQLURL, authToken, deps.RateLimiter)
	deps.Session = polkadex.NewSession(cfg.Polkadex.WsURL, authToken, logger)
	closers = append(closers, func() { _ = deps.Session.Close() })

	// --- Engine ---
	deps.Engine = engine.New(engine.Options{
		Transport:      deps.Client,
		Streams:        deps.Session,
		Wallet:         wallet,
		Logger:         logger,
		TradingPairs:   cfg.Engine.TradingPairs,
		TradingEnabled: cfg.Engine.TradingEnabled,
		BookCache:      deps.BookCache,
		FillJournal:    deps.FillJournal,
		OrderJournal:   deps.OrderJournal,
	})

	return deps, cleanup, nil
}
