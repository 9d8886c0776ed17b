// Package config defines the top-level configuration for the polkadex bot
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by PDEXBOT_* environment variables.
type Config struct {
	Wallet    WalletConfig    `toml:"wallet"`
	Polkadex  PolkadexConfig  `toml:"polkadex"`
	Engine    EngineConfig    `toml:"engine"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Redis     RedisConfig     `toml:"redis"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// WalletConfig holds the trading account credentials. An empty seed phrase
// puts the connector in read-only mode: market data works, order placement
// does not.
type WalletConfig struct {
	SeedPhrase string `toml:"seed_phrase"`
}

// PolkadexConfig holds the venue's GraphQL endpoints.
type PolkadexConfig struct {
	GraphQLURL string `toml:"graphql_url"`
	WsURL      string `toml:"ws_url"`
	// AuthToken overrides the default of authenticating as the wallet's
	// proxy address. Leave empty in normal operation.
	AuthToken string `toml:"auth_token"`
}

// EngineConfig holds the synchronization engine parameters.
type EngineConfig struct {
	// TradingPairs lists the markets to stream, in BASE-QUOTE form,
	// e.g. ["PDEX-USDT"].
	TradingPairs   []string `toml:"trading_pairs"`
	TradingEnabled bool     `toml:"trading_enabled"`
	// FillPollInterval is how often the fill reconciliation poll runs.
	FillPollInterval duration `toml:"fill_poll_interval"`
	// FillLookback bounds the first poll window after a cold start.
	FillLookback duration `toml:"fill_lookback"`
}

// RateLimitConfig holds the venue rate limit budgets. Overrides maps a
// limit id to its requests-per-window budget.
type RateLimitConfig struct {
	DefaultRequests int            `toml:"default_requests"`
	DefaultWindow   duration       `toml:"default_window"`
	Overrides       map[string]int `toml:"overrides"`
	// Shared coordinates budgets through Redis so several processes on one
	// account stay inside the venue's limits. Requires redis.enabled.
	Shared bool `toml:"shared"`
}

// RedisConfig holds Redis connection parameters for the book mirror and the
// shared rate limiter.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// PostgresConfig holds PostgreSQL connection parameters for the fill and
// order journals.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Polkadex: PolkadexConfig{
			GraphQLURL: "https://yx375ldozvcvthjk2nczch3fhq.appsync-api.eu-central-1.amazonaws.com/graphql",
			WsURL:      "wss://yx375ldozvcvthjk2nczch3fhq.appsync-realtime-api.eu-central-1.amazonaws.com/graphql",
		},
		Engine: EngineConfig{
			TradingPairs:     []string{"PDEX-USDT"},
			TradingEnabled:   false,
			FillPollInterval: duration{60 * time.Second},
			FillLookback:     duration{24 * time.Hour},
		},
		RateLimit: RateLimitConfig{
			DefaultRequests: 10,
			DefaultWindow:   duration{time.Second},
			Overrides:       map[string]int{},
			Shared:          false,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Mode:     "monitor",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"trade":   true,
	"monitor": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: trade, monitor)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Trading requires a signing key.
	if c.Mode == "trade" && strings.TrimSpace(c.Wallet.SeedPhrase) == "" {
		errs = append(errs, "wallet: seed_phrase must be set for mode trade")
	}

	// Polkadex endpoints
	if c.Polkadex.GraphQLURL == "" {
		errs = append(errs, "polkadex: graphql_url must not be empty")
	}
	if c.Polkadex.WsURL == "" {
		errs = append(errs, "polkadex: ws_url must not be empty")
	}

	// Engine
	if len(c.Engine.TradingPairs) == 0 {
		errs = append(errs, "engine: trading_pairs must list at least one market")
	}
	for _, pair := range c.Engine.TradingPairs {
		if !strings.Contains(pair, "-") {
			errs = append(errs, fmt.Sprintf("engine: trading pair %q is not in BASE-QUOTE form", pair))
		}
	}
	if c.Engine.FillPollInterval.Duration <= 0 {
		errs = append(errs, "engine: fill_poll_interval must be positive")
	}

	// Rate limits
	if c.RateLimit.DefaultRequests < 1 {
		errs = append(errs, "rate_limit: default_requests must be >= 1")
	}
	if c.RateLimit.DefaultWindow.Duration <= 0 {
		errs = append(errs, "rate_limit: default_window must be positive")
	}
	if c.RateLimit.Shared && !c.Redis.Enabled {
		errs = append(errs, "rate_limit: shared requires redis.enabled")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
