package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies PDEXBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known PDEXBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// --- Wallet ---
	setStr(&cfg.Wallet.SeedPhrase, "PDEXBOT_WALLET_SEED_PHRASE")

	// --- Polkadex ---
	setStr(&cfg.Polkadex.GraphQLURL, "PDEXBOT_POLKADEX_GRAPHQL_URL")
	setStr(&cfg.Polkadex.WsURL, "PDEXBOT_POLKADEX_WS_URL")
	setStr(&cfg.Polkadex.AuthToken, "PDEXBOT_POLKADEX_AUTH_TOKEN")

	// --- Engine ---
	setStringSlice(&cfg.Engine.TradingPairs, "PDEXBOT_ENGINE_TRADING_PAIRS")
	setBool(&cfg.Engine.TradingEnabled, "PDEXBOT_ENGINE_TRADING_ENABLED")
	setDuration(&cfg.Engine.FillPollInterval, "PDEXBOT_ENGINE_FILL_POLL_INTERVAL")
	setDuration(&cfg.Engine.FillLookback, "PDEXBOT_ENGINE_FILL_LOOKBACK")

	// --- Rate limits ---
	setInt(&cfg.RateLimit.DefaultRequests, "PDEXBOT_RATE_LIMIT_DEFAULT_REQUESTS")
	setDuration(&cfg.RateLimit.DefaultWindow, "PDEXBOT_RATE_LIMIT_DEFAULT_WINDOW")
	setBool(&cfg.RateLimit.Shared, "PDEXBOT_RATE_LIMIT_SHARED")

	// --- Redis ---
	setBool(&cfg.Redis.Enabled, "PDEXBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "PDEXBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PDEXBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PDEXBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "PDEXBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "PDEXBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "PDEXBOT_REDIS_TLS_ENABLED")

	// --- Postgres ---
	setBool(&cfg.Postgres.Enabled, "PDEXBOT_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "PDEXBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "PDEXBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "PDEXBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "PDEXBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "PDEXBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "PDEXBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "PDEXBOT_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "PDEXBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "PDEXBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "PDEXBOT_POSTGRES_RUN_MIGRATIONS")

	// --- Top-level ---
	setStr(&cfg.Mode, "PDEXBOT_MODE")
	setStr(&cfg.LogLevel, "PDEXBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
