package config

// RedactedConfig returns a shallow copy of cfg with sensitive fields replaced
// by the redaction placeholder "***". Use this when logging or printing the
// active configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg // shallow copy of the top-level struct

	// Wallet
	out.Wallet = cfg.Wallet
	redact(&out.Wallet.SeedPhrase)

	// Polkadex
	out.Polkadex = cfg.Polkadex
	redact(&out.Polkadex.AuthToken)

	// Redis
	out.Redis = cfg.Redis
	redact(&out.Redis.Password)

	// Postgres
	out.Postgres = cfg.Postgres
	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)

	// Copy slices and maps so callers cannot mutate the original through the
	// redacted copy.
	if cfg.Engine.TradingPairs != nil {
		out.Engine.TradingPairs = make([]string, len(cfg.Engine.TradingPairs))
		copy(out.Engine.TradingPairs, cfg.Engine.TradingPairs)
	}
	if cfg.RateLimit.Overrides != nil {
		out.RateLimit.Overrides = make(map[string]int, len(cfg.RateLimit.Overrides))
		for k, v := range cfg.RateLimit.Overrides {
			out.RateLimit.Overrides[k] = v
		}
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
