package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "SHOPPER_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "storage.data_dir", typ: kString, env: "SHOPPER_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "SHOPPER_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "reasoner.provider", typ: kString, env: "SHOPPER_REASONER_PROVIDER",
		apply:   func(cfg *Config, v any) { cfg.Reasoner.Provider = v.(string) },
		extract: func(cfg Config) any { return cfg.Reasoner.Provider },
	},
	{
		key: "reasoner.base_url", typ: kString, env: "SHOPPER_REASONER_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Reasoner.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Reasoner.BaseURL },
	},
	{
		key: "reasoner.model", typ: kString, env: "SHOPPER_REASONER_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Reasoner.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Reasoner.Model },
	},
	{
		key: "reasoner.api_key", typ: kString, env: "SHOPPER_REASONER_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Reasoner.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Reasoner.APIKey },
	},
	{
		key: "catalog.seed_count", typ: kInt, env: "SHOPPER_CATALOG_SEED_COUNT",
		apply:   func(cfg *Config, v any) { cfg.Catalog.SeedCount = v.(int) },
		extract: func(cfg Config) any { return cfg.Catalog.SeedCount },
	},
	{
		key: "catalog.seed", typ: kInt, env: "SHOPPER_CATALOG_SEED",
		apply:   func(cfg *Config, v any) { cfg.Catalog.Seed = v.(int) },
		extract: func(cfg Config) any { return cfg.Catalog.Seed },
	},
	{
		key: "session.ttl", typ: kString, env: "SHOPPER_SESSION_TTL",
		apply:   func(cfg *Config, v any) { cfg.Session.TTL = v.(string) },
		extract: func(cfg Config) any { return cfg.Session.TTL },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

// applyEnvOverrides applies every key whose environment variable getenv
// reports as non-empty.
func applyEnvOverrides(cfg *Config, getenv func(string) string) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
