package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kDuration
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
		key: "server.port", typ: kInt, env: "HERACLES_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.api_token", typ: kString, env: "HERACLES_API_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.APIToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.APIToken },
	},
	{
		key: "storage.data_dir", typ: kString, env: "HERACLES_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "scenario.path", typ: kString, env: "HERACLES_AI_SCENARIO",
		apply:   func(cfg *Config, v any) { cfg.Scenario.Path = v.(string) },
		extract: func(cfg Config) any { return cfg.Scenario.Path },
	},
	{
		key: "session.max_sessions", typ: kInt, env: "HERACLES_SESSION_MAX_SESSIONS",
		apply:   func(cfg *Config, v any) { cfg.Session.MaxSessions = v.(int) },
		extract: func(cfg Config) any { return cfg.Session.MaxSessions },
	},
	{
		key: "session.max_hops", typ: kInt, env: "HERACLES_SESSION_MAX_HOPS",
		apply:   func(cfg *Config, v any) { cfg.Session.MaxHops = v.(int) },
		extract: func(cfg Config) any { return cfg.Session.MaxHops },
	},
	{
		key: "catalog.base_url", typ: kString, env: "HERACLES_WGER_API_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Catalog.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Catalog.BaseURL },
	},
	{
		key: "catalog.api_key", typ: kString, env: "HERACLES_WGER_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Catalog.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Catalog.APIKey },
	},
	{
		key: "catalog.language", typ: kString, env: "HERACLES_WGER_ENGLISH_LANGUAGE_ID",
		apply:   func(cfg *Config, v any) { cfg.Catalog.Language = v.(string) },
		extract: func(cfg Config) any { return cfg.Catalog.Language },
	},
	{
		key: "catalog.timeout", typ: kDuration, env: "HERACLES_CATALOG_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Catalog.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Catalog.Timeout },
	},
	{
		key: "catalog.page_size", typ: kInt, env: "HERACLES_CATALOG_PAGE_SIZE",
		apply:   func(cfg *Config, v any) { cfg.Catalog.PageSize = v.(int) },
		extract: func(cfg Config) any { return cfg.Catalog.PageSize },
	},
	{
		key: "catalog.requests_per_min", typ: kInt, env: "HERACLES_CATALOG_REQUESTS_PER_MIN",
		apply:   func(cfg *Config, v any) { cfg.Catalog.RequestsPerMin = v.(int) },
		extract: func(cfg Config) any { return cfg.Catalog.RequestsPerMin },
	},
	{
		key: "ollama.base_url", typ: kString, env: "HERACLES_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.BaseURL },
	},
	{
		key: "ollama.model", typ: kString, env: "HERACLES_OLLAMA_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.Model },
	},
	{
		key: "log.level", typ: kString, env: "HERACLES_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func lookupSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
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
		case kDuration:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				d, err := time.ParseDuration(v)
				if err != nil {
					return fmt.Errorf("invalid duration for %s: %w", s.key, err)
				}
				s.apply(cfg, d)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
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
		case kDuration:
			if d, err := time.ParseDuration(raw); err == nil {
				s.apply(cfg, d)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse duration from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
