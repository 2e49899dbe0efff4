package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kFloat
)

type keySpec struct {
	key string
	typ keyType
	env string
	// alias is an extra environment variable honoured when env is unset.
	alias   string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "FOLIO_SERVER_PORT", alias: "PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.public_url", typ: kString, env: "FOLIO_SERVER_PUBLIC_URL", alias: "NEXT_PUBLIC_SITE_URL",
		apply:   func(cfg *Config, v any) { cfg.Server.PublicURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.PublicURL },
	},
	{
		key: "storage.backend", typ: kString, env: "FOLIO_STORAGE_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.Storage.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.Backend },
	},
	{
		key: "storage.data_dir", typ: kString, env: "FOLIO_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "storage.mongo_uri", typ: kString, env: "FOLIO_STORAGE_MONGO_URI", alias: "MONGODB_URI",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Storage.MongoURI = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.MongoURI },
	},
	{
		key: "storage.mongo_database", typ: kString, env: "FOLIO_STORAGE_MONGO_DATABASE", alias: "MONGODB_DB_NAME",
		apply:   func(cfg *Config, v any) { cfg.Storage.MongoDatabase = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.MongoDatabase },
	},
	{
		key: "chat.base_url", typ: kString, env: "FOLIO_CHAT_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Chat.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Chat.BaseURL },
	},
	{
		key: "chat.model", typ: kString, env: "FOLIO_CHAT_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Chat.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Chat.Model },
	},
	{
		key: "chat.timeout", typ: kString, env: "FOLIO_CHAT_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Chat.Timeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Chat.Timeout },
	},
	{
		key: "chat.rate_per_minute", typ: kFloat, env: "FOLIO_CHAT_RATE_PER_MINUTE",
		apply:   func(cfg *Config, v any) { cfg.Chat.RatePerMinute = v.(float64) },
		extract: func(cfg Config) any { return cfg.Chat.RatePerMinute },
	},
	{
		key: "chat.rate_burst", typ: kInt, env: "FOLIO_CHAT_RATE_BURST",
		apply:   func(cfg *Config, v any) { cfg.Chat.RateBurst = v.(int) },
		extract: func(cfg Config) any { return cfg.Chat.RateBurst },
	},
	{
		key: "context.default_email", typ: kString, env: "FOLIO_CONTEXT_DEFAULT_EMAIL",
		apply:   func(cfg *Config, v any) { cfg.Context.DefaultEmail = v.(string) },
		extract: func(cfg Config) any { return cfg.Context.DefaultEmail },
	},
	{
		key: "log.level", typ: kString, env: "FOLIO_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func findSpec(key string) (keySpec, bool) {
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
		case kFloat:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					s.apply(cfg, f)
				} else {
					slog.Warn("could not parse float from config key, using default", "key", s.key, "value", v, "error", err)
				}
			}
		}
	}
	return nil
}

func lookupEnv(s keySpec) (name, raw string) {
	if raw := os.Getenv(s.env); raw != "" {
		return s.env, raw
	}
	if s.alias != "" {
		if raw := os.Getenv(s.alias); raw != "" {
			return s.alias, raw
		}
	}
	return "", ""
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		name, raw := lookupEnv(s)
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
				slog.Warn("could not parse integer from env var, using default", "env", name, "value", raw, "error", err)
			}
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				slog.Warn("could not parse float from env var, using default", "env", name, "value", raw, "error", err)
			}
		}
	}
}

// applySecrets fills secret keys the environment left empty from the
// secrets file.
func applySecrets(cfg *Config, secrets secretStore) {
	for _, s := range specs {
		if !s.secret || s.typ != kString {
			continue
		}
		if s.extract(*cfg).(string) != "" {
			continue
		}
		if v, err := secrets.Get(s.key); err == nil {
			s.apply(cfg, v)
		}
	}
}
