package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Chat    ChatConfig
	Context ContextConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
	// PublicURL is sent as HTTP-Referer to the completion provider.
	PublicURL string
}

type StorageConfig struct {
	Backend       string
	DataDir       string
	MongoURI      string
	MongoDatabase string
}

type ChatConfig struct {
	BaseURL       string
	Model         string
	Timeout       string
	RatePerMinute float64
	RateBurst     int
}

type ContextConfig struct {
	DefaultEmail string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:      4000,
			PublicURL: "http://localhost:3000",
		},
		Storage: StorageConfig{
			Backend:       BackendSQLite,
			DataDir:       defaultDataDir(),
			MongoDatabase: "portfolio_db",
		},
		Chat: ChatConfig{
			BaseURL:       "https://openrouter.ai/api/v1",
			Model:         "deepseek/deepseek-chat-v3-0324:free",
			Timeout:       "60s",
			RatePerMinute: 20,
			RateBurst:     5,
		},
		Context: ContextConfig{
			DefaultEmail: "Not specified",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ChatTimeout returns Chat.Timeout as a duration. Validated by Load.
func (c Config) ChatTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Chat.Timeout)
	return d
}

// SlogLevel maps Log.Level to a slog level; unknown values mean info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load builds the configuration in layers: defaults, the JSON config file
// at $XDG_CONFIG_HOME/folio/config.json, a .env file in the working
// directory, and finally FOLIO_* environment variables. Secrets are read
// from the environment or the secrets file only.
func Load() (Config, error) {
	return loadWith(newFileBackend(ConfigFilePath()), newFileSecrets(SecretsFilePath()), ".env")
}

func loadWith(b ConfigBackend, secrets secretStore, dotenvPath string) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	// godotenv never overrides variables that are already set, so the real
	// environment still wins over .env.
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", dotenvPath, err)
		}
	}

	applyEnvOverrides(&cfg)
	applySecrets(&cfg, secrets)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	switch cfg.Storage.Backend {
	case BackendSQLite:
	case BackendMongo:
		if cfg.Storage.MongoURI == "" {
			return fmt.Errorf("missing required config: storage.mongo_uri. " +
				"Set it via environment variable FOLIO_STORAGE_MONGO_URI or MONGODB_URI, " +
				"or run `folio config set-secret storage.mongo_uri <uri>`")
		}
	default:
		return fmt.Errorf("invalid storage.backend %q: want %q or %q", cfg.Storage.Backend, BackendSQLite, BackendMongo)
	}

	if d, err := time.ParseDuration(cfg.Chat.Timeout); err != nil || d <= 0 {
		return fmt.Errorf("invalid chat.timeout %q: want a positive duration such as 30s", cfg.Chat.Timeout)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", cfg.Server.Port)
	}
	return nil
}
