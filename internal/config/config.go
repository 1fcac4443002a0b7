package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Log      LogConfig
	Reasoner ReasonerConfig
	Catalog  CatalogConfig
	Session  SessionConfig
}

type ServerConfig struct {
	Port int `validate:"min=1,max=65535"`
}

type StorageConfig struct {
	DataDir string `validate:"required"`
}

type LogConfig struct {
	Level string `validate:"oneof=debug info warn error"`
}

type ReasonerConfig struct {
	Provider string `validate:"oneof=rules remote auto"`
	BaseURL  string `validate:"required,url"`
	Model    string `validate:"required"`
	APIKey   string
}

type CatalogConfig struct {
	SeedCount int `validate:"min=0"`
	Seed      int
}

type SessionConfig struct {
	TTL string
}

const defaultSessionTTL = 30 * time.Minute

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 8000,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
		Reasoner: ReasonerConfig{
			Provider: "auto",
			BaseURL:  "https://api.groq.com/openai/v1",
			Model:    "llama-3.1-8b-instant",
		},
		Catalog: CatalogConfig{
			SeedCount: 300,
			Seed:      42,
		},
		Session: SessionConfig{
			TTL: defaultSessionTTL.String(),
		},
	}
}

// SessionTTL parses Session.TTL, falling back to 30m when it is invalid.
// Zero disables idle eviction.
func (c Config) SessionTTL() time.Duration {
	d, err := time.ParseDuration(c.Session.TTL)
	if err != nil || d < 0 {
		slog.Warn("invalid session ttl, using default", "value", c.Session.TTL, "default", defaultSessionTTL)
		return defaultSessionTTL
	}
	return d
}

// Load reads configuration from the JSON file backend, a .env file in the
// working directory and environment variables, in increasing precedence.
//
// The backend is a JSON file at $XDG_CONFIG_HOME/shopper/config.json.
// Secrets (the reasoner API key) are only read from the environment or .env.
// Environment variables (SHOPPER_*) override .env entries, which override
// backend values.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), ".env")
}

func loadWith(b ConfigBackend, dotenvPath string) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	dotenv, err := readDotenv(dotenvPath)
	if err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg, func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return dotenv[key]
	})

	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Reasoner.Provider = strings.ToLower(cfg.Reasoner.Provider)

	if err := check(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readDotenv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	env, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return env, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func check(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config %s=%v (%s %s)", fe.Namespace(), fe.Value(), fe.Tag(), fe.Param())
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if cfg.Reasoner.Provider == "remote" && cfg.Reasoner.APIKey == "" {
		return fmt.Errorf("missing required config: reasoner API key. " +
			"Set it via environment variable SHOPPER_REASONER_API_KEY or a .env file")
	}
	return nil
}
