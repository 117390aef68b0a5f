package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        string `env:"PORT"        envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    slog.Level

	RawLogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Generation
	LLMProvider     string `env:"LLM_PROVIDER" envDefault:"gemini"`
	ModelName       string `env:"MODEL_NAME"`
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`
	VeniceAPIKey    string `env:"VENICE_API_KEY"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`

	// Simulation
	Seed               uint64        `env:"SEED"`
	RetryBackoff       time.Duration `env:"RETRY_BACKOFF"       envDefault:"1s"`
	SimulationDeadline time.Duration `env:"SIMULATION_DEADLINE" envDefault:"60s"`

	// Persistence
	StorageBackend string        `env:"STORAGE_BACKEND" envDefault:"redis"`
	RedisURL       string        `env:"REDIS_URL"       envDefault:"localhost:6379"`
	SnapshotTTL    time.Duration `env:"SNAPSHOT_TTL"    envDefault:"720h"`
	SQLitePath     string        `env:"SQLITE_PATH"     envDefault:"./data/drifter.db"`
	PostgresDSN    string        `env:"POSTGRES_DSN"`
}

const defaultEnvFile = ".env"

var defaultModels = map[string]string{
	"gemini":    "gemini-1.5-flash",
	"venice":    "llama-3.3-70b",
	"anthropic": "claude-3-5-haiku-latest",
	"mock":      "mock",
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = defaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.LogLevel = parseLogLevel(cfg.RawLogLevel)
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))
	if cfg.ModelName == "" {
		cfg.ModelName = defaultModels[cfg.LLMProvider]
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks provider and backend settings.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when using gemini provider")
		}
	case "venice":
		if c.VeniceAPIKey == "" {
			return fmt.Errorf("VENICE_API_KEY is required when using venice provider")
		}
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when using anthropic provider")
		}
	case "mock":
	default:
		return fmt.Errorf("invalid LLM provider %q (supported: gemini, venice, anthropic, mock)", c.LLMProvider)
	}

	switch c.StorageBackend {
	case "redis", "sqlite", "memory":
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required when using postgres storage")
		}
	default:
		return fmt.Errorf("invalid storage backend %q (supported: redis, sqlite, postgres, memory)", c.StorageBackend)
	}

	if c.RetryBackoff < 0 {
		return fmt.Errorf("RETRY_BACKOFF cannot be negative")
	}
	if c.SimulationDeadline <= 0 {
		return fmt.Errorf("SIMULATION_DEADLINE must be positive")
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
