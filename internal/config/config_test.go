package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnvFile(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoad_Defaults(t *testing.T) {
	noEnvFile(t)
	t.Setenv("LLM_PROVIDER", "mock")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "redis", cfg.StorageBackend)
	assert.Equal(t, time.Second, cfg.RetryBackoff)
	assert.Equal(t, 60*time.Second, cfg.SimulationDeadline)
	assert.Equal(t, "mock", cfg.ModelName)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	content := "LLM_PROVIDER=venice\nVENICE_API_KEY=abc\nLOG_LEVEL=debug\nSTORAGE_BACKEND=sqlite\nRETRY_BACKOFF=10ms\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("ENV_FILE", path)
	// godotenv does not override values already present
	t.Setenv("LLM_PROVIDER", "")
	os.Unsetenv("LLM_PROVIDER")
	t.Setenv("VENICE_API_KEY", "")
	os.Unsetenv("VENICE_API_KEY")
	t.Setenv("LOG_LEVEL", "")
	os.Unsetenv("LOG_LEVEL")
	t.Setenv("STORAGE_BACKEND", "")
	os.Unsetenv("STORAGE_BACKEND")
	t.Setenv("RETRY_BACKOFF", "")
	os.Unsetenv("RETRY_BACKOFF")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "venice", cfg.LLMProvider)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "sqlite", cfg.StorageBackend)
	assert.Equal(t, 10*time.Millisecond, cfg.RetryBackoff)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"gemini without key", Config{LLMProvider: "gemini", StorageBackend: "redis", SimulationDeadline: time.Second}, true},
		{"gemini with key", Config{LLMProvider: "gemini", GeminiAPIKey: "k", StorageBackend: "redis", SimulationDeadline: time.Second}, false},
		{"unknown provider", Config{LLMProvider: "ollama", StorageBackend: "redis", SimulationDeadline: time.Second}, true},
		{"postgres without dsn", Config{LLMProvider: "mock", StorageBackend: "postgres", SimulationDeadline: time.Second}, true},
		{"unknown backend", Config{LLMProvider: "mock", StorageBackend: "mongo", SimulationDeadline: time.Second}, true},
		{"zero deadline", Config{LLMProvider: "mock", StorageBackend: "memory"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
