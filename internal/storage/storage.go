// Package storage holds the snapshot backends: Redis, SQLite and Postgres.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/drifter/internal/config"
	"github.com/jwebster45206/drifter/pkg/storage"
)

// New builds the backend selected by cfg.StorageBackend.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.StorageBackend {
	case "redis":
		client, err := NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return NewRedisStorage(client, cfg.SnapshotTTL, logger), nil
	case "sqlite":
		return OpenSQLite(cfg.SQLitePath, logger)
	case "postgres":
		return OpenPostgres(ctx, cfg.PostgresDSN, logger)
	case "memory":
		logger.Warn("Using in-memory storage, snapshots will not survive a restart")
		return storage.NewMockStorage(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
