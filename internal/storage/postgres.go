package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/google/uuid"
	"github.com/jwebster45206/drifter/internal/storage/migrations"
	"github.com/jwebster45206/drifter/pkg/state"
	"github.com/jwebster45206/drifter/pkg/storage"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// gameStateRecord is the row shape of the gamestates table.
type gameStateRecord struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Nickname   string    `gorm:"column:nickname"`
	CurrentDay int       `gorm:"column:current_day"`
	Snapshot   string    `gorm:"column:snapshot;type:jsonb"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (gameStateRecord) TableName() string { return "gamestates" }

// PostgresStorage keeps snapshots in a shared Postgres database via gorm.
type PostgresStorage struct {
	db     *gorm.DB
	logger *slog.Logger
}

var _ storage.Storage = (*PostgresStorage)(nil)

// OpenPostgres connects, tunes the pool and applies embedded migrations.
func OpenPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresStorage, error) {
	if dsn == "" {
		return nil, fmt.Errorf("missing DSN")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	sdb, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sdb.SetConnMaxLifetime(30 * time.Minute)
	sdb.SetMaxOpenConns(10)
	sdb.SetMaxIdleConns(5)
	if err := sdb.PingContext(ctx); err != nil {
		_ = sdb.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	driver, err := migratepostgres.WithInstance(sdb, &migratepostgres.Config{})
	if err != nil {
		_ = sdb.Close()
		return nil, fmt.Errorf("postgres migration driver: %w", err)
	}
	if err := applyMigrations(migrations.Postgres, "postgres", "postgres", driver); err != nil {
		_ = sdb.Close()
		return nil, err
	}

	logger.Info("Postgres storage ready")
	return &PostgresStorage{db: gdb, logger: logger}, nil
}

func (p *PostgresStorage) Ping(ctx context.Context) error {
	sdb, err := p.db.DB()
	if err != nil {
		return err
	}
	if err := sdb.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}

func (p *PostgresStorage) Close() error {
	sdb, err := p.db.DB()
	if err != nil {
		return err
	}
	return sdb.Close()
}

func (p *PostgresStorage) SaveGameState(ctx context.Context, id uuid.UUID, gs *state.GameState) error {
	if gs == nil {
		return errors.New("gamestate cannot be nil")
	}
	data, err := json.Marshal(gs)
	if err != nil {
		return fmt.Errorf("failed to marshal gamestate: %w", err)
	}
	rec := gameStateRecord{
		ID:         id,
		Nickname:   gs.Nickname,
		CurrentDay: gs.CurrentDay,
		Snapshot:   string(data),
		UpdatedAt:  time.Now().UTC(),
	}
	err = p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"nickname", "current_day", "snapshot", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		p.logger.Error("Failed to save gamestate", "uuid", id, "error", err)
		return fmt.Errorf("failed to save gamestate: %w", err)
	}
	return nil
}

func (p *PostgresStorage) LoadGameState(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	var rec gameStateRecord
	err := p.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load gamestate: %w", err)
	}
	return decodeSnapshot([]byte(rec.Snapshot))
}

func (p *PostgresStorage) DeleteGameState(ctx context.Context, id uuid.UUID) error {
	if err := p.db.WithContext(ctx).Where("id = ?", id).Delete(&gameStateRecord{}).Error; err != nil {
		return fmt.Errorf("failed to delete gamestate: %w", err)
	}
	return nil
}

func (p *PostgresStorage) ListGameStates(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := p.db.WithContext(ctx).Model(&gameStateRecord{}).Order("updated_at DESC").Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list gamestates: %w", err)
	}
	return ids, nil
}
