package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jwebster45206/drifter/pkg/state"
)

// ErrCorruptSnapshot is returned when a stored snapshot cannot be decoded.
// Callers treat it the same as a missing session.
var ErrCorruptSnapshot = errors.New("corrupt snapshot")

// Storage persists voyage snapshots. Snapshots are stored as JSON and read
// back verbatim; a save always overwrites the previous snapshot for an id.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// SaveGameState writes the snapshot for id.
	SaveGameState(ctx context.Context, id uuid.UUID, gs *state.GameState) error
	// LoadGameState returns (nil, nil) when there is no snapshot for id.
	LoadGameState(ctx context.Context, id uuid.UUID) (*state.GameState, error)
	DeleteGameState(ctx context.Context, id uuid.UUID) error
	// ListGameStates returns the ids of every stored snapshot.
	ListGameStates(ctx context.Context) ([]uuid.UUID, error)
}
