package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jwebster45206/drifter/pkg/crew"
	"github.com/jwebster45206/drifter/pkg/state"
)

func TestMockStorage_SaveAndLoadGameState(t *testing.T) {
	s := NewMockStorage()
	ctx := context.Background()

	gs := state.NewGameState("ace", "X1", crew.Roster{{ID: "m1", Name: "Mira", MBTI: "INTJ"}})
	gs.Mood = 42

	if err := s.SaveGameState(ctx, gs.ID, gs); err != nil {
		t.Fatalf("Failed to save gamestate: %v", err)
	}
	gs.Mood = 99 // later edits are not visible to storage

	loaded, err := s.LoadGameState(ctx, gs.ID)
	if err != nil {
		t.Fatalf("Failed to load gamestate: %v", err)
	}
	if loaded == nil {
		t.Fatal("Expected non-nil gamestate")
	}
	if loaded.Mood != 42 {
		t.Errorf("Expected mood 42, got %v", loaded.Mood)
	}

	ids, _ := s.ListGameStates(ctx)
	if len(ids) != 1 || ids[0] != gs.ID {
		t.Errorf("Expected [%v], got %v", gs.ID, ids)
	}
}

func TestMockStorage_LoadMissingAndCorrupt(t *testing.T) {
	s := NewMockStorage()
	ctx := context.Background()

	loaded, err := s.LoadGameState(ctx, uuid.New())
	if err != nil || loaded != nil {
		t.Errorf("Expected (nil, nil) for missing snapshot, got (%v, %v)", loaded, err)
	}

	id := uuid.New()
	s.PutRaw(id, []byte(`{"id":`))
	if _, err := s.LoadGameState(ctx, id); !errors.Is(err, ErrCorruptSnapshot) {
		t.Errorf("Expected ErrCorruptSnapshot, got %v", err)
	}
}

func TestMockStorage_SaveError(t *testing.T) {
	s := NewMockStorage()
	s.SetSaveError(errors.New("disk full"))
	gs := state.NewGameState("ace", "X1", nil)
	if err := s.SaveGameState(context.Background(), gs.ID, gs); err == nil {
		t.Error("Expected save error")
	}
	if s.SaveCalls() != 1 {
		t.Errorf("Expected 1 save call, got %d", s.SaveCalls())
	}
}
