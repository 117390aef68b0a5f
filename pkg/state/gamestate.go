package state

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/drifter/pkg/crew"
	"github.com/jwebster45206/drifter/pkg/daylog"
)

var ErrInvalidState = errors.New("invalid game state")

// GameState is the full snapshot of one voyage. It is what gets persisted
// and what the reducer folds day logs into.
type GameState struct {
	ID           uuid.UUID        `json:"id"`
	Nickname     string           `json:"nickname"`
	Code         string           `json:"code"`
	Characters   crew.Roster      `json:"characters"`
	History      []daylog.DayLog  `json:"history"`
	CurrentDay   int              `json:"current_day"`
	Integrity    float64          `json:"integrity"`
	Resources    daylog.Resources `json:"resources"`
	Mood         float64          `json:"mood"`
	HasSeenIntro bool             `json:"has_seen_intro"`
	Ending       *daylog.Ending   `json:"ending,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// NewGameState creates day 0 of a voyage with full gauges.
func NewGameState(nickname, code string, roster crew.Roster) *GameState {
	now := time.Now().UTC()
	return &GameState{
		ID:         uuid.New(),
		Nickname:   nickname,
		Code:       code,
		Characters: roster,
		History:    make([]daylog.DayLog, 0, daylog.CampaignLength),
		Integrity:  daylog.InitialIntegrity,
		Resources:  daylog.NewResources(),
		Mood:       daylog.InitialMood,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsComplete reports whether the last day has been simulated.
func (gs *GameState) IsComplete() bool {
	return gs.CurrentDay >= daylog.CampaignLength
}

// LatestLog returns the most recent day log, if any.
func (gs *GameState) LatestLog() (daylog.DayLog, bool) {
	if len(gs.History) == 0 {
		return daylog.DayLog{}, false
	}
	return gs.History[len(gs.History)-1], true
}

// Clone returns a copy that shares no mutable memory with gs. Day logs are
// never modified once produced, so history entries are shared.
func (gs *GameState) Clone() *GameState {
	out := *gs
	out.Characters = make(crew.Roster, len(gs.Characters))
	for i, c := range gs.Characters {
		out.Characters[i] = c.Clone()
	}
	out.History = slices.Clone(gs.History)
	if gs.Ending != nil {
		e := *gs.Ending
		out.Ending = &e
	}
	return &out
}

// Validate checks the invariants a snapshot must hold when read back.
func (gs *GameState) Validate() error {
	if gs.ID == uuid.Nil {
		return fmt.Errorf("%w: missing id", ErrInvalidState)
	}
	if err := gs.Characters.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	if gs.CurrentDay < 0 || gs.CurrentDay > daylog.CampaignLength {
		return fmt.Errorf("%w: current day %d outside 0..%d", ErrInvalidState, gs.CurrentDay, daylog.CampaignLength)
	}
	if len(gs.History) != gs.CurrentDay {
		return fmt.Errorf("%w: history has %d days but current day is %d", ErrInvalidState, len(gs.History), gs.CurrentDay)
	}
	for i, l := range gs.History {
		if l.Day != i+1 {
			return fmt.Errorf("%w: history entry %d is day %d", ErrInvalidState, i, l.Day)
		}
	}

	gauges := map[string]float64{
		"oxygen":    gs.Resources.Oxygen,
		"food":      gs.Resources.Food,
		"water":     gs.Resources.Water,
		"fuel":      gs.Resources.Fuel,
		"integrity": gs.Integrity,
		"mood":      gs.Mood,
	}
	for name, v := range gauges {
		if v < daylog.GaugeMin || v > daylog.GaugeMax {
			return fmt.Errorf("%w: %s %.2f outside %v..%v", ErrInvalidState, name, v, daylog.GaugeMin, daylog.GaugeMax)
		}
	}

	if gs.Ending != nil && !gs.IsComplete() {
		return fmt.Errorf("%w: ending present on day %d", ErrInvalidState, gs.CurrentDay)
	}
	for _, c := range gs.Characters {
		if c.DeathDay != nil && (*c.DeathDay < 1 || *c.DeathDay > gs.CurrentDay) {
			return fmt.Errorf("%w: %q died on day %d", ErrInvalidState, c.Name, *c.DeathDay)
		}
	}
	return nil
}
