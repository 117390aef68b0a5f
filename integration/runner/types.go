package runner

import (
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/drifter/pkg/crew"
	"github.com/jwebster45206/drifter/pkg/state"
)

// VoyageCase defines one integration run: a crew is launched and the
// campaign is advanced until TargetDay.
type VoyageCase struct {
	Name      string       `json:"name"`
	Nickname  string       `json:"nickname"`
	Crew      []crew.Spec  `json:"crew"`
	TargetDay int          `json:"target_day"`
	Expect    Expectations `json:"expect"`
	Keep      bool         `json:"keep,omitempty"` // leave the campaign on the server afterwards
}

// Expectations are checked against the final game state.
type Expectations struct {
	Day             *int  `json:"day,omitempty"`
	MinSurvivors    *int  `json:"min_survivors,omitempty"`
	HasEnding       *bool `json:"has_ending,omitempty"`
	MaxFallbackDays *int  `json:"max_fallback_days,omitempty"`
}

// StepResult is the outcome of one simulated day.
type StepResult struct {
	Day      int
	Duration time.Duration
	Fallback bool
	Crisis   string
	Error    error
}

// CaseResult contains the results of running an entire case.
type CaseResult struct {
	Case     VoyageCase
	Campaign uuid.UUID
	Steps    []StepResult
	Final    *state.GameState
	Error    error
	Duration time.Duration
}

// FallbackDays counts the days that were replaced by the fallback log.
func (r CaseResult) FallbackDays() int {
	n := 0
	for _, s := range r.Steps {
		if s.Fallback {
			n++
		}
	}
	return n
}
