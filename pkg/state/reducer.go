package state

import (
	"errors"
	"fmt"

	"github.com/jwebster45206/drifter/pkg/daylog"
	"github.com/jwebster45206/drifter/pkg/rng"
)

var (
	ErrDayOutOfSequence = errors.New("day log out of sequence")
	ErrCampaignComplete = errors.New("campaign complete")
)

const (
	decayMin    = 1.0
	decaySpread = 2.0
)

// ApplyDayLog folds one day log into a game state and returns the new state.
// gs is not modified. The log must be for the day after gs.CurrentDay.
//
// When the log carries no integrity delta the hull decays by a random amount
// in [1,3) drawn from src.
func ApplyDayLog(gs *GameState, log daylog.DayLog, src rng.Source) (*GameState, error) {
	if gs == nil {
		return nil, fmt.Errorf("%w: nil game state", ErrInvalidState)
	}
	if gs.IsComplete() {
		return nil, ErrCampaignComplete
	}
	if log.Day != gs.CurrentDay+1 {
		return nil, fmt.Errorf("%w: expected day %d, got %d", ErrDayOutOfSequence, gs.CurrentDay+1, log.Day)
	}
	if src == nil {
		src = rng.NewRandom()
	}

	next := gs.Clone()

	rc := log.ResourceChanges
	next.Resources.Oxygen = applyDelta(next.Resources.Oxygen, rc.Oxygen)
	next.Resources.Food = applyDelta(next.Resources.Food, rc.Food)
	next.Resources.Water = applyDelta(next.Resources.Water, rc.Water)
	next.Resources.Fuel = applyDelta(next.Resources.Fuel, rc.Fuel)

	if rc.Integrity != nil {
		next.Integrity = daylog.Clamp(next.Integrity + *rc.Integrity)
	} else {
		decay := decayMin + src.Float64()*decaySpread
		next.Integrity = daylog.Clamp(next.Integrity - decay)
	}

	// skills of members who were already dead are frozen; members who die
	// today still get today's unlocks
	deadBefore := make(map[string]bool, len(next.Characters))
	for _, c := range next.Characters {
		if c.IsDead {
			deadBefore[c.ID] = true
		}
	}

	for _, su := range log.StatusUpdates {
		if !su.IsDead {
			continue
		}
		if i := next.Characters.Index(su.CharacterID); i >= 0 {
			next.Characters[i].Kill(log.Day)
		}
	}

	for _, unlock := range log.SkillUnlocks {
		i := next.Characters.Index(unlock.CharacterID)
		if i < 0 || deadBefore[unlock.CharacterID] {
			continue
		}
		next.Characters[i].LearnSkill(unlock.SkillName, unlock.Description)
	}

	next.Mood = daylog.Clamp(log.MoodScore)
	next.CurrentDay = log.Day
	next.History = append(next.History, log)

	return next, nil
}

func applyDelta(v float64, delta *float64) float64 {
	if delta == nil {
		return v
	}
	return daylog.Clamp(v + *delta)
}
