package state

import "github.com/jwebster45206/drifter/pkg/daylog"

// UnknownThreat labels a crisis the generator did not name.
const UnknownThreat = "UNKNOWN THREAT"

// CrisisAlert is raised when a day was dangerous.
type CrisisAlert struct {
	Day   int    `json:"day"`
	Label string `json:"label"`
}

// Death records a crew member who died on the applied day.
type Death struct {
	CharacterID string `json:"character_id"`
	Name        string `json:"name"`
	Day         int    `json:"day"`
}

// Signals are the presentation cues derived from applying one day log.
type Signals struct {
	Crisis *CrisisAlert `json:"crisis,omitempty"`
	Glow   bool         `json:"glow"`
	Deaths []Death      `json:"deaths,omitempty"`
}

// Diff compares the states before and after a day log was applied.
// Glow is set when mood rose or anyone unlocked a skill.
func Diff(prev, next *GameState, log daylog.DayLog) Signals {
	var s Signals
	if log.IsDanger {
		label := log.DangerType
		if label == "" {
			label = UnknownThreat
		}
		s.Crisis = &CrisisAlert{Day: log.Day, Label: label}
	}

	s.Glow = next.Mood > prev.Mood || len(log.SkillUnlocks) > 0

	for _, c := range next.Characters {
		if !c.IsDead {
			continue
		}
		if i := prev.Characters.Index(c.ID); i >= 0 && prev.Characters[i].IsDead {
			continue
		}
		day := log.Day
		if c.DeathDay != nil {
			day = *c.DeathDay
		}
		s.Deaths = append(s.Deaths, Death{CharacterID: c.ID, Name: c.Name, Day: day})
	}
	return s
}
