package response

import (
	"slices"

	"github.com/jwebster45206/drifter/pkg/crew"
	"github.com/jwebster45206/drifter/pkg/daylog"
	"golang.org/x/text/unicode/norm"
)

// Resolver maps character references from generator output onto canonical
// character ids. The generator may refer to a crew member by id or by
// display name.
type Resolver struct {
	byID   map[string]string
	byName map[string]string
}

// NewResolver indexes a roster. When two members share a display name the
// first one in roster order wins.
func NewResolver(roster crew.Roster) *Resolver {
	r := &Resolver{
		byID:   make(map[string]string, len(roster)),
		byName: make(map[string]string, len(roster)),
	}
	for _, c := range roster {
		r.byID[norm.NFC.String(c.ID)] = c.ID
		name := norm.NFC.String(c.Name)
		if _, exists := r.byName[name]; !exists {
			r.byName[name] = c.ID
		}
	}
	return r
}

// Resolve returns the canonical id for ref: an id match first, then a name
// match. Unresolved references are returned unchanged so callers can decide
// what to do with orphans.
func (r *Resolver) Resolve(ref string) string {
	key := norm.NFC.String(ref)
	if id, ok := r.byID[key]; ok {
		return id
	}
	if id, ok := r.byName[key]; ok {
		return id
	}
	return ref
}

// ResolveDayLog returns a copy of log with every character reference
// resolved. The input is not modified.
func (r *Resolver) ResolveDayLog(log daylog.DayLog) daylog.DayLog {
	out := log
	out.StatusUpdates = slices.Clone(log.StatusUpdates)
	out.Dialogues = slices.Clone(log.Dialogues)
	out.SkillUnlocks = slices.Clone(log.SkillUnlocks)

	for i := range out.StatusUpdates {
		out.StatusUpdates[i].CharacterID = r.Resolve(out.StatusUpdates[i].CharacterID)
	}
	for i := range out.Dialogues {
		out.Dialogues[i].CharacterID = r.Resolve(out.Dialogues[i].CharacterID)
	}
	for i := range out.SkillUnlocks {
		out.SkillUnlocks[i].CharacterID = r.Resolve(out.SkillUnlocks[i].CharacterID)
	}
	return out
}
