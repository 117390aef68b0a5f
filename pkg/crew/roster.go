package crew

import (
	"fmt"

	"github.com/jwebster45206/drifter/pkg/rng"
)

// Roster is the ordered crew of a campaign. Members are never removed once
// the voyage starts; death only deactivates them.
type Roster []Character

// NewRoster registers every spec and enforces the roster size bounds.
func NewRoster(specs []Spec, src rng.Source) (Roster, error) {
	if len(specs) < MinRosterSize || len(specs) > MaxRosterSize {
		return nil, fmt.Errorf("%w: crew size must be between %d and %d, got %d",
			ErrInvalidRoster, MinRosterSize, MaxRosterSize, len(specs))
	}

	roster := make(Roster, 0, len(specs))
	seen := make(map[string]bool, len(specs))
	for i, spec := range specs {
		c, err := NewCharacter(spec, src)
		if err != nil {
			return nil, fmt.Errorf("crew member %d: %w", i+1, err)
		}
		// ids come from the random source, so retry on the rare collision
		for seen[c.ID] {
			c.ID = newID(src)
		}
		seen[c.ID] = true
		roster = append(roster, c)
	}
	return roster, nil
}

// Validate checks the invariants of an already-built roster, such as one
// read back from storage.
func (r Roster) Validate() error {
	if len(r) < MinRosterSize || len(r) > MaxRosterSize {
		return fmt.Errorf("%w: crew size must be between %d and %d, got %d",
			ErrInvalidRoster, MinRosterSize, MaxRosterSize, len(r))
	}
	seen := make(map[string]bool, len(r))
	for _, c := range r {
		if c.ID == "" {
			return fmt.Errorf("%w: character %q has no id", ErrInvalidRoster, c.Name)
		}
		if seen[c.ID] {
			return fmt.Errorf("%w: duplicate character id %q", ErrInvalidRoster, c.ID)
		}
		seen[c.ID] = true
		if !c.MBTI.Valid() {
			return fmt.Errorf("%w: character %q has unknown mbti %q", ErrInvalidRoster, c.Name, c.MBTI)
		}
		if c.IsDead && c.DeathDay == nil {
			return fmt.Errorf("%w: dead character %q has no death day", ErrInvalidRoster, c.Name)
		}
		for _, s := range c.Skills {
			if s.Level < 1 {
				return fmt.Errorf("%w: skill %q of %q has level %d", ErrInvalidRoster, s.Name, c.Name, s.Level)
			}
		}
	}
	return nil
}

// Living returns the members that are still alive, in roster order.
func (r Roster) Living() Roster {
	out := make(Roster, 0, len(r))
	for _, c := range r {
		if !c.IsDead {
			out = append(out, c)
		}
	}
	return out
}

// Index returns the position of the character with the given id, or -1.
func (r Roster) Index(id string) int {
	for i := range r {
		if r[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the roster.
func (r Roster) Clone() Roster {
	if r == nil {
		return nil
	}
	out := make(Roster, len(r))
	for i, c := range r {
		out[i] = c.Clone()
	}
	return out
}
