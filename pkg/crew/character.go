package crew

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jwebster45206/drifter/pkg/rng"
)

const (
	MinRosterSize = 1
	MaxRosterSize = 6

	idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	idLength   = 9
)

var (
	ErrInvalidRoster    = errors.New("invalid roster")
	ErrInvalidCharacter = errors.New("invalid character")
)

// MBTI is one of the sixteen personality categories a crew member can carry.
type MBTI string

// MBTITypes lists every valid MBTI value in display order.
var MBTITypes = []MBTI{
	"ISTJ", "ISFJ", "INFJ", "INTJ",
	"ISTP", "ISFP", "INFP", "INTP",
	"ESTP", "ESFP", "ENFP", "ENTP",
	"ESTJ", "ESFJ", "ENFJ", "ENTJ",
}

// Valid reports whether m is one of the sixteen known values.
func (m MBTI) Valid() bool {
	return slices.Contains(MBTITypes, m)
}

// Skill is a capability acquired during the voyage. Level starts at 1 and
// increases each time the same skill is unlocked again.
type Skill struct {
	Name        string `json:"name"`
	Level       int    `json:"level"`
	Description string `json:"description"`
}

// Character is a crew member. ID is immutable and unique within a roster;
// UID is a cosmetic badge number.
type Character struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	UID      string   `json:"uid"`
	Age      int      `json:"age"`
	Gender   string   `json:"gender"`
	Image    string   `json:"image,omitempty"`
	Keywords []string `json:"keywords"`
	MBTI     MBTI     `json:"mbti"`
	IsDead   bool     `json:"is_dead"`
	DeathDay *int     `json:"death_day,omitempty"`
	Skills   []Skill  `json:"skills"`
}

// Spec is the registration form for a new crew member.
type Spec struct {
	Name     string   `json:"name"`
	Age      int      `json:"age"`
	Gender   string   `json:"gender"`
	Image    string   `json:"image,omitempty"`
	Keywords []string `json:"keywords"`
	MBTI     MBTI     `json:"mbti"`
}

// Validate checks a registration form.
func (s Spec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidCharacter)
	}
	if s.Age < 0 {
		return fmt.Errorf("%w: age cannot be negative", ErrInvalidCharacter)
	}
	if !s.MBTI.Valid() {
		return fmt.Errorf("%w: unknown mbti %q", ErrInvalidCharacter, s.MBTI)
	}
	return nil
}

// NewCharacter builds a living crew member from a registration form.
// Blank keywords are dropped and a portrait placeholder is assigned when
// none is given.
func NewCharacter(spec Spec, src rng.Source) (Character, error) {
	if err := spec.Validate(); err != nil {
		return Character{}, err
	}

	keywords := make([]string, 0, len(spec.Keywords))
	for _, k := range spec.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}

	image := spec.Image
	if image == "" {
		image = "https://picsum.photos/seed/" + spec.Name + "/200/300"
	}

	return Character{
		ID:       newID(src),
		Name:     strings.TrimSpace(spec.Name),
		UID:      fmt.Sprintf("DRFT-%d", 1000+src.Intn(9000)),
		Age:      spec.Age,
		Gender:   spec.Gender,
		Image:    image,
		Keywords: keywords,
		MBTI:     spec.MBTI,
		Skills:   []Skill{},
	}, nil
}

func newID(src rng.Source) string {
	var sb strings.Builder
	for i := 0; i < idLength; i++ {
		sb.WriteByte(idAlphabet[src.Intn(len(idAlphabet))])
	}
	return sb.String()
}

// Kill marks the character dead on the given day. A character that is
// already dead keeps its original death day.
func (c *Character) Kill(day int) {
	if c.IsDead {
		return
	}
	c.IsDead = true
	d := day
	c.DeathDay = &d
}

// LearnSkill levels up an existing skill with the same name, or appends a
// new level 1 skill. The description is only used for new skills.
func (c *Character) LearnSkill(name, description string) {
	for i := range c.Skills {
		if c.Skills[i].Name == name {
			c.Skills[i].Level++
			return
		}
	}
	c.Skills = append(c.Skills, Skill{
		Name:        name,
		Level:       1,
		Description: description,
	})
}

// Clone returns a deep copy.
func (c Character) Clone() Character {
	out := c
	out.Keywords = slices.Clone(c.Keywords)
	out.Skills = slices.Clone(c.Skills)
	if c.DeathDay != nil {
		d := *c.DeathDay
		out.DeathDay = &d
	}
	return out
}
