package daylog

import "fmt"

const (
	// CampaignLength is the number of days in a voyage.
	CampaignLength = 60

	GaugeMin = 0.0
	GaugeMax = 100.0

	InitialGauge     = 100.0
	InitialIntegrity = 98.2
	InitialMood      = 80.0
)

// Resources are the four percentage gauges tracked per day.
type Resources struct {
	Oxygen float64 `json:"oxygen"`
	Food   float64 `json:"food"`
	Water  float64 `json:"water"`
	Fuel   float64 `json:"fuel"`
}

// NewResources returns full gauges.
func NewResources() Resources {
	return Resources{
		Oxygen: InitialGauge,
		Food:   InitialGauge,
		Water:  InitialGauge,
		Fuel:   InitialGauge,
	}
}

// ResourceChanges is a partial set of additive deltas. A nil field means the
// gauge was not mentioned for that day, which matters for integrity: an
// absent integrity delta triggers ambient hull decay.
type ResourceChanges struct {
	Oxygen    *float64 `json:"oxygen,omitempty"`
	Food      *float64 `json:"food,omitempty"`
	Water     *float64 `json:"water,omitempty"`
	Fuel      *float64 `json:"fuel,omitempty"`
	Integrity *float64 `json:"integrity,omitempty"`
}

// Delta is a convenience for building ResourceChanges literals.
func Delta(v float64) *float64 { return &v }

type Event struct {
	Text string `json:"text"`
	Time string `json:"time"`
}

type StatusUpdate struct {
	CharacterID string `json:"character_id"`
	Status      string `json:"status"`
	IsDead      bool   `json:"is_dead,omitempty"`
}

type Dialogue struct {
	CharacterID string `json:"character_id"`
	Text        string `json:"text"`
	Time        string `json:"time"`
}

type SkillUnlock struct {
	CharacterID string `json:"character_id"`
	SkillName   string `json:"skill_name"`
	Description string `json:"description"`
}

type Option struct {
	Text   string `json:"text"`
	Result string `json:"result"`
}

// Choice is a dilemma the crew faced and the option they took.
type Choice struct {
	Scenario            string   `json:"scenario"`
	Options             []Option `json:"options"`
	SelectedOptionIndex int      `json:"selected_option_index"`
}

// Selected returns the option that was taken and whether the index is valid.
func (c *Choice) Selected() (Option, bool) {
	if c == nil || c.SelectedOptionIndex < 0 || c.SelectedOptionIndex >= len(c.Options) {
		return Option{}, false
	}
	return c.Options[c.SelectedOptionIndex], true
}

// DayLog is the narrative and state delta for one simulated day. A DayLog is
// never modified after it has been produced.
type DayLog struct {
	Day             int             `json:"day"`
	Events          []Event         `json:"events"`
	StatusUpdates   []StatusUpdate  `json:"status_updates"`
	Dialogues       []Dialogue      `json:"dialogues"`
	IsDanger        bool            `json:"is_danger,omitempty"`
	DangerType      string          `json:"danger_type,omitempty"`
	MoodScore       float64         `json:"mood_score"`
	ResourceChanges ResourceChanges `json:"resource_changes"`
	SkillUnlocks    []SkillUnlock   `json:"skill_unlocks"`
	Choice          *Choice         `json:"choice,omitempty"`
	Fallback        bool            `json:"fallback,omitempty"`
}

// Outcome is the verdict of a finished voyage.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeMixed   Outcome = "mixed"
)

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeSuccess, OutcomeFailure, OutcomeMixed:
		return true
	}
	return false
}

// Ending is the terminal summary produced once day 60 is reached.
type Ending struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Outcome     Outcome `json:"outcome"`
	Fallback    bool    `json:"fallback,omitempty"`
}

// CrisisCount returns the number of danger days in a history.
func CrisisCount(history []DayLog) int {
	n := 0
	for _, l := range history {
		if l.IsDanger {
			n++
		}
	}
	return n
}

// AverageMood returns the mean mood score across a history, or 0 when empty.
func AverageMood(history []DayLog) float64 {
	if len(history) == 0 {
		return 0
	}
	var sum float64
	for _, l := range history {
		sum += l.MoodScore
	}
	return sum / float64(len(history))
}

// Clamp bounds v to the gauge range.
func Clamp(v float64) float64 {
	if v < GaugeMin {
		return GaugeMin
	}
	if v > GaugeMax {
		return GaugeMax
	}
	return v
}

func (l DayLog) String() string {
	return fmt.Sprintf("day %d (%d events, danger=%t, mood=%.0f)", l.Day, len(l.Events), l.IsDanger, l.MoodScore)
}
