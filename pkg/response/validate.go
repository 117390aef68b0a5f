// Package response turns generator output into domain values: it parses the
// sanitized text, checks structural completeness and resolves character
// references.
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/jwebster45206/drifter/pkg/daylog"
	"github.com/jwebster45206/drifter/pkg/textfilter"
)

var (
	ErrMalformed     = errors.New("malformed response")
	ErrMissingField  = errors.New("missing required field")
	ErrInvalidField  = errors.New("invalid field")
	ErrEmptyResponse = errors.New("empty response")
)

// DecodeDayLog sanitizes and parses raw generator text into a DayLog.
func DecodeDayLog(text string) (daylog.DayLog, error) {
	var raw rawDayLog
	if err := decode(text, &raw); err != nil {
		return daylog.DayLog{}, err
	}
	return raw.toDayLog()
}

// DecodeEnding sanitizes and parses raw generator text into an Ending.
func DecodeEnding(text string) (daylog.Ending, error) {
	var raw rawEnding
	if err := decode(text, &raw); err != nil {
		return daylog.Ending{}, err
	}
	return raw.toEnding()
}

func decode(text string, v any) error {
	cleaned := textfilter.Sanitize(text)
	if cleaned == "" {
		return ErrEmptyResponse
	}
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// toDayLog checks that the required fields are present and coerces absent
// optional collections to empty values. Nested field types are trusted.
func (r *rawDayLog) toDayLog() (daylog.DayLog, error) {
	var missing []string
	if r.Day == nil {
		missing = append(missing, "day")
	}
	if r.Events == nil {
		missing = append(missing, "events")
	}
	if r.StatusUpdates == nil {
		missing = append(missing, "statusUpdates")
	}
	if r.MoodScore == nil {
		missing = append(missing, "moodScore")
	}
	if r.ResourceChanges == nil {
		missing = append(missing, "resourceChanges")
	}
	if len(missing) > 0 {
		return daylog.DayLog{}, fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}

	// day is reported as generated; the caller owns numbering
	log := daylog.DayLog{
		Day:           int(math.Round(*r.Day)),
		Events:        make([]daylog.Event, 0, len(*r.Events)),
		StatusUpdates: make([]daylog.StatusUpdate, 0, len(*r.StatusUpdates)),
		Dialogues:     make([]daylog.Dialogue, 0, len(r.Dialogues)),
		SkillUnlocks:  make([]daylog.SkillUnlock, 0, len(r.SkillUnlocks)),
		MoodScore:     daylog.Clamp(*r.MoodScore),
		ResourceChanges: daylog.ResourceChanges{
			Oxygen:    r.ResourceChanges.Oxygen,
			Food:      r.ResourceChanges.Food,
			Water:     r.ResourceChanges.Water,
			Fuel:      r.ResourceChanges.Fuel,
			Integrity: r.ResourceChanges.Integrity,
		},
	}

	for _, e := range *r.Events {
		log.Events = append(log.Events, daylog.Event{Text: e.Text, Time: e.Time})
	}
	for _, s := range *r.StatusUpdates {
		log.StatusUpdates = append(log.StatusUpdates, daylog.StatusUpdate{
			CharacterID: s.CharacterID,
			Status:      s.Status,
			IsDead:      s.IsDead != nil && *s.IsDead,
		})
	}
	for _, d := range r.Dialogues {
		log.Dialogues = append(log.Dialogues, daylog.Dialogue{CharacterID: d.CharacterID, Text: d.Text, Time: d.Time})
	}
	for _, s := range r.SkillUnlocks {
		if strings.TrimSpace(s.SkillName) == "" {
			continue
		}
		log.SkillUnlocks = append(log.SkillUnlocks, daylog.SkillUnlock{
			CharacterID: s.CharacterID,
			SkillName:   s.SkillName,
			Description: s.Description,
		})
	}

	if r.IsDanger != nil {
		log.IsDanger = *r.IsDanger
	}
	if r.DangerType != nil {
		log.DangerType = *r.DangerType
	}

	if choice := r.Choice.toChoice(); choice != nil {
		log.Choice = choice
	}

	return log, nil
}

// toChoice drops choices that are incomplete or point past their options.
func (c *rawChoice) toChoice() *daylog.Choice {
	if c == nil || c.Scenario == nil || c.SelectedOptionIndex == nil || len(c.Options) == 0 {
		return nil
	}
	choice := &daylog.Choice{
		Scenario:            *c.Scenario,
		Options:             make([]daylog.Option, 0, len(c.Options)),
		SelectedOptionIndex: int(math.Round(*c.SelectedOptionIndex)),
	}
	for _, o := range c.Options {
		choice.Options = append(choice.Options, daylog.Option{Text: o.Text, Result: o.Result})
	}
	if _, ok := choice.Selected(); !ok {
		return nil
	}
	return choice
}

func (r *rawEnding) toEnding() (daylog.Ending, error) {
	var missing []string
	if r.Title == nil {
		missing = append(missing, "title")
	}
	if r.Description == nil {
		missing = append(missing, "description")
	}
	if r.Outcome == nil {
		missing = append(missing, "outcome")
	}
	if len(missing) > 0 {
		return daylog.Ending{}, fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}

	outcome := daylog.Outcome(strings.ToLower(strings.TrimSpace(*r.Outcome)))
	if !outcome.Valid() {
		return daylog.Ending{}, fmt.Errorf("%w: unknown outcome %q", ErrInvalidField, *r.Outcome)
	}

	return daylog.Ending{
		Title:       *r.Title,
		Description: *r.Description,
		Outcome:     outcome,
	}, nil
}
