package prompts

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/drifter/pkg/chat"
	"github.com/jwebster45206/drifter/pkg/crew"
	"github.com/jwebster45206/drifter/pkg/daylog"
)

// DayBuilder constructs the generation request for one simulated day using a
// fluent interface.
type DayBuilder struct {
	day          int
	roster       crew.Roster
	resources    daylog.Resources
	integrity    float64
	history      []daylog.DayLog
	historyLimit int
	forceCrisis  bool
}

// NewDay creates a builder for the given day with default settings.
func NewDay(day int) *DayBuilder {
	return &DayBuilder{
		day:          day,
		resources:    daylog.NewResources(),
		integrity:    daylog.InitialIntegrity,
		historyLimit: DefaultHistoryLimit,
	}
}

// WithCrew sets the full roster. Only living members are described.
func (b *DayBuilder) WithCrew(r crew.Roster) *DayBuilder {
	b.roster = r
	return b
}

// WithResources sets the current gauges and hull integrity.
func (b *DayBuilder) WithResources(res daylog.Resources, integrity float64) *DayBuilder {
	b.resources = res
	b.integrity = integrity
	return b
}

// WithHistory sets the previous day logs, oldest first.
func (b *DayBuilder) WithHistory(h []daylog.DayLog) *DayBuilder {
	b.history = h
	return b
}

// WithHistoryLimit sets how many previous days are summarized.
func (b *DayBuilder) WithHistoryLimit(limit int) *DayBuilder {
	b.historyLimit = limit
	return b
}

// WithForcedCrisis demands a crisis instead of leaving it to chance.
func (b *DayBuilder) WithForcedCrisis(forced bool) *DayBuilder {
	b.forceCrisis = forced
	return b
}

// Build returns the request for the day.
func (b *DayBuilder) Build() (chat.GenerateRequest, error) {
	if b.day < 1 || b.day > daylog.CampaignLength {
		return chat.GenerateRequest{}, fmt.Errorf("day %d is outside the voyage", b.day)
	}
	if len(b.roster) == 0 {
		return chat.GenerateRequest{}, fmt.Errorf("crew is required")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Day %d of the %d-day voyage of the spaceship DRIFTER back to Earth.\n", b.day, daylog.CampaignLength)

	sb.WriteString("Surviving crew: ")
	sb.WriteString(describeCrew(b.roster.Living()))
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "Resources: oxygen %.0f%%, food %.0f%%, water %.0f%%, fuel %.0f%%. Hull integrity %.1f%%.\n",
		b.resources.Oxygen, b.resources.Food, b.resources.Water, b.resources.Fuel, b.integrity)

	if summary := summarizeHistory(b.history, b.historyLimit); summary != "" {
		sb.WriteString("\nPrevious days:\n")
		sb.WriteString(summary)
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(dayDirectives)

	sb.WriteString("\n\n### Danger\n")
	if b.forceCrisis {
		sb.WriteString(forcedCrisisDirective)
	} else {
		sb.WriteString(randomCrisisDirective)
	}
	sb.WriteString("\nCrisis types: " + strings.Join(CrisisTypes, ", ") + ".\n")
	sb.WriteString(casualtyDirective)
	fmt.Fprintf(&sb, "\n\nThe day field of the response must be %d.", b.day)

	return chat.GenerateRequest{
		Prompt:            sb.String(),
		SystemInstruction: SystemInstruction,
		MaxOutputTokens:   DayMaxOutputTokens,
		Schema:            DayLogSchema(),
	}, nil
}

// describeCrew renders one entry per member: name, id, gender, MBTI,
// keywords and skills.
func describeCrew(r crew.Roster) string {
	if len(r) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(r))
	for _, c := range r {
		desc := fmt.Sprintf("%s [%s] (%s, MBTI: %s, personality: %s", c.Name, c.ID, c.Gender, c.MBTI, strings.Join(c.Keywords, ", "))
		if len(c.Skills) > 0 {
			skills := make([]string, 0, len(c.Skills))
			for _, s := range c.Skills {
				skills = append(skills, fmt.Sprintf("%s Lv.%d", s.Name, s.Level))
			}
			desc += ", skills: " + strings.Join(skills, ", ")
		}
		parts = append(parts, desc+")")
	}
	return strings.Join(parts, "; ")
}

// summarizeHistory renders the last limit days as "Day N: <event texts>".
func summarizeHistory(h []daylog.DayLog, limit int) string {
	if len(h) == 0 || limit <= 0 {
		return ""
	}
	if len(h) > limit {
		h = h[len(h)-limit:]
	}
	lines := make([]string, 0, len(h))
	for _, l := range h {
		texts := make([]string, 0, len(l.Events))
		for _, e := range l.Events {
			texts = append(texts, e.Text)
		}
		lines = append(lines, fmt.Sprintf("Day %d: %s", l.Day, strings.Join(texts, " ")))
	}
	return strings.Join(lines, "\n")
}

// EndingBuilder constructs the generation request for the voyage's ending.
type EndingBuilder struct {
	roster  crew.Roster
	history []daylog.DayLog
}

// NewEnding creates an ending builder.
func NewEnding() *EndingBuilder {
	return &EndingBuilder{}
}

func (b *EndingBuilder) WithCrew(r crew.Roster) *EndingBuilder {
	b.roster = r
	return b
}

func (b *EndingBuilder) WithHistory(h []daylog.DayLog) *EndingBuilder {
	b.history = h
	return b
}

// Build returns the ending request. Average mood is 0 for an empty history.
func (b *EndingBuilder) Build() (chat.GenerateRequest, error) {
	if len(b.roster) == 0 {
		return chat.GenerateRequest{}, fmt.Errorf("crew is required")
	}

	var sb strings.Builder
	sb.WriteString("The 60-day voyage of the spaceship DRIFTER is over.\n")
	fmt.Fprintf(&sb, "Survivors: %d / %d\n", len(b.roster.Living()), len(b.roster))
	fmt.Fprintf(&sb, "Average mood: %.1f\n", daylog.AverageMood(b.history))

	var crises []string
	var choices []string
	for _, l := range b.history {
		if l.IsDanger {
			crises = append(crises, fmt.Sprintf("Day %d: %s", l.Day, l.DangerType))
		}
		if opt, ok := l.Choice.Selected(); ok {
			choices = append(choices, fmt.Sprintf("Day %d: %s -> %s", l.Day, l.Choice.Scenario, opt.Text))
		}
	}

	sb.WriteString("\nMajor incidents:\n")
	if len(crises) == 0 {
		sb.WriteString("none\n")
	} else {
		sb.WriteString(strings.Join(crises, ", ") + "\n")
	}

	sb.WriteString("\nKey choices:\n")
	if len(choices) == 0 {
		sb.WriteString("none\n")
	} else {
		sb.WriteString(strings.Join(choices, "\n") + "\n")
	}

	sb.WriteString("\n")
	sb.WriteString(endingDirectives)

	return chat.GenerateRequest{
		Prompt:            sb.String(),
		SystemInstruction: SystemInstruction,
		MaxOutputTokens:   EndingMaxOutputTokens,
		Schema:            EndingSchema(),
	}, nil
}
