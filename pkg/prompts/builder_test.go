package prompts

import (
	"strings"
	"testing"

	"github.com/jwebster45206/drifter/pkg/crew"
	"github.com/jwebster45206/drifter/pkg/daylog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoster() crew.Roster {
	day := 3
	return crew.Roster{
		{ID: "m1", Name: "Mira", Gender: "female", MBTI: "INTJ", Keywords: []string{"calm", "precise"},
			Skills: []crew.Skill{{Name: "Welding", Level: 2}}},
		{ID: "k2", Name: "Kai", Gender: "male", MBTI: "ESFP", Keywords: []string{"loud"}},
		{ID: "d3", Name: "Dov", Gender: "male", MBTI: "ISTP", IsDead: true, DeathDay: &day},
	}
}

func historyOf(n int) []daylog.DayLog {
	h := make([]daylog.DayLog, 0, n)
	for i := 1; i <= n; i++ {
		h = append(h, daylog.DayLog{
			Day:       i,
			Events:    []daylog.Event{{Text: "event-" + string(rune('a'+i-1)), Time: "08:00"}},
			MoodScore: 50,
		})
	}
	return h
}

func TestDayBuilder_Build(t *testing.T) {
	req, err := NewDay(8).
		WithCrew(testRoster()).
		WithResources(daylog.Resources{Oxygen: 91, Food: 80, Water: 77, Fuel: 60}, 88.4).
		WithHistory(historyOf(7)).
		Build()
	require.NoError(t, err)

	assert.Equal(t, SystemInstruction, req.SystemInstruction)
	assert.Equal(t, DayMaxOutputTokens, req.MaxOutputTokens)
	require.NotNil(t, req.Schema)

	p := req.Prompt
	assert.Contains(t, p, "Day 8 of the 60-day voyage")
	assert.Contains(t, p, "Mira [m1] (female, MBTI: INTJ, personality: calm, precise, skills: Welding Lv.2)")
	assert.Contains(t, p, "Kai [k2]")
	assert.NotContains(t, p, "Dov", "dead crew must not be described")
	assert.Contains(t, p, "oxygen 91%, food 80%, water 77%, fuel 60%")
	assert.Contains(t, p, "Hull integrity 88.4%")
	assert.Contains(t, p, randomCrisisDirective)
	assert.Contains(t, p, "black hole proximity")
}

func TestDayBuilder_HistoryWindow(t *testing.T) {
	req, err := NewDay(8).WithCrew(testRoster()).WithHistory(historyOf(7)).Build()
	require.NoError(t, err)

	for day := 1; day <= 2; day++ {
		if strings.Contains(req.Prompt, "Day "+string(rune('0'+day))+": ") {
			t.Errorf("Expected day %d to fall outside the history window", day)
		}
	}
	for day := 3; day <= 7; day++ {
		if !strings.Contains(req.Prompt, "Day "+string(rune('0'+day))+": event-") {
			t.Errorf("Expected day %d in the history window", day)
		}
	}
}

func TestDayBuilder_ForcedCrisis(t *testing.T) {
	req, err := NewDay(5).WithCrew(testRoster()).WithForcedCrisis(true).Build()
	require.NoError(t, err)
	assert.Contains(t, req.Prompt, forcedCrisisDirective)
	assert.NotContains(t, req.Prompt, randomCrisisDirective)
}

func TestDayBuilder_Errors(t *testing.T) {
	tests := []struct {
		name    string
		builder *DayBuilder
	}{
		{"day zero", NewDay(0).WithCrew(testRoster())},
		{"past the voyage", NewDay(61).WithCrew(testRoster())},
		{"no crew", NewDay(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.builder.Build(); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestEndingBuilder_Build(t *testing.T) {
	h := historyOf(3)
	h[0].MoodScore = 80
	h[1].MoodScore = 40
	h[1].IsDanger = true
	h[1].DangerType = "space pirate raid"
	h[2].MoodScore = 60
	h[2].Choice = &daylog.Choice{
		Scenario:            "Vent the cargo bay?",
		Options:             []daylog.Option{{Text: "Vent"}, {Text: "Hold"}},
		SelectedOptionIndex: 1,
	}

	req, err := NewEnding().WithCrew(testRoster()).WithHistory(h).Build()
	require.NoError(t, err)

	assert.Equal(t, EndingMaxOutputTokens, req.MaxOutputTokens)
	assert.Contains(t, req.Prompt, "Survivors: 2 / 3")
	assert.Contains(t, req.Prompt, "Average mood: 60.0")
	assert.Contains(t, req.Prompt, "Day 2: space pirate raid")
	assert.Contains(t, req.Prompt, "Day 3: Vent the cargo bay? -> Hold")
}

func TestEndingBuilder_EmptyHistory(t *testing.T) {
	req, err := NewEnding().WithCrew(testRoster()).Build()
	require.NoError(t, err)
	assert.Contains(t, req.Prompt, "Average mood: 0.0")
}

func TestSchemas(t *testing.T) {
	day := DayLogSchema()
	for _, field := range []string{"day", "events", "statusUpdates", "moodScore", "resourceChanges"} {
		assert.Contains(t, day.Required, field)
	}
	assert.Contains(t, day.Properties["resourceChanges"].Properties, "integrity")

	ending := EndingSchema()
	assert.ElementsMatch(t, []string{"success", "failure", "mixed"}, ending.Properties["outcome"].Enum)
}
