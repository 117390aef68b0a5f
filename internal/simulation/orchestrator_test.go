package simulation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jwebster45206/drifter/internal/services"
	"github.com/jwebster45206/drifter/pkg/chat"
	"github.com/jwebster45206/drifter/pkg/crew"
	"github.com/jwebster45206/drifter/pkg/daylog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCrew() crew.Roster {
	return crew.Roster{
		{ID: "m1", Name: "Mira", MBTI: "INTJ", Gender: "female", Keywords: []string{"calm"}, Skills: []crew.Skill{}},
		{ID: "k2", Name: "Kai", MBTI: "ESFP", Gender: "male", Keywords: []string{"loud"}, Skills: []crew.Skill{}},
	}
}

func dayInput(day int) DayInput {
	return DayInput{
		Day:       day,
		Crew:      testCrew(),
		Resources: daylog.NewResources(),
		Integrity: daylog.InitialIntegrity,
	}
}

const goodDay = `{"day":%d,"events":[{"text":"Kai fixed the heater.","time":"10:00"}],"statusUpdates":[{"characterId":"Kai","status":"proud"}],"moodScore":70,"resourceChanges":{"oxygen":-5,"food":-3},"skillUnlocks":[{"characterId":"Mira","skillName":"Botany","description":"Grows food"}]}`

func TestForcedCrisis(t *testing.T) {
	tests := []struct {
		day, count int
		want       bool
	}{
		{1, 0, false},
		{5, 0, true},
		{5, 3, true},
		{10, 0, false},
		{15, 0, false},
		{20, 0, true},
		{25, 0, false},
		{30, 5, true},
		{51, 1, true},
		{51, 2, false},
		{56, 2, true},
		{56, 3, false},
		{60, 9, true},
	}
	for _, tt := range tests {
		if got := ForcedCrisis(tt.day, tt.count); got != tt.want {
			t.Errorf("ForcedCrisis(%d, %d) = %v, want %v", tt.day, tt.count, got, tt.want)
		}
	}
}

func TestSimulateDay_Success(t *testing.T) {
	gen := services.NewMockGenerator().Enqueue(services.MockResponse{Text: strings.Replace(goodDay, "%d", "3", 1)})
	o := NewOrchestrator(gen, testLogger(), 0)

	log := o.SimulateDay(context.Background(), dayInput(3))

	assert.False(t, log.Fallback)
	assert.Equal(t, 3, log.Day)
	require.Len(t, log.StatusUpdates, 1)
	assert.Equal(t, "k2", log.StatusUpdates[0].CharacterID, "names are resolved to ids")
	require.Len(t, log.SkillUnlocks, 1)
	assert.Equal(t, "m1", log.SkillUnlocks[0].CharacterID)
	assert.Equal(t, 1, gen.CallCount())

	req := gen.Calls[0]
	assert.Contains(t, req.Prompt, "Day 3 of the 60-day voyage")
	assert.Contains(t, req.Prompt, forcedOrRandom(false))
	assert.NotNil(t, req.Schema)
}

func forcedOrRandom(forced bool) string {
	if forced {
		return "A crisis MUST occur today"
	}
	return "about a 15% chance"
}

func TestSimulateDay_ForcesCrisisOnDayFive(t *testing.T) {
	gen := services.NewMockGenerator()
	log := NewOrchestrator(gen, testLogger(), 0).SimulateDay(context.Background(), dayInput(5))
	require.Equal(t, 1, gen.CallCount())
	assert.Contains(t, gen.Calls[0].Prompt, forcedOrRandom(true))

	// the canned day has no danger; a forced day is flagged anyway
	assert.True(t, log.IsDanger)
	assert.Empty(t, log.DangerType)
}

func TestSimulateDay_KeepsGeneratedCrisisLabel(t *testing.T) {
	gen := services.NewMockGenerator().Enqueue(services.MockResponse{
		Text: `{"day":20,"events":[],"statusUpdates":[],"isDanger":true,"dangerType":"solar flare","moodScore":40,"resourceChanges":{}}`,
	})
	log := NewOrchestrator(gen, testLogger(), 0).SimulateDay(context.Background(), dayInput(20))
	assert.True(t, log.IsDanger)
	assert.Equal(t, "solar flare", log.DangerType)
}

func TestSimulateDay_UnforcedDayStaysQuiet(t *testing.T) {
	log := NewOrchestrator(services.NewMockGenerator(), testLogger(), 0).SimulateDay(context.Background(), dayInput(6))
	assert.False(t, log.IsDanger)
}

func TestSimulateDay_CorrectsDay(t *testing.T) {
	tests := []struct {
		name      string
		generated string
	}{
		{"wrong positive day", "1"},
		{"zero", "0"},
		{"negative", "-4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := services.NewMockGenerator().Enqueue(services.MockResponse{Text: strings.Replace(goodDay, "%d", tt.generated, 1)})
			log := NewOrchestrator(gen, testLogger(), 0).SimulateDay(context.Background(), dayInput(7))
			assert.Equal(t, 7, log.Day)
			assert.False(t, log.Fallback)
			assert.Equal(t, 1, gen.CallCount(), "a wrong day does not use up the retry")
		})
	}
}

func TestSimulateDay_RetriesOnce(t *testing.T) {
	tests := []struct {
		name  string
		first services.MockResponse
	}{
		{"generator error", services.MockResponse{Err: errors.New("timeout")}},
		{"malformed", services.MockResponse{Text: `{"day": 2, "events": [{"te`}},
		{"missing field", services.MockResponse{Text: `{"day":2,"events":[]}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := services.NewMockGenerator().Enqueue(tt.first, services.MockResponse{Text: strings.Replace(goodDay, "%d", "2", 1)})
			log := NewOrchestrator(gen, testLogger(), time.Millisecond).SimulateDay(context.Background(), dayInput(2))
			assert.False(t, log.Fallback)
			assert.Equal(t, 70.0, log.MoodScore)
			assert.Equal(t, 2, gen.CallCount())
		})
	}
}

func TestSimulateDay_FallbackAfterTwoFailures(t *testing.T) {
	gen := services.NewMockGenerator().Enqueue(
		services.MockResponse{Err: errors.New("first")},
		services.MockResponse{Err: errors.New("second")},
	)
	log := NewOrchestrator(gen, testLogger(), 0).SimulateDay(context.Background(), dayInput(9))

	assert.Equal(t, FallbackDayLog(9), log)
	assert.Equal(t, 2, gen.CallCount(), "no third attempt")

	require.Len(t, log.Events, 1)
	assert.Equal(t, "00:00", log.Events[0].Time)
	assert.Equal(t, 50.0, log.MoodScore)
	assert.Equal(t, -1.0, *log.ResourceChanges.Oxygen)
	assert.Equal(t, -1.0, *log.ResourceChanges.Food)
	assert.Equal(t, -1.0, *log.ResourceChanges.Water)
	assert.Nil(t, log.ResourceChanges.Fuel)
	assert.Nil(t, log.ResourceChanges.Integrity)
	assert.Empty(t, log.StatusUpdates)
	assert.Empty(t, log.Dialogues)
}

func TestSimulateDay_CancelledDuringBackoff(t *testing.T) {
	gen := services.NewMockGenerator()
	ctx, cancel := context.WithCancel(context.Background())
	gen.GenerateFunc = func(context.Context, chat.GenerateRequest) (string, error) {
		cancel()
		return "", errors.New("first")
	}

	log := NewOrchestrator(gen, testLogger(), time.Hour).SimulateDay(ctx, dayInput(4))
	assert.True(t, log.Fallback)
	assert.Equal(t, 1, gen.CallCount())
}

func TestSimulateDay_InvalidInputFallsBack(t *testing.T) {
	gen := services.NewMockGenerator()
	in := dayInput(61)
	log := NewOrchestrator(gen, testLogger(), 0).SimulateDay(context.Background(), in)
	assert.True(t, log.Fallback)
	assert.Equal(t, 0, gen.CallCount())
}

func TestSimulateEnding(t *testing.T) {
	gen := services.NewMockGenerator().Enqueue(services.MockResponse{
		Text: "```json\n{\"title\":\"Lost\",\"description\":\"Nobody came back.\",\"outcome\":\"failure\"}\n```",
	})
	history := []daylog.DayLog{
		{Day: 1, MoodScore: 40, IsDanger: true, DangerType: "space pirate raid"},
		{Day: 2, MoodScore: 60},
	}
	ending := NewOrchestrator(gen, testLogger(), 0).SimulateEnding(context.Background(), testCrew(), history)

	assert.Equal(t, daylog.OutcomeFailure, ending.Outcome)
	assert.False(t, ending.Fallback)
	require.Equal(t, 1, gen.CallCount())
	assert.Contains(t, gen.Calls[0].Prompt, "Average mood: 50.0")
	assert.Contains(t, gen.Calls[0].Prompt, "Day 1: space pirate raid")
}

func TestSimulateEnding_Fallback(t *testing.T) {
	gen := services.NewMockGenerator().Enqueue(
		services.MockResponse{Text: `{"title":"x","description":"y","outcome":"victory"}`},
		services.MockResponse{Err: errors.New("down")},
	)
	ending := NewOrchestrator(gen, testLogger(), 0).SimulateEnding(context.Background(), testCrew(), nil)

	assert.Equal(t, FallbackEnding(), ending)
	assert.Equal(t, daylog.OutcomeMixed, ending.Outcome)
}
