package simulation

import "github.com/jwebster45206/drifter/pkg/daylog"

const (
	fallbackEventText   = "System communication error. Recovering ship records..."
	fallbackEventTime   = "00:00"
	fallbackMood        = 50.0
	fallbackResourceHit = -1.0

	fallbackEndingTitle       = "The End of the Voyage"
	fallbackEndingDescription = "Communications were lost and the exact outcome is unknown. But the voyage is over."
)

// FallbackDayLog is the day used when generation fails twice or runs out of
// time. It is always the same for a given day.
func FallbackDayLog(day int) daylog.DayLog {
	return daylog.DayLog{
		Day:           day,
		Events:        []daylog.Event{{Text: fallbackEventText, Time: fallbackEventTime}},
		StatusUpdates: []daylog.StatusUpdate{},
		Dialogues:     []daylog.Dialogue{},
		SkillUnlocks:  []daylog.SkillUnlock{},
		MoodScore:     fallbackMood,
		ResourceChanges: daylog.ResourceChanges{
			Oxygen: daylog.Delta(fallbackResourceHit),
			Food:   daylog.Delta(fallbackResourceHit),
			Water:  daylog.Delta(fallbackResourceHit),
		},
		Fallback: true,
	}
}

// FallbackEnding is the ending used when generation fails twice.
func FallbackEnding() daylog.Ending {
	return daylog.Ending{
		Title:       fallbackEndingTitle,
		Description: fallbackEndingDescription,
		Outcome:     daylog.OutcomeMixed,
		Fallback:    true,
	}
}
