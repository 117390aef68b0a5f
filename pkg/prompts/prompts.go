package prompts

import "github.com/jwebster45206/drifter/pkg/chat"

const (
	// DayMaxOutputTokens caps the generator output for a single day.
	DayMaxOutputTokens = 4096
	// EndingMaxOutputTokens caps the generator output for the ending.
	EndingMaxOutputTokens = 2048

	// DefaultHistoryLimit is how many previous days are summarized in a
	// day prompt.
	DefaultHistoryLimit = 5
)

// SystemInstruction frames every generation call.
const SystemInstruction = `You are a simulation engine. Always output valid JSON. Be extremely concise. Do not include newlines or control characters inside JSON strings. Escape all special characters. Do not add trailing commas.`

// CrisisTypes are the kinds of danger the generator may pick from.
var CrisisTypes = []string{
	"alien intrusion",
	"critical hull damage",
	"space pirate raid",
	"system runaway",
	"epidemic outbreak",
	"severe crew infighting",
	"black hole proximity",
}

const dayDirectives = `Write 2-3 interactions and incidents that happened aboard the ship today. Keep it very concise.

### Directives
1. Character driven: derive every action and line from the crew member's MBTI, personality keywords and skills. Relationships (friendship, conflict, cooperation) must show.
2. Variety: avoid mechanical daily routine. Include unexpected, creative incidents such as a birthday party, a small misunderstanding, a technical discovery or a philosophical debate.
3. Resources and hull: oxygen, food and water are consumed every day. Hull integrity may change depending on events.
4. Choice: describe one moral, strategic or survival decision the crew faced today, which option they took and its immediate result.

### Requirements
1. Include 1-2 short dialogues that reveal personality.
2. moodScore: 0-100.
3. resourceChanges: today's numeric deltas (integrity may be included).
4. skillUnlocks: any skill learned or improved today.
5. choice: {"scenario": "...", "options": [{"text": "...", "result": "..."}], "selectedOptionIndex": 0}.
6. Refer to crew members by the id shown in brackets.`

const (
	forcedCrisisDirective = `A crisis MUST occur today. Set isDanger to true and name it in dangerType.`
	randomCrisisDirective = `There is about a 15% chance that a crisis occurs today.`

	casualtyDirective = `During a crisis crew members may be injured (status: "injured") or, rarely, die (isDead: true). Reflect this in statusUpdates. Death must be decided with great care and only at dramatic moments.`
)

const endingDirectives = `Based on this record, write the ending of the voyage.
Choose one outcome according to survivors, morale and the choices the crew made: "success" (safe return to Earth), "failure" (lost or wiped out before reaching Earth) or "mixed" (some survive and return scarred).
Describe concretely how sacrifices, heroic acts or tragic choices shaped the ending. The description is 3-5 sentences.`

// DayLogSchema is the response shape requested for a day.
func DayLogSchema() *chat.Schema {
	return chat.Object(map[string]*chat.Schema{
		"day": chat.Number(),
		"events": chat.ArrayOf(chat.Object(map[string]*chat.Schema{
			"text": chat.String(),
			"time": chat.String(),
		}, "text", "time")),
		"statusUpdates": chat.ArrayOf(chat.Object(map[string]*chat.Schema{
			"characterId": chat.String(),
			"status":      chat.String(),
			"isDead":      chat.Boolean(),
		}, "characterId", "status")),
		"isDanger":   chat.Boolean(),
		"dangerType": chat.String(),
		"dialogues": chat.ArrayOf(chat.Object(map[string]*chat.Schema{
			"characterId": chat.String(),
			"text":        chat.String(),
			"time":        chat.String(),
		}, "characterId", "text", "time")),
		"moodScore": chat.Number(),
		"resourceChanges": chat.Object(map[string]*chat.Schema{
			"oxygen":    chat.Number(),
			"food":      chat.Number(),
			"water":     chat.Number(),
			"fuel":      chat.Number(),
			"integrity": chat.Number(),
		}),
		"skillUnlocks": chat.ArrayOf(chat.Object(map[string]*chat.Schema{
			"characterId": chat.String(),
			"skillName":   chat.String(),
			"description": chat.String(),
		}, "characterId", "skillName", "description")),
		"choice": chat.Object(map[string]*chat.Schema{
			"scenario": chat.String(),
			"options": chat.ArrayOf(chat.Object(map[string]*chat.Schema{
				"text":   chat.String(),
				"result": chat.String(),
			}, "text", "result")),
			"selectedOptionIndex": chat.Number(),
		}, "scenario", "options", "selectedOptionIndex"),
	}, "day", "events", "statusUpdates", "moodScore", "dialogues", "resourceChanges")
}

// EndingSchema is the response shape requested for the ending.
func EndingSchema() *chat.Schema {
	return chat.Object(map[string]*chat.Schema{
		"title":       chat.String(),
		"description": chat.String(),
		"outcome":     chat.Enum("success", "failure", "mixed"),
	}, "title", "description", "outcome")
}
