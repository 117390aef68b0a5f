package response

// rawDayLog mirrors the document the generator is asked to produce. Every
// field is optional here; validation decides what is required and converts
// the result into a daylog.DayLog.
type rawDayLog struct {
	Day             *float64            `json:"day"`
	Events          *[]rawEvent         `json:"events"`
	StatusUpdates   *[]rawStatusUpdate  `json:"statusUpdates"`
	IsDanger        *bool               `json:"isDanger"`
	DangerType      *string             `json:"dangerType"`
	Dialogues       []rawDialogue       `json:"dialogues"`
	MoodScore       *float64            `json:"moodScore"`
	ResourceChanges *rawResourceChanges `json:"resourceChanges"`
	SkillUnlocks    []rawSkillUnlock    `json:"skillUnlocks"`
	Choice          *rawChoice          `json:"choice"`
}

type rawEvent struct {
	Text string `json:"text"`
	Time string `json:"time"`
}

type rawStatusUpdate struct {
	CharacterID string `json:"characterId"`
	Status      string `json:"status"`
	IsDead      *bool  `json:"isDead"`
}

type rawDialogue struct {
	CharacterID string `json:"characterId"`
	Text        string `json:"text"`
	Time        string `json:"time"`
}

type rawResourceChanges struct {
	Oxygen    *float64 `json:"oxygen"`
	Food      *float64 `json:"food"`
	Water     *float64 `json:"water"`
	Fuel      *float64 `json:"fuel"`
	Integrity *float64 `json:"integrity"`
}

type rawSkillUnlock struct {
	CharacterID string `json:"characterId"`
	SkillName   string `json:"skillName"`
	Description string `json:"description"`
}

type rawOption struct {
	Text   string `json:"text"`
	Result string `json:"result"`
}

type rawChoice struct {
	Scenario            *string     `json:"scenario"`
	Options             []rawOption `json:"options"`
	SelectedOptionIndex *float64    `json:"selectedOptionIndex"`
}

type rawEnding struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Outcome     *string `json:"outcome"`
}
