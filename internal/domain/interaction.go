package domain

// Mood is the tiger's presentation state.
type Mood int

const (
	MoodIdle Mood = iota
	MoodSpeaking
	MoodHappy
	MoodWave
)

// String returns a human-readable mood.
func (m Mood) String() string {
	switch m {
	case MoodSpeaking:
		return "speaking"
	case MoodHappy:
		return "happy"
	case MoodWave:
		return "wave"
	default:
		return "idle"
	}
}

// MarshalText encodes the mood by name.
func (m Mood) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// IntentType classifies what a child's utterance was about.
type IntentType int

const (
	IntentUnknown IntentType = iota
	IntentGreeting
	IntentHappy // dog talk makes the tiger happy
)

// String returns a human-readable intent type.
func (i IntentType) String() string {
	switch i {
	case IntentGreeting:
		return "greeting"
	case IntentHappy:
		return "happy"
	default:
		return "unknown"
	}
}

// Intent is a classified transcript.
type Intent struct {
	Type    IntentType
	Keyword string // the keyword that matched, empty for unknown
	Text    string // original transcript
}

// SurveyAnswer is a response to a yes/no/sometimes survey question.
type SurveyAnswer string

const (
	AnswerYes       SurveyAnswer = "Yes"
	AnswerNo        SurveyAnswer = "No"
	AnswerSometimes SurveyAnswer = "Sometimes"
)
