// Package conversation turns what the child said into a tiger reaction and
// holds every line of text the tiger shows.
package conversation

import (
	"strings"

	"github.com/hammamikhairi/vocalpal/internal/domain"
	"github.com/hammamikhairi/vocalpal/internal/logger"
)

// Compile-time interface check.
var _ domain.IntentClassifier = (*KeywordClassifier)(nil)

// KeywordClassifier matches transcripts to intents by case-insensitive
// substring. Rules are checked in order and the first hit wins, so a
// greeting beats dog talk in "hi doggy".
type KeywordClassifier struct {
	log   *logger.Logger
	rules []keywordRule
}

type keywordRule struct {
	keywords []string
	intent   domain.IntentType
}

// NewKeywordClassifier creates the default keyword classifier.
func NewKeywordClassifier(log *logger.Logger) *KeywordClassifier {
	return &KeywordClassifier{
		log: log,
		rules: []keywordRule{
			{keywords: []string{"hello", "hi"}, intent: domain.IntentGreeting},
			{keywords: []string{"dog"}, intent: domain.IntentHappy},
		},
	}
}

// Classify converts a transcript into an intent. Matching is on raw
// substrings, so "this" counts as a greeting.
func (c *KeywordClassifier) Classify(transcript string) domain.Intent {
	text := strings.TrimSpace(transcript)
	lower := strings.ToLower(text)

	for _, rule := range c.rules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				c.log.Debug("matched %q -> %s", kw, rule.intent)
				return domain.Intent{Type: rule.intent, Keyword: kw, Text: text}
			}
		}
	}

	c.log.Debug("no keyword in %q", text)
	return domain.Intent{Type: domain.IntentUnknown, Text: text}
}

// ClassifyAnswer maps a spoken survey reply to an answer. "yes" is checked
// before "no", then "sometimes".
func ClassifyAnswer(transcript string) (domain.SurveyAnswer, bool) {
	lower := strings.ToLower(transcript)
	switch {
	case strings.Contains(lower, "yes"):
		return domain.AnswerYes, true
	case strings.Contains(lower, "no"):
		return domain.AnswerNo, true
	case strings.Contains(lower, "sometimes"):
		return domain.AnswerSometimes, true
	default:
		return "", false
	}
}

// ClassifyCondition maps a spoken onboarding reply to a condition tag name.
func ClassifyCondition(transcript string) (string, bool) {
	lower := strings.ToLower(transcript)
	for _, name := range []string{"autism", "adhd", "dyslexia", "none"} {
		if strings.Contains(lower, name) {
			return name, true
		}
	}
	// Recognizers often spell the acronym out.
	if strings.Contains(lower, "a.d.h.d") || strings.Contains(lower, "a d h d") {
		return "adhd", true
	}
	return "", false
}
