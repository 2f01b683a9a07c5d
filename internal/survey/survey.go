// Package survey runs the onboarding questionnaire that picks the child's
// condition and records a few yes/no/sometimes answers.
package survey

import (
	"context"
	"errors"
	"fmt"

	"github.com/hammamikhairi/vocalpal/internal/conversation"
	"github.com/hammamikhairi/vocalpal/internal/domain"
	"github.com/hammamikhairi/vocalpal/internal/logger"
)

var (
	ErrNoSuchQuestion = errors.New("no such survey question")
	ErrInvalidAnswer  = errors.New("invalid survey answer")
	ErrNotUnderstood  = errors.New("survey answer not understood")
)

// Kind says how a question is answered.
type Kind int

const (
	KindCondition Kind = iota // pick one of ConditionOptions
	KindStandard              // yes / no / sometimes
)

// Question is one survey prompt.
type Question struct {
	Text string
	Kind Kind
}

// ConditionOption is one choice for the condition question.
type ConditionOption struct {
	ID          string
	Label       string
	Description string
}

var conditionOptions = []ConditionOption{
	{ID: "autism", Label: "Autism", Description: "I prefer clear routines and may be sensitive to sounds or lights"},
	{ID: "adhd", Label: "ADHD", Description: "I sometimes find it hard to focus and might feel very energetic"},
	{ID: "dyslexia", Label: "Dyslexia", Description: "I might find reading challenging sometimes"},
	{ID: "none", Label: "None", Description: "I'm here to practice speaking and have fun!"},
}

var questions = []Question{
	{Text: "First, let's understand you better! Which of these describes you?", Kind: KindCondition},
	{Text: "Do you talk a lot?", Kind: KindStandard},
	{Text: "Do you repeat words?", Kind: KindStandard},
	{Text: "Do you stutter?", Kind: KindStandard},
	{Text: "Do you move a lot?", Kind: KindStandard},
	{Text: "Is talking hard?", Kind: KindStandard},
}

// Questions returns the survey in order.
func Questions() []Question { return append([]Question(nil), questions...) }

// ConditionOptions returns the choices for the condition question.
func ConditionOptions() []ConditionOption {
	return append([]ConditionOption(nil), conditionOptions...)
}

// Survey collects answers for one child. It is not safe for concurrent use.
type Survey struct {
	answers   []domain.SurveyAnswer
	condition string
	log       *logger.Logger
}

// New creates an empty survey.
func New(log *logger.Logger) *Survey {
	return &Survey{answers: make([]domain.SurveyAnswer, len(questions)), log: log}
}

// Answer records a typed or clicked answer. The condition question takes an
// option ID; the others take Yes, No or Sometimes.
func (s *Survey) Answer(i int, value string) error {
	if i < 0 || i >= len(questions) {
		return fmt.Errorf("question %d: %w", i, ErrNoSuchQuestion)
	}

	if questions[i].Kind == KindCondition {
		if !validCondition(value) {
			return fmt.Errorf("condition %q: %w", value, ErrInvalidAnswer)
		}
		s.condition = value
		// Stored as a plain Yes alongside the other answers.
		s.answers[i] = domain.AnswerYes
		s.log.Debug("survey: condition=%s", value)
		return nil
	}

	switch a := domain.SurveyAnswer(value); a {
	case domain.AnswerYes, domain.AnswerNo, domain.AnswerSometimes:
		s.answers[i] = a
		s.log.Debug("survey: q%d=%s", i, a)
		return nil
	default:
		return fmt.Errorf("answer %q: %w", value, ErrInvalidAnswer)
	}
}

// AnswerVoice classifies a spoken reply and records it. It returns
// ErrNotUnderstood when nothing matched; conversation.LineDidNotCatch is the
// message to show.
func (s *Survey) AnswerVoice(i int, transcript string) error {
	if i < 0 || i >= len(questions) {
		return fmt.Errorf("question %d: %w", i, ErrNoSuchQuestion)
	}

	if questions[i].Kind == KindCondition {
		name, ok := conversation.ClassifyCondition(transcript)
		if !ok {
			return fmt.Errorf("%q: %w", transcript, ErrNotUnderstood)
		}
		return s.Answer(i, name)
	}

	answer, ok := conversation.ClassifyAnswer(transcript)
	if !ok {
		return fmt.Errorf("%q: %w", transcript, ErrNotUnderstood)
	}
	return s.Answer(i, string(answer))
}

// Next returns the index of the first unanswered question, or -1 when the
// survey is complete.
func (s *Survey) Next() int {
	for i, a := range s.answers {
		if a == "" {
			return i
		}
	}
	return -1
}

// Complete reports whether every question has an answer.
func (s *Survey) Complete() bool { return s.Next() == -1 }

// Condition returns the chosen condition name, or "none" before it is picked.
func (s *Survey) Condition() string {
	if s.condition == "" {
		return "none"
	}
	return s.condition
}

// Submit saves the condition and answers for the user and returns the tag
// the session should start with. A failed save is logged and the tag is
// still returned so onboarding can continue.
func (s *Survey) Submit(ctx context.Context, store domain.ProgressStore, userID string) (domain.ConditionTag, error) {
	if !s.Complete() {
		return domain.ConditionNone, fmt.Errorf("question %d unanswered: %w", s.Next(), domain.ErrIncompleteSurvey)
	}

	condition := s.Condition()
	responses := make([]string, len(s.answers))
	for i, a := range s.answers {
		responses[i] = string(a)
	}

	update := domain.ProgressUpdate{Condition: &condition, SurveyResponses: &responses}
	if err := store.Save(ctx, userID, update); err != nil {
		perr := &domain.PersistenceError{Op: "save", UserID: userID, Err: err}
		s.log.Error("saving survey responses: %v", perr)
	} else {
		s.log.Info("survey saved for %s (condition=%s)", userID, condition)
	}

	return domain.ParseConditionTag(condition), nil
}

func validCondition(id string) bool {
	for _, o := range conditionOptions {
		if o.ID == id {
			return true
		}
	}
	return false
}
