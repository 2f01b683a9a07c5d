package main

import (
	"errors"
	"testing"

	"github.com/hammamikhairi/vocalpal/internal/logger"
	"github.com/hammamikhairi/vocalpal/internal/survey"
)

func TestAnswerSurvey(t *testing.T) {
	qs := survey.Questions()
	options := survey.ConditionOptions()

	tests := []struct {
		name      string
		question  int
		line      string
		condition string
		wantErr   error
	}{
		{"condition by number", 0, "2", "adhd", nil},
		{"condition by name", 0, "I have dyslexia", "dyslexia", nil},
		{"number out of range", 0, "9", "none", survey.ErrNotUnderstood},
		{"yes", 1, "yes please", "none", nil},
		{"gibberish", 2, "banana", "none", survey.ErrNotUnderstood},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sv := survey.New(logger.New(logger.LevelOff, nil))
			err := answerSurvey(sv, tt.question, qs[tt.question], options, tt.line)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got := sv.Condition(); got != tt.condition {
				t.Fatalf("condition = %q, want %q", got, tt.condition)
			}
		})
	}
}
