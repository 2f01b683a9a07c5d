package conversation

import (
	"testing"

	"github.com/hammamikhairi/vocalpal/internal/domain"
	"github.com/hammamikhairi/vocalpal/internal/logger"
)

func TestKeywordClassifier(t *testing.T) {
	c := NewKeywordClassifier(logger.New(logger.LevelOff, nil))

	tests := []struct {
		input       string
		wantType    domain.IntentType
		wantKeyword string
		wantReply   string
	}{
		// Greetings
		{"hello buddy", domain.IntentGreeting, "hello", "Hi there! I'm your VocalPal!"},
		{"HI", domain.IntentGreeting, "hi", "Hi there! I'm your VocalPal!"},
		{"  Hello  ", domain.IntentGreeting, "hello", "Hi there! I'm your VocalPal!"},

		// Greeting wins over dog talk.
		{"hi doggy", domain.IntentGreeting, "hi", "Hi there! I'm your VocalPal!"},

		// Substring match, not word match.
		{"this is fun", domain.IntentGreeting, "hi", "Hi there! I'm your VocalPal!"},

		// Dogs
		{"I have a dog", domain.IntentHappy, "dog", "Woof! I love dogs too!"},
		{"DOGS are great", domain.IntentHappy, "dog", "Woof! I love dogs too!"},

		// Fallback echoes the trimmed transcript.
		{"I like cats ", domain.IntentUnknown, "", "I heard you say: I like cats"},
		{"banana", domain.IntentUnknown, "", "I heard you say: banana"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := c.Classify(tt.input)
			if got.Type != tt.wantType {
				t.Fatalf("type = %s, want %s", got.Type, tt.wantType)
			}
			if got.Keyword != tt.wantKeyword {
				t.Errorf("keyword = %q, want %q", got.Keyword, tt.wantKeyword)
			}
			if reply := Reply(got); reply != tt.wantReply {
				t.Errorf("reply = %q, want %q", reply, tt.wantReply)
			}
		})
	}
}

func TestClassifyAnswer(t *testing.T) {
	tests := []struct {
		input  string
		want   domain.SurveyAnswer
		wantOK bool
	}{
		{"Yes I do", domain.AnswerYes, true},
		{"no", domain.AnswerNo, true},
		{"sometimes", domain.AnswerSometimes, true},
		{"yes and no", domain.AnswerYes, true},
		{"maybe", "", false},
	}
	for _, tt := range tests {
		got, ok := ClassifyAnswer(tt.input)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ClassifyAnswer(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestClassifyCondition(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"I have ADHD", "adhd", true},
		{"a d h d", "adhd", true},
		{"Dyslexia", "dyslexia", true},
		{"none of them", "none", true},
		{"pizza", "", false},
	}
	for _, tt := range tests {
		got, ok := ClassifyCondition(tt.input)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ClassifyCondition(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}
