package survey

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/hammamikhairi/vocalpal/internal/domain"
	"github.com/hammamikhairi/vocalpal/internal/logger"
	"github.com/hammamikhairi/vocalpal/internal/storage"
)

func newSurvey() *Survey { return New(logger.New(logger.LevelOff, nil)) }

func TestAnswerValidation(t *testing.T) {
	tests := []struct {
		name  string
		i     int
		value string
		want  error
	}{
		{"condition", 0, "adhd", nil},
		{"unknown condition", 0, "sleepy", ErrInvalidAnswer},
		{"yes", 1, "Yes", nil},
		{"sometimes", 5, "Sometimes", nil},
		{"lowercase rejected", 2, "yes", ErrInvalidAnswer},
		{"negative index", -1, "Yes", ErrNoSuchQuestion},
		{"past end", 6, "Yes", ErrNoSuchQuestion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newSurvey().Answer(tt.i, tt.value)
			if tt.want == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAnswerVoice(t *testing.T) {
	s := newSurvey()
	if err := s.AnswerVoice(0, "I have ADHD"); err != nil {
		t.Fatal(err)
	}
	if s.Condition() != "adhd" {
		t.Fatalf("condition = %q", s.Condition())
	}

	cases := map[int]string{1: "yes please", 2: "nope", 3: "sometimes I do"}
	for i, text := range cases {
		if err := s.AnswerVoice(i, text); err != nil {
			t.Fatalf("AnswerVoice(%d, %q): %v", i, text, err)
		}
	}
	want := []domain.SurveyAnswer{domain.AnswerYes, domain.AnswerYes, domain.AnswerNo, domain.AnswerSometimes, "", ""}
	if !reflect.DeepEqual(s.answers, want) {
		t.Fatalf("answers = %v, want %v", s.answers, want)
	}

	if err := s.AnswerVoice(4, "maybe"); !errors.Is(err, ErrNotUnderstood) {
		t.Fatalf("error = %v, want ErrNotUnderstood", err)
	}
	if s.Next() != 4 {
		t.Fatalf("next = %d, want 4", s.Next())
	}
}

func fill(t *testing.T, s *Survey, condition string) {
	t.Helper()
	if err := s.Answer(0, condition); err != nil {
		t.Fatal(err)
	}
	for i, a := range []string{"Yes", "No", "Sometimes", "No", "Yes"} {
		if err := s.Answer(i+1, a); err != nil {
			t.Fatal(err)
		}
	}
}

func TestSubmitIncomplete(t *testing.T) {
	s := newSurvey()
	_ = s.Answer(0, "autism")
	store := storage.NewMemoryStore(logger.New(logger.LevelOff, nil))

	if _, err := s.Submit(context.Background(), store, "kid"); !errors.Is(err, domain.ErrIncompleteSurvey) {
		t.Fatalf("error = %v, want ErrIncompleteSurvey", err)
	}
	if _, err := store.Load(context.Background(), "kid"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatal("incomplete survey must not write")
	}
}

func TestSubmitCreatesSnapshot(t *testing.T) {
	s := newSurvey()
	fill(t, s, "dyslexia")
	store := storage.NewMemoryStore(logger.New(logger.LevelOff, nil))
	ctx := context.Background()

	tag, err := s.Submit(ctx, store, "kid")
	if err != nil {
		t.Fatal(err)
	}
	if tag != domain.ConditionDyslexia {
		t.Fatalf("tag = %v", tag)
	}

	snap, err := store.Load(ctx, "kid")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Level != 1 || snap.Condition != "dyslexia" {
		t.Fatalf("snapshot = %+v", snap)
	}
	want := []string{"Yes", "Yes", "No", "Sometimes", "No", "Yes"}
	if !reflect.DeepEqual(snap.SurveyResponses, want) {
		t.Fatalf("responses = %v, want %v", snap.SurveyResponses, want)
	}
}

func TestSubmitKeepsProgress(t *testing.T) {
	store := storage.NewMemoryStore(logger.New(logger.LevelOff, nil))
	ctx := context.Background()
	_ = store.Save(ctx, "kid", domain.CountersUpdate(40, 7, 3))

	s := newSurvey()
	fill(t, s, "none")
	if _, err := s.Submit(ctx, store, "kid"); err != nil {
		t.Fatal(err)
	}

	snap, _ := store.Load(ctx, "kid")
	if snap.XP != 40 || snap.Stars != 7 || snap.Level != 3 {
		t.Fatalf("counters lost: %+v", snap)
	}
}

type brokenStore struct{}

func (brokenStore) Load(context.Context, string) (domain.ProgressSnapshot, error) {
	return domain.ProgressSnapshot{}, errors.New("offline")
}

func (brokenStore) Save(context.Context, string, domain.ProgressUpdate) error {
	return errors.New("offline")
}

func TestSubmitSaveFailureStillReturnsTag(t *testing.T) {
	s := newSurvey()
	fill(t, s, "autism")
	tag, err := s.Submit(context.Background(), brokenStore{}, "kid")
	if err != nil {
		t.Fatalf("save failure should not stop onboarding: %v", err)
	}
	if tag != domain.ConditionAutism {
		t.Fatalf("tag = %v", tag)
	}
}

func TestCatalogShape(t *testing.T) {
	qs := Questions()
	if len(qs) != 6 || qs[0].Kind != KindCondition {
		t.Fatalf("questions = %+v", qs)
	}
	for _, q := range qs[1:] {
		if q.Kind != KindStandard {
			t.Fatalf("%q should be a standard question", q.Text)
		}
	}
	for _, o := range ConditionOptions() {
		if o.ID != "none" && domain.ParseConditionTag(o.ID) == domain.ConditionNone {
			t.Fatalf("option %q does not parse", o.ID)
		}
	}
}
