package profile

import (
	"testing"

	"github.com/hammamikhairi/vocalpal/internal/domain"
)

func TestResolveKnownTags(t *testing.T) {
	tests := []struct {
		tag       string
		want      domain.ConditionTag
		intensity domain.RewardIntensity
		speed     float64
		rate      float64
	}{
		{"autism", domain.ConditionAutism, domain.IntensityGentle, 0.7, 0.9},
		{"adhd", domain.ConditionADHD, domain.IntensityFrequent, 1.2, 1.1},
		{"dyslexia", domain.ConditionDyslexia, domain.IntensityVisual, 1.0, 1.0},
		{"none", domain.ConditionNone, domain.IntensityStandard, 1.0, 1.0},
		{"ADHD", domain.ConditionADHD, domain.IntensityFrequent, 1.2, 1.1},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			p := ResolveString(tt.tag)
			if p.Tag != tt.want {
				t.Fatalf("tag = %s, want %s", p.Tag, tt.want)
			}
			if p.RewardIntensity != tt.intensity {
				t.Errorf("intensity = %s, want %s", p.RewardIntensity, tt.intensity)
			}
			if p.AnimationSpeed != tt.speed {
				t.Errorf("animation speed = %v, want %v", p.AnimationSpeed, tt.speed)
			}
			if p.SpeechRate != tt.rate {
				t.Errorf("speech rate = %v, want %v", p.SpeechRate, tt.rate)
			}
		})
	}
}

func TestResolveUnknownFallsBackToNone(t *testing.T) {
	for _, tag := range []string{"", "unknown", "asd", "dyslexic", "none ", "🐯"} {
		p := ResolveString(tag)
		if p != Resolve(domain.ConditionNone) {
			t.Errorf("ResolveString(%q) = %+v, want baseline profile", tag, p)
		}
	}
	if p := Resolve(domain.ConditionTag(42)); p.Tag != domain.ConditionNone {
		t.Errorf("out-of-range tag resolved to %s", p.Tag)
	}
}

func TestProfilesAreValid(t *testing.T) {
	for _, p := range All() {
		if p.AnimationSpeed <= 0 || p.SpeechRate <= 0 {
			t.Errorf("%s: speeds must be positive: %+v", p.Tag, p)
		}
		if p.SoundVolume < 0 || p.SoundVolume > 1 {
			t.Errorf("%s: volume out of range: %v", p.Tag, p.SoundVolume)
		}
	}
}
