// Package profile maps a condition tag to its fixed bundle of interaction
// tunables.
package profile

import "github.com/hammamikhairi/vocalpal/internal/domain"

var (
	autism = domain.Profile{
		Tag:             domain.ConditionAutism,
		AnimationSpeed:  0.7,
		SoundVolume:     0.2,
		RewardIntensity: domain.IntensityGentle,
		SpeechRate:      0.9,
		Theme:           "calm",
		TigerScale:      0.25,
		UIDensity:       "sparse",
	}
	adhd = domain.Profile{
		Tag:             domain.ConditionADHD,
		AnimationSpeed:  1.2,
		SoundVolume:     0.4,
		RewardIntensity: domain.IntensityFrequent,
		SpeechRate:      1.1,
		Theme:           "energetic",
		TigerScale:      0.33,
		UIDensity:       "dynamic",
	}
	dyslexia = domain.Profile{
		Tag:             domain.ConditionDyslexia,
		AnimationSpeed:  1.0,
		SoundVolume:     0.3,
		RewardIntensity: domain.IntensityVisual,
		SpeechRate:      1.0,
		Theme:           "soft",
		TigerScale:      0.33,
		UIDensity:       "clear",
	}
	baseline = domain.Profile{
		Tag:             domain.ConditionNone,
		AnimationSpeed:  1.0,
		SoundVolume:     0.3,
		RewardIntensity: domain.IntensityStandard,
		SpeechRate:      1.0,
		Theme:           "default",
		TigerScale:      0.33,
		UIDensity:       "balanced",
	}
)

// Resolve returns the profile for a tag. Anything outside the known set
// falls back to the baseline profile.
func Resolve(tag domain.ConditionTag) domain.Profile {
	switch tag {
	case domain.ConditionAutism:
		return autism
	case domain.ConditionADHD:
		return adhd
	case domain.ConditionDyslexia:
		return dyslexia
	case domain.ConditionNone:
		return baseline
	default:
		return baseline
	}
}

// ResolveString parses a raw condition tag and resolves it.
func ResolveString(tag string) domain.Profile {
	return Resolve(domain.ParseConditionTag(tag))
}

// All returns every profile in onboarding order.
func All() []domain.Profile {
	return []domain.Profile{autism, adhd, dyslexia, baseline}
}
