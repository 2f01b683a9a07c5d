package domain

import "strings"

// ConditionTag is the accessibility category selected during onboarding.
type ConditionTag int

const (
	ConditionNone ConditionTag = iota
	ConditionAutism
	ConditionADHD
	ConditionDyslexia
)

// String returns the wire name of the tag.
func (c ConditionTag) String() string {
	switch c {
	case ConditionAutism:
		return "autism"
	case ConditionADHD:
		return "adhd"
	case ConditionDyslexia:
		return "dyslexia"
	default:
		return "none"
	}
}

// ParseConditionTag converts a tag name to a ConditionTag. Unknown or empty
// names resolve to ConditionNone; this is never an error.
func ParseConditionTag(name string) ConditionTag {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "autism":
		return ConditionAutism
	case "adhd":
		return ConditionADHD
	case "dyslexia":
		return ConditionDyslexia
	default:
		return ConditionNone
	}
}

// RewardIntensity controls how grants are scaled for a profile.
type RewardIntensity int

const (
	IntensityStandard RewardIntensity = iota
	IntensityGentle
	IntensityFrequent
	IntensityVisual
)

// String returns a human-readable intensity.
func (r RewardIntensity) String() string {
	switch r {
	case IntensityGentle:
		return "gentle"
	case IntensityFrequent:
		return "frequent"
	case IntensityVisual:
		return "visual"
	default:
		return "standard"
	}
}

// Profile is the immutable bundle of interaction tunables for a condition.
type Profile struct {
	Tag             ConditionTag
	AnimationSpeed  float64 // > 0; display windows are divided by this
	SoundVolume     float64 // [0, 1]
	RewardIntensity RewardIntensity
	SpeechRate      float64 // > 0
	Theme           string  // default background palette
	TigerScale      float64 // fraction of the stage width
	UIDensity       string
}
