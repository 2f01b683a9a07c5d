package session

import (
	"github.com/hammamikhairi/vocalpal/internal/domain"
)

// State is what a renderer needs to draw the practice screen. It is
// session-local and never persisted.
type State struct {
	UserID    string `json:"userId"`
	Condition string `json:"condition"`

	Mood      domain.Mood       `json:"mood"`
	Listening bool              `json:"listening"`
	Bubble    string            `json:"bubble"`
	Chest     domain.ChestState `json:"chest"`
	Flame     float64           `json:"flame"`

	XP    int `json:"xp"`
	Stars int `json:"stars"`
	Level int `json:"level"`

	// Rewards currently on screen, oldest first.
	Rewards []domain.RewardEvent `json:"rewards"`

	Theme             string  `json:"theme"`
	EquippedAccessory string  `json:"equippedAccessory,omitempty"`
	TigerScale        float64 `json:"tigerScale"`
	AnimationSpeed    float64 `json:"animationSpeed"`

	// SyncPending is set while the last counter write has failed.
	SyncPending bool `json:"syncPending"`
}

func (s State) clone() State {
	out := s
	out.Rewards = append([]domain.RewardEvent(nil), s.Rewards...)
	return out
}

// themeFor picks the ambient theme. Only backgrounds the renderer knows
// override the profile default.
func themeFor(background string, p domain.Profile) string {
	switch background {
	case "beach", "starry-sky":
		return background
	default:
		return p.Theme
	}
}
