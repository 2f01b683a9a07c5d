package domain

import "time"

// RewardKind is the currency a reward is paid in.
type RewardKind int

const (
	RewardXP RewardKind = iota
	RewardStar
)

// String returns a human-readable reward kind.
func (k RewardKind) String() string {
	if k == RewardStar {
		return "star"
	}
	return "xp"
}

// MarshalText encodes the kind by name.
func (k RewardKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// RewardEvent is a transient reward shown by the renderer for a short window.
// It is never persisted individually.
type RewardEvent struct {
	ID       string     `json:"id"`
	Kind     RewardKind `json:"kind"`
	Amount   int        `json:"amount"`
	IssuedAt time.Time  `json:"issuedAt"`
}

// Milestone is the chest signal reported by a star grant.
type Milestone int

const (
	MilestoneNone Milestone = iota
	MilestoneMinor
	MilestoneMajor
)

// String returns a human-readable milestone.
func (m Milestone) String() string {
	switch m {
	case MilestoneMinor:
		return "minor"
	case MilestoneMajor:
		return "major"
	default:
		return "none"
	}
}

// ChestState is the treasure chest shown next to the star counter.
type ChestState int

const (
	ChestClosed ChestState = iota
	ChestCracked
	ChestOpen
)

// String returns a human-readable chest state.
func (c ChestState) String() string {
	switch c {
	case ChestCracked:
		return "cracked"
	case ChestOpen:
		return "open"
	default:
		return "closed"
	}
}

// MarshalText encodes the chest state by name.
func (c ChestState) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// ChestFor maps a milestone to the chest state it triggers.
func ChestFor(m Milestone) ChestState {
	switch m {
	case MilestoneMajor:
		return ChestOpen
	case MilestoneMinor:
		return ChestCracked
	default:
		return ChestClosed
	}
}
