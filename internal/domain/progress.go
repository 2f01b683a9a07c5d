package domain

import (
	"sort"
	"time"
)

// XPPerLevel is the XP needed to gain one level. XP is always kept below it.
const XPPerLevel = 100

// ProgressSnapshot is the durable per-user progress record.
type ProgressSnapshot struct {
	UserID               string
	XP                   int // [0, XPPerLevel)
	Stars                int // >= 0
	Level                int // >= 1
	UnlockedItemIDs      []string
	EquippedAccessoryID  string // "" when nothing is equipped
	EquippedBackgroundID string // "" when nothing is equipped
	Condition            string
	SurveyResponses      []string
	UpdatedAt            time.Time
}

// NewSnapshot returns the starting progress for a user.
func NewSnapshot(userID string) ProgressSnapshot {
	return ProgressSnapshot{UserID: userID, Level: 1}
}

// HasUnlocked reports whether the item is in the unlocked set.
func (s ProgressSnapshot) HasUnlocked(itemID string) bool {
	for _, id := range s.UnlockedItemIDs {
		if id == itemID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can't alias slices held by a store.
func (s ProgressSnapshot) Clone() ProgressSnapshot {
	out := s
	if s.UnlockedItemIDs != nil {
		out.UnlockedItemIDs = append([]string(nil), s.UnlockedItemIDs...)
	}
	if s.SurveyResponses != nil {
		out.SurveyResponses = append([]string(nil), s.SurveyResponses...)
	}
	return out
}

// ProgressUpdate is a partial write. Nil fields are left untouched by Merge.
// An empty equipped ID clears the slot.
type ProgressUpdate struct {
	XP                   *int
	Stars                *int
	Level                *int
	UnlockedItemIDs      *[]string
	EquippedAccessoryID  *string
	EquippedBackgroundID *string
	Condition            *string
	SurveyResponses      *[]string
}

// IsEmpty reports whether the update touches no field.
func (u ProgressUpdate) IsEmpty() bool {
	return u.XP == nil && u.Stars == nil && u.Level == nil &&
		u.UnlockedItemIDs == nil && u.EquippedAccessoryID == nil &&
		u.EquippedBackgroundID == nil && u.Condition == nil && u.SurveyResponses == nil
}

// TouchesRewards reports whether the update writes any shop field.
func (u ProgressUpdate) TouchesRewards() bool {
	return u.UnlockedItemIDs != nil || u.EquippedAccessoryID != nil || u.EquippedBackgroundID != nil
}

// CountersUpdate builds an update that writes the three ledger counters.
func CountersUpdate(xp, stars, level int) ProgressUpdate {
	return ProgressUpdate{XP: &xp, Stars: &stars, Level: &level}
}

// Merge applies u on top of s and restores the snapshot invariants: XP is
// renormalized below XPPerLevel (overflow carries into Level), Stars is
// clamped at zero, Level is at least 1 and unlocked IDs form a sorted set.
func (s ProgressSnapshot) Merge(u ProgressUpdate) ProgressSnapshot {
	out := s.Clone()
	if u.XP != nil {
		out.XP = *u.XP
	}
	if u.Stars != nil {
		out.Stars = *u.Stars
	}
	if u.Level != nil {
		out.Level = *u.Level
	}
	if u.UnlockedItemIDs != nil {
		out.UnlockedItemIDs = normalizeIDs(*u.UnlockedItemIDs)
	}
	if u.EquippedAccessoryID != nil {
		out.EquippedAccessoryID = *u.EquippedAccessoryID
	}
	if u.EquippedBackgroundID != nil {
		out.EquippedBackgroundID = *u.EquippedBackgroundID
	}
	if u.Condition != nil {
		out.Condition = *u.Condition
	}
	if u.SurveyResponses != nil {
		out.SurveyResponses = append([]string(nil), (*u.SurveyResponses)...)
	}

	if out.Level < 1 {
		out.Level = 1
	}
	if out.XP < 0 {
		out.XP = 0
	}
	for out.XP >= XPPerLevel {
		out.XP -= XPPerLevel
		out.Level++
	}
	if out.Stars < 0 {
		out.Stars = 0
	}
	return out
}

func normalizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
