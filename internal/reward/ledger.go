// Package reward implements the star and XP ledger for one session.
//
// The ledger is owned by the session loop and is not safe for concurrent
// use. Grants are scaled by the profile's reward intensity, star grants
// report a chest milestone and XP grants carry over into levels.
package reward

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/hammamikhairi/vocalpal/internal/domain"
)

const (
	flameBase       = 1.0
	flameStep       = 0.2
	flameCapGentle  = 1.5
	flameCapDefault = 2.0

	milestoneEveryFrequent = 3
	milestoneEveryDefault  = 5

	rewardWindow         = 2 * time.Second
	majorMilestoneWindow = 2 * time.Second
	minorMilestoneWindow = 1 * time.Second
)

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the clock used to stamp reward events.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithIDGenerator overrides how reward event IDs are generated.
func WithIDGenerator(gen func() string) Option {
	return func(l *Ledger) {
		l.newID = gen
	}
}

// Outcome is the result of one grant.
type Outcome struct {
	Event        domain.RewardEvent
	Milestone    domain.Milestone // star grants only
	LevelsGained int              // xp grants only
}

// Counters is the persisted part of the ledger.
type Counters struct {
	XP    int
	Stars int
	Level int
}

// Ledger holds the running totals for a session.
type Ledger struct {
	profile domain.Profile
	xp      int
	stars   int
	level   int
	flame   float64
	now     func() time.Time
	newID   func() string
}

// NewLedger seeds a ledger from a stored snapshot. The snapshot is
// renormalized first so a ledger never starts outside its invariants.
func NewLedger(profile domain.Profile, snap domain.ProgressSnapshot, opts ...Option) *Ledger {
	snap = snap.Merge(domain.ProgressUpdate{})
	l := &Ledger{
		profile: profile,
		xp:      snap.XP,
		stars:   snap.Stars,
		level:   snap.Level,
		flame:   flameBase,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Adjust scales a base amount by reward intensity. The result is at least 1.
func Adjust(intensity domain.RewardIntensity, amount int) int {
	var out int
	switch intensity {
	case domain.IntensityFrequent:
		out = int(math.Ceil(float64(amount) / 2))
	case domain.IntensityGentle:
		out = int(math.Floor(float64(amount) * 0.8))
	default:
		out = amount
	}
	if out < 1 {
		out = 1
	}
	return out
}

// Grant pays an adjusted reward and returns what it triggered.
func (l *Ledger) Grant(kind domain.RewardKind, base int) (Outcome, error) {
	if base <= 0 {
		return Outcome{}, domain.ErrInvalidAmount
	}

	amount := Adjust(l.profile.RewardIntensity, base)
	out := Outcome{
		Event: domain.RewardEvent{
			ID:       l.newID(),
			Kind:     kind,
			Amount:   amount,
			IssuedAt: l.now(),
		},
	}

	switch kind {
	case domain.RewardStar:
		l.stars += amount
		out.Milestone = domain.MilestoneMinor
		if l.stars%l.milestoneEvery() == 0 {
			out.Milestone = domain.MilestoneMajor
		}
	case domain.RewardXP:
		l.xp += amount
		for l.xp >= domain.XPPerLevel {
			l.xp -= domain.XPPerLevel
			l.level++
			l.flame = math.Min(l.flame+flameStep, l.flameCap())
			out.LevelsGained++
		}
	}
	return out, nil
}

// Spend removes stars for a shop purchase.
func (l *Ledger) Spend(stars int) error {
	if stars <= 0 {
		return domain.ErrInvalidAmount
	}
	if stars > l.stars {
		return domain.ErrNotEnoughStars
	}
	l.stars -= stars
	return nil
}

// SetStars replaces the star balance after an external write such as a
// shop purchase made through the store.
func (l *Ledger) SetStars(stars int) {
	if stars < 0 {
		stars = 0
	}
	l.stars = stars
}

// Counters returns the current totals.
func (l *Ledger) Counters() Counters {
	return Counters{XP: l.xp, Stars: l.stars, Level: l.level}
}

// Update returns the counters as a store update.
func (l *Ledger) Update() domain.ProgressUpdate {
	return domain.CountersUpdate(l.xp, l.stars, l.level)
}

// Flame returns the current flame intensity.
func (l *Ledger) Flame() float64 {
	return l.flame
}

// Profile returns the profile the ledger scales by.
func (l *Ledger) Profile() domain.Profile {
	return l.profile
}

func (l *Ledger) milestoneEvery() int {
	if l.profile.RewardIntensity == domain.IntensityFrequent {
		return milestoneEveryFrequent
	}
	return milestoneEveryDefault
}

func (l *Ledger) flameCap() float64 {
	if l.profile.RewardIntensity == domain.IntensityGentle {
		return flameCapGentle
	}
	return flameCapDefault
}

// RewardWindow is how long a reward event stays on screen.
func RewardWindow(p domain.Profile) time.Duration {
	return scale(rewardWindow, p.AnimationSpeed)
}

// MilestoneWindow is how long the chest stays cracked or open.
func MilestoneWindow(p domain.Profile, m domain.Milestone) time.Duration {
	switch m {
	case domain.MilestoneMajor:
		return scale(majorMilestoneWindow, p.AnimationSpeed)
	case domain.MilestoneMinor:
		return scale(minorMilestoneWindow, p.AnimationSpeed)
	default:
		return 0
	}
}

func scale(d time.Duration, speed float64) time.Duration {
	if speed <= 0 {
		return d
	}
	return time.Duration(float64(d) / speed)
}
