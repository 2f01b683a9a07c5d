package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/supabase-community/supabase-go"

	"github.com/hammamikhairi/vocalpal/internal/domain"
	"github.com/hammamikhairi/vocalpal/internal/logger"
)

// Compile-time interface check.
var _ domain.ProgressStore = (*SupabaseStore)(nil)

// SupabaseConfig points the store at a Supabase project.
type SupabaseConfig struct {
	URL   string
	Key   string
	Table string // defaults to "users"
}

// usersRow is one row of the hosted users table. Shop state lives in the
// rewards JSON column.
type usersRow struct {
	ID              string     `json:"id"`
	XP              int        `json:"xp"`
	Stars           int        `json:"stars"`
	Level           int        `json:"level"`
	Condition       string     `json:"condition"`
	SurveyResponses []string   `json:"surveyResponses"`
	Rewards         rewardsDoc `json:"rewards"`
}

type rewardsDoc struct {
	UnlockedItems      []string `json:"unlockedItems"`
	EquippedAccessory  *string  `json:"equippedAccessory"`
	EquippedBackground *string  `json:"equippedBackground"`
}

// SupabaseStore persists progress in a Supabase users table through
// PostgREST. PostgREST has no server-side merge, so Save reads the row,
// merges locally and upserts the result. Writes from this process are
// serialized.
type SupabaseStore struct {
	client *supabase.Client
	table  string
	log    *logger.Logger
	mu     sync.Mutex
}

// NewSupabaseStore creates a store backed by the given project.
func NewSupabaseStore(cfg SupabaseConfig, log *logger.Logger) (*SupabaseStore, error) {
	client, err := supabase.NewClient(cfg.URL, cfg.Key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	table := cfg.Table
	if table == "" {
		table = "users"
	}
	log.Info("supabase progress store ready (table=%s)", table)
	return &SupabaseStore{client: client, table: table, log: log}, nil
}

// Load retrieves a user's progress.
func (s *SupabaseStore) Load(ctx context.Context, userID string) (domain.ProgressSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.ProgressSnapshot{}, err
	}
	row, err := s.fetch(userID)
	if err != nil {
		return domain.ProgressSnapshot{}, err
	}
	return rowToSnapshot(row), nil
}

// Save merges the update into the user's row, creating it if needed.
func (s *SupabaseStore) Save(ctx context.Context, userID string, update domain.ProgressUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := domain.NewSnapshot(userID)
	row, err := s.fetch(userID)
	switch {
	case err == nil:
		current = rowToSnapshot(row)
	case !errors.Is(err, domain.ErrNotFound):
		return err
	}

	next := current.Merge(update)
	out := snapshotToRow(next)

	if _, _, err := s.client.From(s.table).Upsert(out, "id", "minimal", "").Execute(); err != nil {
		return fmt.Errorf("upsert %s: %w", s.table, err)
	}
	s.log.Debug("saved progress for %s (xp=%d, stars=%d, level=%d)", userID, next.XP, next.Stars, next.Level)
	return nil
}

func (s *SupabaseStore) fetch(userID string) (usersRow, error) {
	var rows []usersRow
	_, err := s.client.From(s.table).
		Select("*", "", false).
		Eq("id", userID).
		ExecuteTo(&rows)
	if err != nil {
		return usersRow{}, fmt.Errorf("select %s: %w", s.table, err)
	}
	if len(rows) == 0 {
		return usersRow{}, domain.ErrNotFound
	}
	return rows[0], nil
}

func rowToSnapshot(r usersRow) domain.ProgressSnapshot {
	snap := domain.ProgressSnapshot{
		UserID:          r.ID,
		XP:              r.XP,
		Stars:           r.Stars,
		Level:           r.Level,
		UnlockedItemIDs: r.Rewards.UnlockedItems,
		Condition:       r.Condition,
		SurveyResponses: r.SurveyResponses,
	}
	if r.Rewards.EquippedAccessory != nil {
		snap.EquippedAccessoryID = *r.Rewards.EquippedAccessory
	}
	if r.Rewards.EquippedBackground != nil {
		snap.EquippedBackgroundID = *r.Rewards.EquippedBackground
	}
	// Rows written by older clients can hold out-of-range counters.
	return snap.Merge(domain.ProgressUpdate{})
}

func snapshotToRow(s domain.ProgressSnapshot) usersRow {
	return usersRow{
		ID:              s.UserID,
		XP:              s.XP,
		Stars:           s.Stars,
		Level:           s.Level,
		Condition:       s.Condition,
		SurveyResponses: nonNil(s.SurveyResponses),
		Rewards: rewardsDoc{
			UnlockedItems:      nonNil(s.UnlockedItemIDs),
			EquippedAccessory:  optional(s.EquippedAccessoryID),
			EquippedBackground: optional(s.EquippedBackgroundID),
		},
	}
}

func optional(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
