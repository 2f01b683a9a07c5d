package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hammamikhairi/vocalpal/internal/domain"
	"github.com/hammamikhairi/vocalpal/internal/logger"
	"github.com/hammamikhairi/vocalpal/internal/storage/migrations"
)

// Compile-time interface check.
var _ domain.ProgressStore = (*SQLiteStore)(nil)

// SQLiteStore persists progress in a local SQLite file. Saves read, merge
// and write inside one transaction.
type SQLiteStore struct {
	db  *sql.DB
	log *logger.Logger
}

// OpenSQLite opens (or creates) the database at path and applies the
// embedded migrations.
func OpenSQLite(ctx context.Context, path string, log *logger.Logger) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite has a single writer.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	log.Info("sqlite progress store ready at %s", path)
	return &SQLiteStore{db: db, log: log}, nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load retrieves a user's progress.
func (s *SQLiteStore) Load(ctx context.Context, userID string) (domain.ProgressSnapshot, error) {
	snap, err := loadRow(ctx, s.db, userID)
	if err != nil {
		return domain.ProgressSnapshot{}, err
	}
	return snap, nil
}

// Save merges the update into the user's row, creating it if needed.
func (s *SQLiteStore) Save(ctx context.Context, userID string, update domain.ProgressUpdate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	current, err := loadRow(ctx, tx, userID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		current = domain.NewSnapshot(userID)
	case err != nil:
		return err
	}

	next := current.Merge(update)
	next.UpdatedAt = time.Now().UTC()

	unlocked, err := json.Marshal(nonNil(next.UnlockedItemIDs))
	if err != nil {
		return fmt.Errorf("encode unlocked items: %w", err)
	}
	responses, err := json.Marshal(nonNil(next.SurveyResponses))
	if err != nil {
		return fmt.Errorf("encode survey responses: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO progress (
		   user_id, xp, stars, level, unlocked_items,
		   equipped_accessory, equipped_background, condition_tag,
		   survey_responses, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   xp = excluded.xp,
		   stars = excluded.stars,
		   level = excluded.level,
		   unlocked_items = excluded.unlocked_items,
		   equipped_accessory = excluded.equipped_accessory,
		   equipped_background = excluded.equipped_background,
		   condition_tag = excluded.condition_tag,
		   survey_responses = excluded.survey_responses,
		   updated_at = excluded.updated_at`,
		userID, next.XP, next.Stars, next.Level, string(unlocked),
		next.EquippedAccessoryID, next.EquippedBackgroundID, next.Condition,
		string(responses), next.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}

	s.log.Debug("saved progress for %s (xp=%d, stars=%d, level=%d)", userID, next.XP, next.Stars, next.Level)
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func loadRow(ctx context.Context, q queryer, userID string) (domain.ProgressSnapshot, error) {
	var (
		snap      = domain.ProgressSnapshot{UserID: userID}
		unlocked  string
		responses string
		updatedAt int64
	)
	err := q.QueryRowContext(ctx,
		`SELECT xp, stars, level, unlocked_items, equipped_accessory,
		        equipped_background, condition_tag, survey_responses, updated_at
		   FROM progress WHERE user_id = ?`, userID,
	).Scan(&snap.XP, &snap.Stars, &snap.Level, &unlocked, &snap.EquippedAccessoryID,
		&snap.EquippedBackgroundID, &snap.Condition, &responses, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ProgressSnapshot{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.ProgressSnapshot{}, fmt.Errorf("query progress: %w", err)
	}

	if err := json.Unmarshal([]byte(unlocked), &snap.UnlockedItemIDs); err != nil {
		return domain.ProgressSnapshot{}, fmt.Errorf("decode unlocked items: %w", err)
	}
	if err := json.Unmarshal([]byte(responses), &snap.SurveyResponses); err != nil {
		return domain.ProgressSnapshot{}, fmt.Errorf("decode survey responses: %w", err)
	}
	if len(snap.UnlockedItemIDs) == 0 {
		snap.UnlockedItemIDs = nil
	}
	if len(snap.SurveyResponses) == 0 {
		snap.SurveyResponses = nil
	}
	snap.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return snap, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
