// Package storage provides progress persistence implementations.
package storage

import (
	"context"
	"sync"
	"time"

	"github.com/hammamikhairi/vocalpal/internal/domain"
	"github.com/hammamikhairi/vocalpal/internal/logger"
)

// Compile-time interface check.
var _ domain.ProgressStore = (*MemoryStore)(nil)

// MemoryStore is an in-memory progress store. Safe for concurrent access.
// Snapshots are copied on the way in and out.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]domain.ProgressSnapshot
	log   *logger.Logger
}

// NewMemoryStore creates an empty in-memory progress store.
func NewMemoryStore(log *logger.Logger) *MemoryStore {
	return &MemoryStore{
		users: make(map[string]domain.ProgressSnapshot),
		log:   log,
	}
}

// Save merges the update into the user's record, creating it if needed.
func (s *MemoryStore) Save(ctx context.Context, userID string, update domain.ProgressUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[userID]
	if !ok {
		current = domain.NewSnapshot(userID)
	}
	next := current.Merge(update)
	next.UpdatedAt = time.Now()
	s.users[userID] = next

	s.log.Debug("saved progress for %s (xp=%d, stars=%d, level=%d)", userID, next.XP, next.Stars, next.Level)
	return nil
}

// Load retrieves a user's progress.
func (s *MemoryStore) Load(ctx context.Context, userID string) (domain.ProgressSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.ProgressSnapshot{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.users[userID]
	if !ok {
		s.log.Debug("progress not found: %s", userID)
		return domain.ProgressSnapshot{}, domain.ErrNotFound
	}
	return snap.Clone(), nil
}
