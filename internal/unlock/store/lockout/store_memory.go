package lockout

import (
	"context"
	"sync"
	"time"

	"vaultline/internal/unlock/models"
)

// InMemoryLockoutStore keeps attempt counters in memory.
// This store is pure I/O; lock decisions belong to the challenge service.
type InMemoryLockoutStore struct {
	mu      sync.Mutex
	records map[string]*models.AttemptLockout
}

func New() *InMemoryLockoutStore {
	return &InMemoryLockoutStore{records: make(map[string]*models.AttemptLockout)}
}

func copyRecord(r *models.AttemptLockout) *models.AttemptLockout {
	c := *r
	if r.LockedUntil != nil {
		until := *r.LockedUntil
		c.LockedUntil = &until
	}
	return &c
}

func (s *InMemoryLockoutStore) Get(_ context.Context, identifier string) (*models.AttemptLockout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[identifier]
	if !ok {
		return nil, nil
	}
	return copyRecord(r), nil
}

// RecordFailure increments the counter atomically and returns the new state.
func (s *InMemoryLockoutStore) RecordFailure(_ context.Context, identifier string, now time.Time) (*models.AttemptLockout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[identifier]
	if !ok {
		r = &models.AttemptLockout{Identifier: identifier}
		s.records[identifier] = r
	}
	r.FailureCount++
	r.LastFailureAt = now
	return copyRecord(r), nil
}

func (s *InMemoryLockoutStore) Lock(_ context.Context, identifier string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[identifier]
	if !ok {
		r = &models.AttemptLockout{Identifier: identifier}
		s.records[identifier] = r
	}
	r.LockedUntil = &until
	return nil
}

func (s *InMemoryLockoutStore) Clear(_ context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, identifier)
	return nil
}

func (s *InMemoryLockoutStore) ResetStale(_ context.Context, cutoff, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, r := range s.records {
		stale := r.LockedUntil == nil && r.LastFailureAt.Before(cutoff)
		if stale || r.LockExpiredAt(now) {
			delete(s.records, id)
			removed++
		}
	}
	return removed, nil
}
