package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vaultline/internal/unlock/models"
	"vaultline/pkg/platform/sentinel"
)

// InMemorySessionStore keeps challenge sessions in memory. Sessions are
// copied on the way in and out so callers never share state.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.ChallengeSession
}

func New() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[string]*models.ChallengeSession)}
}

func (s *InMemorySessionStore) Save(_ context.Context, session *models.ChallengeSession) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("save session: %w", sentinel.ErrInvalidState)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session.Clone()
	return nil
}

func (s *InMemorySessionStore) Get(_ context.Context, id string) (*models.ChallengeSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, sentinel.ErrNotFound)
	}
	return session.Clone(), nil
}

func (s *InMemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// DeleteExpired removes sessions whose expiry is at or before now.
func (s *InMemorySessionStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, session := range s.sessions {
		if session.IsExpiredAt(now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}
