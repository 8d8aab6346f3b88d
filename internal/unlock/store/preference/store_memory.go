// Package preference holds the durable backends for unlock sets.
package preference

import (
	"context"
	"slices"
	"sync"
)

// InMemoryStore keeps preference sets in process memory.
type InMemoryStore struct {
	mu   sync.RWMutex
	sets map[string]map[string]map[string]struct{} // owner -> key -> members
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{sets: make(map[string]map[string]map[string]struct{})}
}

func (s *InMemoryStore) Members(_ context.Context, owner, key string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members := make([]string, 0, len(s.sets[owner][key]))
	for m := range s.sets[owner][key] {
		members = append(members, m)
	}
	slices.Sort(members)
	return members, nil
}

func (s *InMemoryStore) Add(_ context.Context, owner, key, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys, ok := s.sets[owner]
	if !ok {
		keys = make(map[string]map[string]struct{})
		s.sets[owner] = keys
	}
	members, ok := keys[key]
	if !ok {
		members = make(map[string]struct{})
		keys[key] = members
	}
	if _, exists := members[member]; exists {
		return false, nil
	}
	members[member] = struct{}{}
	return true, nil
}
