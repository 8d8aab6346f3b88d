package models

import (
	"encoding/json"
	"slices"

	"vaultline/pkg/domain"
)

// preferenceKeys binds each kind to the durable key its unlocked ids live under.
var preferenceKeys = map[domain.EntityKind]string{
	domain.KindCard: "unlocked_cards",
	domain.KindLoan: "unlocked_loans",
}

// PreferenceKey returns the preference key for kind.
func PreferenceKey(kind domain.EntityKind) (string, bool) {
	key, ok := preferenceKeys[kind]
	return key, ok
}

// UnlockSet is an immutable set of unlocked entity ids. The zero value is empty.
type UnlockSet struct {
	members map[domain.EntityID]struct{}
}

func NewUnlockSet(ids ...domain.EntityID) UnlockSet {
	members := make(map[domain.EntityID]struct{}, len(ids))
	for _, id := range ids {
		members[id] = struct{}{}
	}
	return UnlockSet{members: members}
}

func (s UnlockSet) Contains(id domain.EntityID) bool {
	_, ok := s.members[id]
	return ok
}

func (s UnlockSet) Len() int {
	return len(s.members)
}

// IDs returns the members in lexical order.
func (s UnlockSet) IDs() []domain.EntityID {
	ids := make([]domain.EntityID, 0, len(s.members))
	for id := range s.members {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// With returns a copy of s that also contains id.
func (s UnlockSet) With(id domain.EntityID) UnlockSet {
	members := make(map[domain.EntityID]struct{}, len(s.members)+1)
	for m := range s.members {
		members[m] = struct{}{}
	}
	members[id] = struct{}{}
	return UnlockSet{members: members}
}

func (s UnlockSet) Equal(other UnlockSet) bool {
	if len(s.members) != len(other.members) {
		return false
	}
	for id := range s.members {
		if !other.Contains(id) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the set as a sorted array so responses are stable.
func (s UnlockSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}

func (s *UnlockSet) UnmarshalJSON(data []byte) error {
	var ids []domain.EntityID
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewUnlockSet(ids...)
	return nil
}
