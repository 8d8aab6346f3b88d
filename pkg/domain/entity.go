// Package domain holds identifiers shared across bounded contexts.
package domain

import (
	"slices"
	"strings"

	dErrors "vaultline/pkg/domain-errors"
)

// EntityKind names a family of financial products that can be unlocked and repaid.
type EntityKind string

const (
	KindCard EntityKind = "card"
	KindLoan EntityKind = "loan"
)

// kindPrefixes is the only place an id prefix is bound to a kind.
var kindPrefixes = map[EntityKind]string{
	KindCard: "card_",
	KindLoan: "loan_",
}

// Kinds returns every declared kind in a stable order.
func Kinds() []EntityKind {
	kinds := make([]EntityKind, 0, len(kindPrefixes))
	for k := range kindPrefixes {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// IsValid checks if the kind is declared.
func (k EntityKind) IsValid() bool {
	_, ok := kindPrefixes[k]
	return ok
}

func (k EntityKind) String() string {
	return string(k)
}

// ParseEntityKind validates a kind name.
func ParseEntityKind(s string) (EntityKind, error) {
	k := EntityKind(strings.TrimSpace(s))
	if !k.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown entity kind")
	}
	return k, nil
}

// EntityID is an opaque identifier such as "card_1" or "loan_2".
type EntityID string

// ParseEntityID validates an identifier and resolves its kind from the prefix.
func ParseEntityID(s string) (EntityID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "entity id cannot be empty")
	}
	id := EntityID(s)
	if _, ok := id.Kind(); !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "entity id has no known kind prefix")
	}
	return id, nil
}

// Kind resolves the kind from the id prefix. The suffix must be non-empty.
func (id EntityID) Kind() (EntityKind, bool) {
	for kind, prefix := range kindPrefixes {
		if rest, ok := strings.CutPrefix(string(id), prefix); ok && rest != "" {
			return kind, true
		}
	}
	return "", false
}

func (id EntityID) String() string {
	return string(id)
}
