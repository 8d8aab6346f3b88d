package models

import (
	"time"

	"vaultline/pkg/domain"
)

// AttemptLockout counts failed verifications for one (owner, entity) pair.
type AttemptLockout struct {
	Identifier    string     `json:"identifier"`
	FailureCount  int        `json:"failure_count"`
	LockedUntil   *time.Time `json:"locked_until,omitempty"`
	LastFailureAt time.Time  `json:"last_failure_at"`
}

// LockoutKey composes the lockout identifier for owner and entity.
func LockoutKey(owner string, id domain.EntityID) string {
	return owner + "|" + id.String()
}

func (l *AttemptLockout) IsLockedAt(now time.Time) bool {
	return l.LockedUntil != nil && now.Before(*l.LockedUntil)
}

// LockExpiredAt reports whether a lock was applied and has since elapsed.
func (l *AttemptLockout) LockExpiredAt(now time.Time) bool {
	return l.LockedUntil != nil && !now.Before(*l.LockedUntil)
}

func (l *AttemptLockout) ShouldLock(maxAttempts int) bool {
	return l.FailureCount >= maxAttempts
}

func (l *AttemptLockout) ApplyLock(d time.Duration, now time.Time) {
	until := now.Add(d)
	l.LockedUntil = &until
}
