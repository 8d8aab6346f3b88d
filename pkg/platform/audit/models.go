package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategorySecurity covers unlock outcomes, verification failures and lockouts.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity such as challenge creation.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string        `json:"id"`
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	Owner     string        `json:"owner"`
	Subject   string        `json:"subject"` // entity id the action concerns
	Action    string        `json:"action"`
	Reason    string        `json:"reason,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
	ClientIP  string        `json:"client_ip,omitempty"`
	Device    string        `json:"device,omitempty"`
}

type AuditEvent string

const (
	EventChallengeStarted AuditEvent = "unlock_challenge_started"
	EventChallengeFailed  AuditEvent = "unlock_challenge_failed"
	EventChallengeLocked  AuditEvent = "unlock_challenge_locked"
	EventOTPResent        AuditEvent = "unlock_otp_resent"
	EventEntityUnlocked   AuditEvent = "entity_unlocked"
	EventLockoutCleared   AuditEvent = "unlock_lockout_cleared"
	EventSessionsSwept    AuditEvent = "unlock_sessions_swept"
	EventPaymentPreviewed AuditEvent = "payment_previewed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventChallengeFailed: CategorySecurity,
	EventChallengeLocked: CategorySecurity,
	EventEntityUnlocked:  CategorySecurity,
	EventLockoutCleared:  CategorySecurity,

	EventChallengeStarted: CategoryOperations,
	EventOTPResent:        CategoryOperations,
	EventSessionsSwept:    CategoryOperations,
	EventPaymentPreviewed: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events. Sinks that cannot be read back (a Kafka topic)
// implement only Store; readable sinks also implement Lister.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Lister reads back events for one owner in emission order.
type Lister interface {
	ListByOwner(ctx context.Context, owner string) ([]Event, error)
}
