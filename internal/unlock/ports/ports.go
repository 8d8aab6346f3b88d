package ports

//go:generate mockgen -source=ports.go -destination=../service/mocks/ports_mock.go -package=mocks

import (
	"context"
	"log/slog"
	"time"

	"vaultline/internal/unlock/models"
	"vaultline/pkg/domain"
	"vaultline/pkg/platform/attrs"
	"vaultline/pkg/platform/audit"
	"vaultline/pkg/platform/middleware/metadata"
	"vaultline/pkg/requestcontext"
)

// PreferenceStore is a durable per-owner string-set store. Add must be
// durable before it returns and reports whether member was new.
type PreferenceStore interface {
	Members(ctx context.Context, owner, key string) ([]string, error)
	Add(ctx context.Context, owner, key, member string) (bool, error)
}

// BulkPreferenceStore loads several keys in one round trip.
type BulkPreferenceStore interface {
	PreferenceStore
	MembersByKeys(ctx context.Context, owner string, keys []string) (map[string][]string, error)
}

// SessionStore keeps in-flight challenge sessions. Get returns
// sentinel.ErrNotFound for unknown ids.
type SessionStore interface {
	Save(ctx context.Context, session *models.ChallengeSession) error
	Get(ctx context.Context, id string) (*models.ChallengeSession, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// LockoutStore is pure I/O over attempt counters; lock policy lives in the service.
// Get returns nil, nil when no record exists.
type LockoutStore interface {
	Get(ctx context.Context, identifier string) (*models.AttemptLockout, error)
	RecordFailure(ctx context.Context, identifier string, now time.Time) (*models.AttemptLockout, error)
	// Lock sets the lock expiry and leaves the failure counter untouched.
	Lock(ctx context.Context, identifier string, until time.Time) error
	Clear(ctx context.Context, identifier string) error
	// ResetStale removes unlocked records whose last failure precedes cutoff,
	// and locked records whose lock ended before now.
	ResetStale(ctx context.Context, cutoff, now time.Time) (int, error)
}

// EntityDirectory answers questions about the catalog the challenge gates.
// SecurityCode returns sentinel.ErrNotFound for unknown ids.
type EntityDirectory interface {
	Exists(ctx context.Context, id domain.EntityID) bool
	SecurityCode(ctx context.Context, id domain.EntityID) (string, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// EventPublisher publishes domain events to a broker.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, body any) error
}

// LogAudit is a shared helper for logging audit events across unlock services.
// It logs to both the structured logger and the audit publisher if available.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher AuditPublisher, event audit.AuditEvent, attrList ...any) {
	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		attrList = append(attrList, "request_id", requestID)
	}
	ip := metadata.GetClientIP(ctx)
	if ip != "" {
		attrList = append(attrList, "client_ip", ip)
	}
	device := metadata.DeviceLabel(metadata.GetUserAgent(ctx))
	if device != "" {
		attrList = append(attrList, "device", device)
	}

	if logger != nil {
		args := append(attrList, "event", string(event), "log_type", "audit")
		logger.InfoContext(ctx, string(event), args...)
	}

	if publisher == nil {
		return
	}
	err := publisher.Emit(ctx, audit.Event{
		Timestamp: requestcontext.Now(ctx),
		Owner:     attrs.ExtractString(attrList, "owner"),
		Subject:   attrs.ExtractString(attrList, "entity_id"),
		Action:    string(event),
		Reason:    attrs.ExtractString(attrList, "reason"),
		RequestID: requestID,
		ClientIP:  ip,
		Device:    device,
	})
	if err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event", "event", string(event), "error", err)
	}
}
