package unlockset

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"vaultline/internal/unlock/metrics"
	"vaultline/internal/unlock/models"
	"vaultline/internal/unlock/ports"
	"vaultline/pkg/domain"
	"vaultline/pkg/platform/audit"
	"vaultline/pkg/platform/keylock"
	"vaultline/pkg/requestcontext"

	dErrors "vaultline/pkg/domain-errors"
)

// RoutingKeyUnlockCompleted is the broker routing key for first-time unlocks.
const RoutingKeyUnlockCompleted = "unlock.completed"

// UnlockCompleted is the payload published when an entity joins an unlock set.
type UnlockCompleted struct {
	Owner      string            `json:"owner"`
	EntityID   domain.EntityID   `json:"entity_id"`
	Kind       domain.EntityKind `json:"kind"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Service owns the per-owner unlock sets: reads, observation and the
// idempotent add-and-persist mutation.
type Service struct {
	store          ports.PreferenceStore
	hub            *hub
	locks          *keylock.Locks
	auditPublisher ports.AuditPublisher
	events         ports.EventPublisher
	metrics        *metrics.Metrics
	logger         *slog.Logger
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithEventPublisher(publisher ports.EventPublisher) Option {
	return func(s *Service) {
		s.events = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

func New(store ports.PreferenceStore, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("preference store is required")
	}
	svc := &Service{
		store:  store,
		hub:    newHub(),
		locks:  keylock.New(64),
		logger: slog.Default(),
		tracer: otel.Tracer("vaultline/unlock"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// IsUnlocked reports whether id is in owner's current set.
func (s *Service) IsUnlocked(ctx context.Context, owner string, id domain.EntityID) (bool, error) {
	set, err := s.Snapshot(ctx, owner)
	if err != nil {
		return false, err
	}
	return set.Contains(id), nil
}

// Snapshot loads owner's set across every kind's preference key.
func (s *Service) Snapshot(ctx context.Context, owner string) (models.UnlockSet, error) {
	ctx, span := s.tracer.Start(ctx, "unlockset.Snapshot")
	defer span.End()

	if owner == "" {
		return models.UnlockSet{}, dErrors.New(dErrors.CodeInvalidInput, "owner is required")
	}
	set, err := s.load(ctx, owner)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return models.UnlockSet{}, err
	}
	span.SetAttributes(attribute.Int("unlock.size", set.Len()))
	return set, nil
}

// Observe returns a channel that yields owner's current set immediately and
// again after each change. The channel is closed once ctx is done.
func (s *Service) Observe(ctx context.Context, owner string) (<-chan models.UnlockSet, error) {
	if owner == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "owner is required")
	}

	release := s.locks.Lock(owner)
	initial, err := s.load(ctx, owner)
	if err != nil {
		release()
		return nil, err
	}
	sub := s.hub.subscribe(owner, initial)
	release()

	s.metrics.ObserverAdded()
	go func() {
		<-ctx.Done()
		s.hub.unsubscribe(sub)
		s.metrics.ObserverRemoved()
	}()
	return sub.ch, nil
}

// Unlock adds id to owner's set and persists it before returning. Adding a
// member that is already present succeeds without side effects. A failed
// write returns a retryable CodeUnavailable error and nothing is published.
func (s *Service) Unlock(ctx context.Context, owner string, id domain.EntityID) (models.UnlockSet, error) {
	ctx, span := s.tracer.Start(ctx, "unlockset.Unlock",
		trace.WithAttributes(attribute.String("unlock.entity_id", id.String())),
	)
	defer span.End()

	if owner == "" {
		return models.UnlockSet{}, dErrors.New(dErrors.CodeInvalidInput, "owner is required")
	}
	kind, ok := id.Kind()
	if !ok {
		return models.UnlockSet{}, dErrors.New(dErrors.CodeInvalidInput, "entity id has no known kind prefix")
	}
	key, ok := models.PreferenceKey(kind)
	if !ok {
		return models.UnlockSet{}, dErrors.New(dErrors.CodeInternal, "kind has no preference key")
	}

	release := s.locks.Lock(owner)
	defer release()

	added, err := s.store.Add(ctx, owner, key, id.String())
	if err != nil {
		s.metrics.IncrementPersistenceFailures()
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		s.logger.ErrorContext(ctx, "failed to persist unlock",
			"owner", owner,
			"entity_id", id,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return models.UnlockSet{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to save unlock, please retry")
	}

	span.SetAttributes(attribute.Bool("unlock.added", added))

	// The write is durable at this point, so a failed reload must not undo
	// the first-unlock side effects below or report the unlock as failed.
	set, err := s.load(ctx, owner)
	if err != nil {
		s.logger.WarnContext(ctx, "unlock persisted but reload failed, extending last snapshot",
			"owner", owner,
			"entity_id", id,
			"error", err,
		)
		extended, ok := s.hub.extend(owner, id)
		if !ok {
			extended = models.NewUnlockSet(id)
		}
		set = extended
	} else {
		s.hub.publish(owner, set)
	}

	if added {
		s.metrics.IncrementUnlocks(kind.String())
		ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventEntityUnlocked,
			"owner", owner,
			"entity_id", id.String(),
		)
		s.publishEvent(ctx, UnlockCompleted{
			Owner:      owner,
			EntityID:   id,
			Kind:       kind,
			OccurredAt: requestcontext.Now(ctx),
		})
	}
	return set, nil
}

func (s *Service) publishEvent(ctx context.Context, event UnlockCompleted) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, RoutingKeyUnlockCompleted, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish unlock event",
			"owner", event.Owner,
			"entity_id", event.EntityID,
			"error", err,
		)
	}
}

func (s *Service) load(ctx context.Context, owner string) (models.UnlockSet, error) {
	kinds := domain.Kinds()
	keys := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		key, ok := models.PreferenceKey(kind)
		if !ok {
			return models.UnlockSet{}, dErrors.New(dErrors.CodeInternal, "kind has no preference key")
		}
		keys = append(keys, key)
	}

	sets, err := s.fetch(ctx, owner, keys)
	if err != nil {
		s.metrics.IncrementPersistenceFailures()
		return models.UnlockSet{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load unlocked entities")
	}

	var ids []domain.EntityID
	for _, key := range keys {
		for _, member := range sets[key] {
			id := domain.EntityID(member)
			if _, ok := id.Kind(); !ok {
				s.logger.WarnContext(ctx, "ignoring malformed unlock entry", "owner", owner, "key", key, "member", member)
				continue
			}
			ids = append(ids, id)
		}
	}
	return models.NewUnlockSet(ids...), nil
}

func (s *Service) fetch(ctx context.Context, owner string, keys []string) (map[string][]string, error) {
	if bulk, ok := s.store.(ports.BulkPreferenceStore); ok {
		return bulk.MembersByKeys(ctx, owner, keys)
	}
	out := make(map[string][]string, len(keys))
	for _, key := range keys {
		members, err := s.store.Members(ctx, owner, key)
		if err != nil {
			return nil, err
		}
		out[key] = members
	}
	return out, nil
}
