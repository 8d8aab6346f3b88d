package challenge

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"vaultline/internal/unlock/metrics"
	"vaultline/internal/unlock/models"
	"vaultline/internal/unlock/ports"
	"vaultline/pkg/domain"
	"vaultline/pkg/platform/audit"
	"vaultline/pkg/platform/keylock"
	"vaultline/pkg/platform/sentinel"
	"vaultline/pkg/requestcontext"

	dErrors "vaultline/pkg/domain-errors"
)

// Unlocker is the slice of the unlock set service a challenge needs.
type Unlocker interface {
	IsUnlocked(ctx context.Context, owner string, id domain.EntityID) (bool, error)
	Unlock(ctx context.Context, owner string, id domain.EntityID) (models.UnlockSet, error)
}

// Config bounds sessions and failed attempts.
type Config struct {
	MaxAttempts  int
	LockDuration time.Duration
	SessionTTL   time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:  5,
		LockDuration: 15 * time.Minute,
		SessionTTL:   10 * time.Minute,
	}
}

// Service drives CVV-then-OTP challenges that gate unlocking an entity.
type Service struct {
	sessions       ports.SessionStore
	lockouts       ports.LockoutStore
	unlocker       Unlocker
	directory      ports.EntityDirectory
	verifier       Verifier
	config         Config
	locks          *keylock.Locks
	logger         *slog.Logger
	auditPublisher ports.AuditPublisher
	metrics        *metrics.Metrics
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

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithConfig(cfg Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

func New(
	sessions ports.SessionStore,
	lockouts ports.LockoutStore,
	unlocker Unlocker,
	directory ports.EntityDirectory,
	verifier Verifier,
	opts ...Option,
) (*Service, error) {
	switch {
	case sessions == nil:
		return nil, errors.New("session store is required")
	case lockouts == nil:
		return nil, errors.New("lockout store is required")
	case unlocker == nil:
		return nil, errors.New("unlocker is required")
	case directory == nil:
		return nil, errors.New("entity directory is required")
	case verifier == nil:
		return nil, errors.New("verifier is required")
	}

	svc := &Service{
		sessions:  sessions,
		lockouts:  lockouts,
		unlocker:  unlocker,
		directory: directory,
		verifier:  verifier,
		config:    DefaultConfig(),
		locks:     keylock.New(64),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.config.MaxAttempts <= 0 || svc.config.LockDuration <= 0 || svc.config.SessionTTL <= 0 {
		return nil, errors.New("challenge config values must be positive")
	}
	return svc, nil
}

// Begin starts a challenge for rawID. An entity that is already unlocked
// yields an unsaved, terminal session with ShortCircuit set.
func (s *Service) Begin(ctx context.Context, owner, rawID string) (*models.ChallengeSession, error) {
	if owner == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "owner is required")
	}
	id, err := domain.ParseEntityID(rawID)
	if err != nil {
		return nil, err
	}
	if !s.directory.Exists(ctx, id) {
		return nil, dErrors.New(dErrors.CodeNotFound, "entity not found")
	}

	now := requestcontext.Now(ctx)
	unlocked, err := s.unlocker.IsUnlocked(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if unlocked {
		return models.AlreadyUnlocked(owner, id, now), nil
	}

	if err := s.checkLockout(ctx, owner, id, now); err != nil {
		return nil, err
	}

	session, err := models.NewChallengeSession(uuid.NewString(), owner, id, now, s.config.SessionTTL)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to save challenge")
	}
	ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventChallengeStarted,
		"owner", owner,
		"entity_id", id.String(),
		"session_id", session.ID,
	)
	return session, nil
}

func (s *Service) checkLockout(ctx context.Context, owner string, id domain.EntityID, now time.Time) error {
	key := models.LockoutKey(owner, id)
	record, err := s.lockouts.Get(ctx, key)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read lockout")
	}
	if record == nil {
		return nil
	}
	if record.IsLockedAt(now) {
		return dErrors.New(dErrors.CodeRateLimited, "too many failed attempts, try again later")
	}
	if record.LockExpiredAt(now) {
		if err := s.lockouts.Clear(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "failed to clear expired lockout", "identifier", key, "error", err)
		}
	}
	return nil
}

// Get returns owner's session. Sessions of other owners are not found.
func (s *Service) Get(ctx context.Context, owner, sessionID string) (*models.ChallengeSession, error) {
	return s.load(ctx, owner, sessionID)
}

func (s *Service) SubmitCVV(ctx context.Context, owner, sessionID, cvv string) (*models.ChallengeSession, error) {
	if !models.IsDigits(cvv, 3) {
		return nil, dErrors.New(dErrors.CodeValidation, "cvv must be exactly 3 digits")
	}
	release := s.locks.Lock(sessionID)
	defer release()

	session, err := s.loadAt(ctx, owner, sessionID, models.StepAwaitingCVV)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	if err := s.refuseIfLocked(ctx, session, now); err != nil {
		return nil, err
	}
	ok, err := s.verifier.VerifyCVV(ctx, session.EntityID, cvv)
	if err != nil {
		return nil, err
	}
	if !ok {
		return s.recordFailure(ctx, session, models.ReasonCVVMismatch, now)
	}

	hash, err := s.verifier.IssueOTP(ctx, session)
	if err != nil {
		return nil, err
	}
	if err := session.Transition(models.StepAwaitingOTP, now); err != nil {
		return nil, err
	}
	session.OTPHash = hash
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// SubmitOTP completes the challenge. If the unlock cannot be persisted the
// session stays in awaiting_otp and the retryable error is returned.
func (s *Service) SubmitOTP(ctx context.Context, owner, sessionID, otp string) (*models.ChallengeSession, error) {
	if !models.IsDigits(otp, 6) {
		return nil, dErrors.New(dErrors.CodeValidation, "otp must be exactly 6 digits")
	}
	release := s.locks.Lock(sessionID)
	defer release()

	session, err := s.loadAt(ctx, owner, sessionID, models.StepAwaitingOTP)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	if err := s.refuseIfLocked(ctx, session, now); err != nil {
		return nil, err
	}
	ok, err := s.verifier.VerifyOTP(ctx, session, otp)
	if err != nil {
		return nil, err
	}
	if !ok {
		return s.recordFailure(ctx, session, models.ReasonOTPMismatch, now)
	}

	if _, err := s.unlocker.Unlock(ctx, owner, session.EntityID); err != nil {
		return nil, err
	}
	if err := session.Complete(now); err != nil {
		return nil, err
	}
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	if err := s.lockouts.Clear(ctx, models.LockoutKey(owner, session.EntityID)); err != nil {
		s.logger.WarnContext(ctx, "failed to clear lockout after unlock", "owner", owner, "entity_id", session.EntityID, "error", err)
	}
	return session, nil
}

// ResendOTP re-issues the code for a session awaiting its OTP.
func (s *Service) ResendOTP(ctx context.Context, owner, sessionID string) (*models.ChallengeSession, error) {
	release := s.locks.Lock(sessionID)
	defer release()

	session, err := s.loadAt(ctx, owner, sessionID, models.StepAwaitingOTP)
	if err != nil {
		return nil, err
	}
	if err := s.refuseIfLocked(ctx, session, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	hash, err := s.verifier.ResendOTP(ctx, session)
	if err != nil {
		return nil, err
	}
	if hash != nil {
		session.OTPHash = hash
	}
	session.UpdatedAt = requestcontext.Now(ctx)
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventOTPResent,
		"owner", owner,
		"entity_id", session.EntityID.String(),
		"session_id", session.ID,
	)
	return session, nil
}

// Retry returns a failed session to the step that failed.
func (s *Service) Retry(ctx context.Context, owner, sessionID string) (*models.ChallengeSession, error) {
	release := s.locks.Lock(sessionID)
	defer release()

	session, err := s.load(ctx, owner, sessionID)
	if err != nil {
		return nil, err
	}
	if err := session.Retry(requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// ClearLockout lifts the lockout for owner and rawID.
func (s *Service) ClearLockout(ctx context.Context, owner, rawID string) error {
	if owner == "" {
		return dErrors.New(dErrors.CodeValidation, "owner is required")
	}
	id, err := domain.ParseEntityID(rawID)
	if err != nil {
		return err
	}
	if err := s.lockouts.Clear(ctx, models.LockoutKey(owner, id)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to clear lockout")
	}
	ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventLockoutCleared,
		"owner", owner,
		"entity_id", id.String(),
	)
	return nil
}

func (s *Service) recordFailure(ctx context.Context, session *models.ChallengeSession, reason string, now time.Time) (*models.ChallengeSession, error) {
	key := models.LockoutKey(session.Owner, session.EntityID)
	record, err := s.lockouts.RecordFailure(ctx, key, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to record attempt")
	}
	s.metrics.IncrementChallengeFailures(string(session.Step))
	session.Attempts = record.FailureCount

	if record.ShouldLock(s.config.MaxAttempts) {
		record.ApplyLock(s.config.LockDuration, now)
		if err := s.lockouts.Lock(ctx, key, *record.LockedUntil); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to record lockout")
		}
		if err := session.Lock(now); err != nil {
			return nil, err
		}
		s.metrics.IncrementLockouts()
		ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventChallengeLocked,
			"owner", session.Owner,
			"entity_id", session.EntityID.String(),
			"reason", reason,
			"attempts", record.FailureCount,
		)
	} else {
		if err := session.Fail(reason, now); err != nil {
			return nil, err
		}
		ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventChallengeFailed,
			"owner", session.Owner,
			"entity_id", session.EntityID.String(),
			"reason", reason,
			"attempts", record.FailureCount,
		)
	}

	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// refuseIfLocked moves a session whose (owner, entity) pair was locked by
// other sessions to the terminal locked step.
func (s *Service) refuseIfLocked(ctx context.Context, session *models.ChallengeSession, now time.Time) error {
	record, err := s.lockouts.Get(ctx, models.LockoutKey(session.Owner, session.EntityID))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read lockout")
	}
	if record == nil || !record.IsLockedAt(now) {
		return nil
	}
	session.Attempts = record.FailureCount
	if err := session.Lock(now); err != nil {
		return err
	}
	if err := s.save(ctx, session); err != nil {
		return err
	}
	return dErrors.New(dErrors.CodeRateLimited, "too many failed attempts, try again later")
}

func (s *Service) loadAt(ctx context.Context, owner, sessionID string, step models.ChallengeStep) (*models.ChallengeSession, error) {
	session, err := s.load(ctx, owner, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Step != step {
		return nil, dErrors.New(dErrors.CodeInvalidState, "challenge is in step "+string(session.Step)+", not "+string(step))
	}
	return session, nil
}

func (s *Service) load(ctx context.Context, owner, sessionID string) (*models.ChallengeSession, error) {
	if sessionID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "challenge id is required")
	}
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "challenge not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load challenge")
	}
	if session.Owner != owner {
		return nil, dErrors.New(dErrors.CodeNotFound, "challenge not found")
	}
	if session.IsExpiredAt(requestcontext.Now(ctx)) {
		return nil, dErrors.New(dErrors.CodeExpired, "challenge expired, start a new one")
	}
	return session, nil
}

func (s *Service) save(ctx context.Context, session *models.ChallengeSession) error {
	if err := s.sessions.Save(ctx, session); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to save challenge")
	}
	return nil
}
