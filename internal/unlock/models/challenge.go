package models

import (
	"fmt"
	"strings"
	"time"

	"vaultline/pkg/domain"

	dErrors "vaultline/pkg/domain-errors"
)

// ChallengeStep is the position of a session in the CVV-then-OTP flow.
type ChallengeStep string

const (
	StepAwaitingCVV ChallengeStep = "awaiting_cvv"
	StepAwaitingOTP ChallengeStep = "awaiting_otp"
	StepUnlocked    ChallengeStep = "unlocked"
	StepError       ChallengeStep = "error"
	StepLocked      ChallengeStep = "locked"
)

// IsTerminal reports whether no further transition is possible.
func (s ChallengeStep) IsTerminal() bool {
	return s == StepUnlocked || s == StepLocked
}

var allowedTransitions = map[ChallengeStep][]ChallengeStep{
	StepAwaitingCVV: {StepAwaitingOTP, StepError, StepLocked},
	StepAwaitingOTP: {StepUnlocked, StepError, StepLocked},
	StepError:       {StepAwaitingCVV, StepAwaitingOTP},
}

func (s ChallengeStep) canMoveTo(next ChallengeStep) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Failure reasons recorded on sessions in StepError.
const (
	ReasonCVVMismatch  = "cvv_mismatch"
	ReasonOTPMismatch  = "otp_mismatch"
	ReasonTooManyTries = "too_many_attempts"
)

// ChallengeSession is one attempt to unlock an entity.
type ChallengeSession struct {
	ID           string          `json:"id,omitempty"`
	Owner        string          `json:"-"`
	EntityID     domain.EntityID `json:"entity_id"`
	Step         ChallengeStep   `json:"step"`
	FailedStep   ChallengeStep   `json:"failed_step,omitempty"`
	Reason       string          `json:"reason,omitempty"`
	Attempts     int             `json:"attempts"`
	ShortCircuit bool            `json:"short_circuit,omitempty"`
	OTPHash      []byte          `json:"-"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	ExpiresAt    time.Time       `json:"expires_at,omitzero"`
}

// NewChallengeSession starts a session in StepAwaitingCVV.
func NewChallengeSession(id, owner string, entityID domain.EntityID, now time.Time, ttl time.Duration) (*ChallengeSession, error) {
	if strings.TrimSpace(id) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "session id cannot be empty")
	}
	if strings.TrimSpace(owner) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "owner cannot be empty")
	}
	if ttl <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "session ttl must be positive")
	}
	return &ChallengeSession{
		ID:        id,
		Owner:     owner,
		EntityID:  entityID,
		Step:      StepAwaitingCVV,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// AlreadyUnlocked builds the unsaved session returned when the entity needs no challenge.
func AlreadyUnlocked(owner string, entityID domain.EntityID, now time.Time) *ChallengeSession {
	return &ChallengeSession{
		Owner:        owner,
		EntityID:     entityID,
		Step:         StepUnlocked,
		ShortCircuit: true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *ChallengeSession) IsExpiredAt(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Transition moves the session to next if the state machine allows it.
func (s *ChallengeSession) Transition(next ChallengeStep, now time.Time) error {
	if !s.Step.canMoveTo(next) {
		return dErrors.New(dErrors.CodeInvalidState, fmt.Sprintf("cannot move from %s to %s", s.Step, next))
	}
	s.Step = next
	s.UpdatedAt = now
	return nil
}

// Fail records a verification failure at the current step.
func (s *ChallengeSession) Fail(reason string, now time.Time) error {
	failed := s.Step
	if err := s.Transition(StepError, now); err != nil {
		return err
	}
	s.FailedStep = failed
	s.Reason = reason
	return nil
}

// Lock moves the session to the terminal locked step.
func (s *ChallengeSession) Lock(now time.Time) error {
	if err := s.Transition(StepLocked, now); err != nil {
		return err
	}
	s.Reason = ReasonTooManyTries
	s.OTPHash = nil
	return nil
}

// Retry returns an errored session to the step that failed.
func (s *ChallengeSession) Retry(now time.Time) error {
	if s.Step != StepError {
		return dErrors.New(dErrors.CodeInvalidState, "only a failed challenge can be retried")
	}
	if err := s.Transition(s.FailedStep, now); err != nil {
		return err
	}
	s.FailedStep = ""
	s.Reason = ""
	return nil
}

// Complete marks the session unlocked and drops verification material.
func (s *ChallengeSession) Complete(now time.Time) error {
	if err := s.Transition(StepUnlocked, now); err != nil {
		return err
	}
	s.OTPHash = nil
	return nil
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (s *ChallengeSession) Clone() *ChallengeSession {
	c := *s
	if s.OTPHash != nil {
		c.OTPHash = append([]byte(nil), s.OTPHash...)
	}
	return &c
}
