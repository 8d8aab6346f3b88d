package challenge

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	"vaultline/internal/unlock/models"
	"vaultline/internal/unlock/ports"
	"vaultline/pkg/domain"
	"vaultline/pkg/platform/sentinel"

	dErrors "vaultline/pkg/domain-errors"
)

// Verifier checks the secrets a challenge asks for. IssueOTP and ResendOTP
// return the hash to keep on the session, or nil when nothing is stored.
type Verifier interface {
	VerifyCVV(ctx context.Context, id domain.EntityID, cvv string) (bool, error)
	IssueOTP(ctx context.Context, session *models.ChallengeSession) ([]byte, error)
	ResendOTP(ctx context.Context, session *models.ChallengeSession) ([]byte, error)
	VerifyOTP(ctx context.Context, session *models.ChallengeSession, otp string) (bool, error)
}

// OTPSender delivers one-time codes to the owner.
type OTPSender interface {
	Send(ctx context.Context, owner string, id domain.EntityID, code string) error
}

// MockVerifier accepts any well-formed CVV and OTP. Resending only waits.
type MockVerifier struct {
	ResendDelay time.Duration
}

func (MockVerifier) VerifyCVV(context.Context, domain.EntityID, string) (bool, error) {
	return true, nil
}

func (MockVerifier) IssueOTP(context.Context, *models.ChallengeSession) ([]byte, error) {
	return nil, nil
}

func (v MockVerifier) ResendOTP(ctx context.Context, _ *models.ChallengeSession) ([]byte, error) {
	if v.ResendDelay <= 0 {
		return nil, nil
	}
	timer := time.NewTimer(v.ResendDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "otp resend cancelled")
	}
}

func (MockVerifier) VerifyOTP(context.Context, *models.ChallengeSession, string) (bool, error) {
	return true, nil
}

// StrictVerifier checks the CVV against the catalog and issues real codes,
// keeping only their bcrypt hash on the session.
type StrictVerifier struct {
	directory ports.EntityDirectory
	sender    OTPSender
	cost      int
}

type StrictOption func(*StrictVerifier)

// WithBcryptCost overrides the hashing cost; tests use bcrypt.MinCost.
func WithBcryptCost(cost int) StrictOption {
	return func(v *StrictVerifier) {
		v.cost = cost
	}
}

func NewStrictVerifier(directory ports.EntityDirectory, sender OTPSender, opts ...StrictOption) (*StrictVerifier, error) {
	if directory == nil {
		return nil, errors.New("entity directory is required")
	}
	if sender == nil {
		return nil, errors.New("otp sender is required")
	}
	v := &StrictVerifier{directory: directory, sender: sender, cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

func (v *StrictVerifier) VerifyCVV(ctx context.Context, id domain.EntityID, cvv string) (bool, error) {
	code, err := v.directory.SecurityCode(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, dErrors.New(dErrors.CodeNotFound, "entity not found")
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load security code")
	}
	return subtle.ConstantTimeCompare([]byte(code), []byte(cvv)) == 1, nil
}

func (v *StrictVerifier) IssueOTP(ctx context.Context, session *models.ChallengeSession) ([]byte, error) {
	code, err := generateOTP()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate otp")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), v.cost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash otp")
	}
	if err := v.sender.Send(ctx, session.Owner, session.EntityID, code); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to deliver otp")
	}
	return hash, nil
}

func (v *StrictVerifier) ResendOTP(ctx context.Context, session *models.ChallengeSession) ([]byte, error) {
	return v.IssueOTP(ctx, session)
}

func (v *StrictVerifier) VerifyOTP(_ context.Context, session *models.ChallengeSession, otp string) (bool, error) {
	if len(session.OTPHash) == 0 {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword(session.OTPHash, []byte(otp))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify otp")
	}
	return true, nil
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// LogSender writes codes to the log. For local development only.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(ctx context.Context, owner string, id domain.EntityID, code string) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "otp issued", "owner", owner, "entity_id", id, "otp", code)
	return nil
}
