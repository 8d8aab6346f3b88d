package challenge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"vaultline/internal/unlock/models"
	"vaultline/internal/unlock/service/mocks"
	"vaultline/internal/unlock/service/unlockset"
	"vaultline/internal/unlock/store/lockout"
	"vaultline/internal/unlock/store/preference"
	"vaultline/internal/unlock/store/session"
	"vaultline/pkg/domain"
	"vaultline/pkg/platform/sentinel"
	"vaultline/pkg/requestcontext"

	dErrors "vaultline/pkg/domain-errors"
)

const owner = "owner-1"

var securityCodes = map[domain.EntityID]string{
	"card_1": "123",
	"card_2": "456",
	"loan_1": "789",
}

type capturingSender struct {
	mu    sync.Mutex
	codes []string
}

func (c *capturingSender) Send(_ context.Context, _ string, _ domain.EntityID, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes = append(c.codes, code)
	return nil
}

func (c *capturingSender) last() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.codes) == 0 {
		return ""
	}
	return c.codes[len(c.codes)-1]
}

type ChallengeServiceSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	now       time.Time
	sessions  *session.InMemorySessionStore
	lockouts  *lockout.InMemoryLockoutStore
	unlocks   *unlockset.Service
	directory *mocks.MockEntityDirectory
	sender    *capturingSender
	service   *Service
}

func TestChallengeServiceSuite(t *testing.T) {
	suite.Run(t, new(ChallengeServiceSuite))
}

func (s *ChallengeServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.sessions = session.New()
	s.lockouts = lockout.New()
	s.sender = &capturingSender{}

	var err error
	s.unlocks, err = unlockset.New(preference.NewInMemory())
	s.Require().NoError(err)

	s.directory = mocks.NewMockEntityDirectory(s.ctrl)
	s.directory.EXPECT().Exists(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, id domain.EntityID) bool {
			_, ok := securityCodes[id]
			return ok
		}).AnyTimes()
	s.directory.EXPECT().SecurityCode(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, id domain.EntityID) (string, error) {
			code, ok := securityCodes[id]
			if !ok {
				return "", sentinel.ErrNotFound
			}
			return code, nil
		}).AnyTimes()

	s.service = s.newService(MockVerifier{})
}

func (s *ChallengeServiceSuite) newService(verifier Verifier) *Service {
	svc, err := New(s.sessions, s.lockouts, s.unlocks, s.directory, verifier,
		WithConfig(Config{MaxAttempts: 3, LockDuration: 15 * time.Minute, SessionTTL: 10 * time.Minute}),
	)
	s.Require().NoError(err)
	return svc
}

func (s *ChallengeServiceSuite) strictService() *Service {
	verifier, err := NewStrictVerifier(s.directory, s.sender, WithBcryptCost(bcrypt.MinCost))
	s.Require().NoError(err)
	return s.newService(verifier)
}

func (s *ChallengeServiceSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *ChallengeServiceSuite) begin(svc *Service, id string) *models.ChallengeSession {
	session, err := svc.Begin(s.ctx(), owner, id)
	s.Require().NoError(err)
	return session
}

func (s *ChallengeServiceSuite) TestNew() {
	s.Run("missing dependencies are rejected", func() {
		_, err := New(nil, s.lockouts, s.unlocks, s.directory, MockVerifier{})
		s.ErrorContains(err, "session store is required")
		_, err = New(s.sessions, nil, s.unlocks, s.directory, MockVerifier{})
		s.ErrorContains(err, "lockout store is required")
		_, err = New(s.sessions, s.lockouts, s.unlocks, s.directory, nil)
		s.ErrorContains(err, "verifier is required")
	})

	s.Run("non-positive config is rejected", func() {
		_, err := New(s.sessions, s.lockouts, s.unlocks, s.directory, MockVerifier{}, WithConfig(Config{}))
		s.ErrorContains(err, "must be positive")
	})
}

func (s *ChallengeServiceSuite) TestBegin() {
	s.Run("starts awaiting cvv", func() {
		session := s.begin(s.service, "card_1")
		s.NotEmpty(session.ID)
		s.Equal(models.StepAwaitingCVV, session.Step)
		s.Equal(s.now.Add(10*time.Minute), session.ExpiresAt)
		s.False(session.ShortCircuit)

		stored, err := s.sessions.Get(s.ctx(), session.ID)
		s.Require().NoError(err)
		s.Equal(owner, stored.Owner)
	})

	s.Run("id without a known kind is invalid", func() {
		_, err := s.service.Begin(s.ctx(), owner, "vault_1")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("id missing from the catalog is not found", func() {
		_, err := s.service.Begin(s.ctx(), owner, "card_99")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("missing owner is unauthorized", func() {
		_, err := s.service.Begin(s.ctx(), "", "card_1")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("already unlocked entity short-circuits without storing", func() {
		_, err := s.unlocks.Unlock(s.ctx(), owner, "loan_1")
		s.Require().NoError(err)

		session := s.begin(s.service, "loan_1")
		s.Equal(models.StepUnlocked, session.Step)
		s.True(session.ShortCircuit)
		s.Empty(session.ID)
	})
}

func (s *ChallengeServiceSuite) TestSubmitCVV() {
	s.Run("malformed codes are rejected and the step is unchanged", func() {
		session := s.begin(s.service, "card_1")
		for _, cvv := range []string{"", "12", "1234", "12a", " 123", "１２３"} {
			_, err := s.service.SubmitCVV(s.ctx(), owner, session.ID, cvv)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation), "cvv %q", cvv)
		}
		stored, err := s.service.Get(s.ctx(), owner, session.ID)
		s.Require().NoError(err)
		s.Equal(models.StepAwaitingCVV, stored.Step)
	})

	s.Run("any three digits pass in mock mode", func() {
		session := s.begin(s.service, "card_1")
		updated, err := s.service.SubmitCVV(s.ctx(), owner, session.ID, "000")
		s.Require().NoError(err)
		s.Equal(models.StepAwaitingOTP, updated.Step)
	})

	s.Run("wrong step is an invalid state", func() {
		session := s.begin(s.service, "card_2")
		_, err := s.service.SubmitCVV(s.ctx(), owner, session.ID, "111")
		s.Require().NoError(err)

		_, err = s.service.SubmitCVV(s.ctx(), owner, session.ID, "111")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("another owner's session is not found", func() {
		session := s.begin(s.service, "card_1")
		_, err := s.service.SubmitCVV(s.ctx(), "intruder", session.ID, "123")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("unknown session is not found", func() {
		_, err := s.service.SubmitCVV(s.ctx(), owner, "missing", "123")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("expired session is rejected", func() {
		session := s.begin(s.service, "card_1")
		later := requestcontext.WithTime(context.Background(), s.now.Add(11*time.Minute))
		_, err := s.service.SubmitCVV(later, owner, session.ID, "123")
		s.True(dErrors.HasCode(err, dErrors.CodeExpired))
	})
}

func (s *ChallengeServiceSuite) TestSubmitOTP() {
	s.Run("malformed otp is rejected", func() {
		session := s.begin(s.service, "card_1")
		_, err := s.service.SubmitCVV(s.ctx(), owner, session.ID, "123")
		s.Require().NoError(err)
		for _, otp := range []string{"12345", "1234567", "12345a"} {
			_, err := s.service.SubmitOTP(s.ctx(), owner, session.ID, otp)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation), "otp %q", otp)
		}
	})

	s.Run("completes the unlock", func() {
		session := s.begin(s.service, "card_2")
		_, err := s.service.SubmitCVV(s.ctx(), owner, session.ID, "456")
		s.Require().NoError(err)

		done, err := s.service.SubmitOTP(s.ctx(), owner, session.ID, "000000")
		s.Require().NoError(err)
		s.Equal(models.StepUnlocked, done.Step)

		unlocked, err := s.unlocks.IsUnlocked(s.ctx(), owner, "card_2")
		s.Require().NoError(err)
		s.True(unlocked)
	})

	s.Run("otp before cvv is an invalid state", func() {
		session := s.begin(s.service, "loan_1")
		_, err := s.service.SubmitOTP(s.ctx(), owner, session.ID, "123456")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *ChallengeServiceSuite) TestSubmitOTPPersistenceFailure() {
	store := mocks.NewMockPreferenceStore(s.ctrl)
	store.EXPECT().Members(gomock.Any(), owner, gomock.Any()).Return(nil, nil).AnyTimes()
	store.EXPECT().Add(gomock.Any(), owner, "unlocked_cards", "card_1").Return(false, errors.New("disk full"))
	unlocks, err := unlockset.New(store)
	s.Require().NoError(err)
	svc, err := New(s.sessions, s.lockouts, unlocks, s.directory, MockVerifier{})
	s.Require().NoError(err)

	session, err := svc.Begin(s.ctx(), owner, "card_1")
	s.Require().NoError(err)
	_, err = svc.SubmitCVV(s.ctx(), owner, session.ID, "123")
	s.Require().NoError(err)

	_, err = svc.SubmitOTP(s.ctx(), owner, session.ID, "123456")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.True(dErrors.Retryable(err))

	stored, err := svc.Get(s.ctx(), owner, session.ID)
	s.Require().NoError(err)
	s.Equal(models.StepAwaitingOTP, stored.Step)
}

func (s *ChallengeServiceSuite) TestStrictVerification() {
	svc := s.strictService()
	session := s.begin(svc, "card_1")

	s.Run("cvv mismatch moves to error", func() {
		failed, err := svc.SubmitCVV(s.ctx(), owner, session.ID, "999")
		s.Require().NoError(err)
		s.Equal(models.StepError, failed.Step)
		s.Equal(models.StepAwaitingCVV, failed.FailedStep)
		s.Equal(models.ReasonCVVMismatch, failed.Reason)
		s.Equal(1, failed.Attempts)
		s.Empty(s.sender.last())
	})

	s.Run("retry returns to the failed step", func() {
		retried, err := svc.Retry(s.ctx(), owner, session.ID)
		s.Require().NoError(err)
		s.Equal(models.StepAwaitingCVV, retried.Step)
		s.Empty(retried.Reason)
	})

	s.Run("matching cvv issues a hashed otp", func() {
		next, err := svc.SubmitCVV(s.ctx(), owner, session.ID, "123")
		s.Require().NoError(err)
		s.Equal(models.StepAwaitingOTP, next.Step)
		s.Len(s.sender.last(), 6)
		s.NotEqual([]byte(s.sender.last()), next.OTPHash)
	})

	s.Run("wrong otp moves to error", func() {
		wrong := "000000"
		if s.sender.last() == wrong {
			wrong = "111111"
		}
		failed, err := svc.SubmitOTP(s.ctx(), owner, session.ID, wrong)
		s.Require().NoError(err)
		s.Equal(models.StepError, failed.Step)
		s.Equal(models.ReasonOTPMismatch, failed.Reason)
		s.Equal(2, failed.Attempts)

		_, err = svc.Retry(s.ctx(), owner, session.ID)
		s.Require().NoError(err)
	})

	s.Run("resend issues a fresh code", func() {
		_, err := svc.ResendOTP(s.ctx(), owner, session.ID)
		s.Require().NoError(err)
		s.Len(s.sender.codes, 2)
	})

	s.Run("correct otp unlocks and clears the counter", func() {
		done, err := svc.SubmitOTP(s.ctx(), owner, session.ID, s.sender.last())
		s.Require().NoError(err)
		s.Equal(models.StepUnlocked, done.Step)

		record, err := s.lockouts.Get(s.ctx(), models.LockoutKey(owner, "card_1"))
		s.Require().NoError(err)
		s.Nil(record)
	})
}

func (s *ChallengeServiceSuite) TestLockout() {
	svc := s.strictService()

	fail := func(id string) *models.ChallengeSession {
		session := s.begin(svc, id)
		failed, err := svc.SubmitCVV(s.ctx(), owner, session.ID, "999")
		s.Require().NoError(err)
		return failed
	}

	s.Run("locks after max attempts", func() {
		s.Equal(models.StepError, fail("card_2").Step)
		s.Equal(models.StepError, fail("card_2").Step)
		locked := fail("card_2")
		s.Equal(models.StepLocked, locked.Step)
		s.Equal(models.ReasonTooManyTries, locked.Reason)
		s.True(locked.Step.IsTerminal())
	})

	s.Run("new challenges are refused while locked", func() {
		_, err := svc.Begin(s.ctx(), owner, "card_2")
		s.True(dErrors.HasCode(err, dErrors.CodeRateLimited))
	})

	s.Run("other entities and owners are unaffected", func() {
		_, err := svc.Begin(s.ctx(), owner, "card_1")
		s.NoError(err)
		_, err = svc.Begin(s.ctx(), "owner-2", "card_2")
		s.NoError(err)
	})

	s.Run("lock lapses after the lock duration", func() {
		later := requestcontext.WithTime(context.Background(), s.now.Add(16*time.Minute))
		session, err := svc.Begin(later, owner, "card_2")
		s.Require().NoError(err)
		s.Equal(models.StepAwaitingCVV, session.Step)

		record, err := s.lockouts.Get(later, models.LockoutKey(owner, "card_2"))
		s.Require().NoError(err)
		s.Nil(record)
	})
}

// TestLockoutAppliesToOpenSessions covers sessions started before the pair
// was locked through other sessions.
func (s *ChallengeServiceSuite) TestLockoutAppliesToOpenSessions() {
	svc := s.strictService()

	awaitingCVV := s.begin(svc, "card_2")
	awaitingOTP := s.begin(svc, "card_2")
	_, err := svc.SubmitCVV(s.ctx(), owner, awaitingOTP.ID, "456")
	s.Require().NoError(err)
	code := s.sender.last()
	s.Require().Len(code, 6)
	resend := s.begin(svc, "card_2")
	_, err = svc.SubmitCVV(s.ctx(), owner, resend.ID, "456")
	s.Require().NoError(err)

	for range 3 {
		session := s.begin(svc, "card_2")
		_, err := svc.SubmitCVV(s.ctx(), owner, session.ID, "999")
		s.Require().NoError(err)
	}
	record, err := s.lockouts.Get(s.ctx(), models.LockoutKey(owner, "card_2"))
	s.Require().NoError(err)
	s.Require().True(record.IsLockedAt(s.now))

	s.Run("correct cvv is refused", func() {
		_, err := svc.SubmitCVV(s.ctx(), owner, awaitingCVV.ID, "456")
		s.True(dErrors.HasCode(err, dErrors.CodeRateLimited))

		stored, err := svc.Get(s.ctx(), owner, awaitingCVV.ID)
		s.Require().NoError(err)
		s.Equal(models.StepLocked, stored.Step)
		s.Equal(models.ReasonTooManyTries, stored.Reason)
	})

	s.Run("correct otp is refused and nothing is unlocked", func() {
		_, err := svc.SubmitOTP(s.ctx(), owner, awaitingOTP.ID, code)
		s.True(dErrors.HasCode(err, dErrors.CodeRateLimited))

		unlocked, err := s.unlocks.IsUnlocked(s.ctx(), owner, "card_2")
		s.Require().NoError(err)
		s.False(unlocked)
		stored, err := svc.Get(s.ctx(), owner, awaitingOTP.ID)
		s.Require().NoError(err)
		s.Equal(models.StepLocked, stored.Step)
		s.Nil(stored.OTPHash)
	})

	s.Run("resend is refused", func() {
		_, err := svc.ResendOTP(s.ctx(), owner, resend.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeRateLimited))
	})

	s.Run("locked sessions cannot be retried", func() {
		_, err := svc.Retry(s.ctx(), owner, awaitingCVV.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *ChallengeServiceSuite) TestClearLockout() {
	svc := s.strictService()
	for range 3 {
		session := s.begin(svc, "loan_1")
		_, err := svc.SubmitCVV(s.ctx(), owner, session.ID, "000")
		s.Require().NoError(err)
	}
	_, err := svc.Begin(s.ctx(), owner, "loan_1")
	s.Require().True(dErrors.HasCode(err, dErrors.CodeRateLimited))

	s.Require().NoError(svc.ClearLockout(s.ctx(), owner, "loan_1"))
	_, err = svc.Begin(s.ctx(), owner, "loan_1")
	s.NoError(err)

	s.True(dErrors.HasCode(svc.ClearLockout(s.ctx(), owner, "bogus"), dErrors.CodeInvalidInput))
}

func (s *ChallengeServiceSuite) TestRetry() {
	s.Run("only failed sessions can retry", func() {
		session := s.begin(s.service, "card_1")
		_, err := s.service.Retry(s.ctx(), owner, session.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *ChallengeServiceSuite) TestResendOTP() {
	s.Run("mock resend waits for the delay", func() {
		svc := s.newService(MockVerifier{ResendDelay: 20 * time.Millisecond})
		session := s.begin(svc, "card_1")
		_, err := svc.SubmitCVV(s.ctx(), owner, session.ID, "123")
		s.Require().NoError(err)

		start := time.Now()
		_, err = svc.ResendOTP(s.ctx(), owner, session.ID)
		s.Require().NoError(err)
		s.GreaterOrEqual(time.Since(start), 20*time.Millisecond)
	})

	s.Run("cancelled resend times out", func() {
		svc := s.newService(MockVerifier{ResendDelay: time.Hour})
		session := s.begin(svc, "card_2")
		_, err := svc.SubmitCVV(s.ctx(), owner, session.ID, "456")
		s.Require().NoError(err)

		ctx, cancel := context.WithTimeout(s.ctx(), 10*time.Millisecond)
		defer cancel()
		_, err = svc.ResendOTP(ctx, owner, session.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
	})

	s.Run("resend requires awaiting otp", func() {
		session := s.begin(s.service, "loan_1")
		_, err := s.service.ResendOTP(s.ctx(), owner, session.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *ChallengeServiceSuite) TestSweep() {
	svc := s.strictService()
	expired := s.begin(svc, "card_1")
	_, err := svc.SubmitCVV(s.ctx(), owner, s.begin(svc, "card_2").ID, "999")
	s.Require().NoError(err)

	later := requestcontext.WithTime(context.Background(), s.now.Add(30*time.Minute))
	result, err := svc.Sweep(later)
	s.Require().NoError(err)
	s.Equal(2, result.Sessions)
	s.Equal(1, result.Lockouts)

	_, err = s.sessions.Get(later, expired.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	job := svc.SweepJob("@every 1m")
	s.Equal("challenge-sweep", job.Name)
	s.NoError(job.Run(later))
}
