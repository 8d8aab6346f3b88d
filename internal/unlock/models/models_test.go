package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultline/pkg/domain"

	dErrors "vaultline/pkg/domain-errors"
)

func TestUnlockSet(t *testing.T) {
	empty := UnlockSet{}
	assert.Equal(t, 0, empty.Len())
	assert.False(t, empty.Contains("card_1"))

	one := empty.With("card_1")
	two := one.With("card_2").With("card_1")

	assert.Equal(t, 0, empty.Len(), "With must not mutate the receiver")
	assert.Equal(t, []domain.EntityID{"card_1"}, one.IDs())
	assert.Equal(t, []domain.EntityID{"card_1", "card_2"}, two.IDs())
	assert.True(t, two.Equal(NewUnlockSet("card_2", "card_1")))
	assert.False(t, two.Equal(one))
}

func TestUnlockSet_JSON(t *testing.T) {
	raw, err := json.Marshal(NewUnlockSet("loan_2", "card_1"))
	require.NoError(t, err)
	assert.JSONEq(t, `["card_1","loan_2"]`, string(raw))

	var decoded UnlockSet
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.True(t, decoded.Contains("loan_2"))

	raw, err = json.Marshal(UnlockSet{})
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(raw))
}

func TestPreferenceKey(t *testing.T) {
	for _, kind := range domain.Kinds() {
		key, ok := PreferenceKey(kind)
		assert.True(t, ok, "kind %s must declare a preference key", kind)
		assert.NotEmpty(t, key)
	}
	key, _ := PreferenceKey(domain.KindCard)
	assert.Equal(t, "unlocked_cards", key)
	key, _ = PreferenceKey(domain.KindLoan)
	assert.Equal(t, "unlocked_loans", key)
}

func TestChallengeSession_Lifecycle(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	s, err := NewChallengeSession("sid", "owner", "card_1", now, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, StepAwaitingCVV, s.Step)

	require.NoError(t, s.Fail(ReasonCVVMismatch, now))
	assert.Equal(t, StepError, s.Step)
	assert.Equal(t, StepAwaitingCVV, s.FailedStep)

	require.NoError(t, s.Retry(now))
	assert.Equal(t, StepAwaitingCVV, s.Step)
	assert.Empty(t, s.Reason)

	require.NoError(t, s.Transition(StepAwaitingOTP, now))
	s.OTPHash = []byte("hash")
	require.NoError(t, s.Complete(now))
	assert.Equal(t, StepUnlocked, s.Step)
	assert.Nil(t, s.OTPHash)
	assert.True(t, s.Step.IsTerminal())

	err = s.Transition(StepAwaitingCVV, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func TestChallengeSession_InvalidMoves(t *testing.T) {
	now := time.Now()
	s, err := NewChallengeSession("sid", "owner", "card_1", now, time.Minute)
	require.NoError(t, err)

	assert.True(t, dErrors.HasCode(s.Transition(StepUnlocked, now), dErrors.CodeInvalidState), "cannot skip the otp step")
	assert.True(t, dErrors.HasCode(s.Retry(now), dErrors.CodeInvalidState))

	require.NoError(t, s.Lock(now))
	assert.Equal(t, ReasonTooManyTries, s.Reason)
	assert.True(t, dErrors.HasCode(s.Transition(StepAwaitingOTP, now), dErrors.CodeInvalidState))
}

func TestNewChallengeSession_Invariants(t *testing.T) {
	now := time.Now()
	_, err := NewChallengeSession("", "owner", "card_1", now, time.Minute)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	_, err = NewChallengeSession("sid", " ", "card_1", now, time.Minute)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	_, err = NewChallengeSession("sid", "owner", "card_1", now, 0)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestChallengeSession_Expiry(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	s, err := NewChallengeSession("sid", "owner", "card_1", now, time.Minute)
	require.NoError(t, err)

	assert.False(t, s.IsExpiredAt(now.Add(59*time.Second)))
	assert.True(t, s.IsExpiredAt(now.Add(time.Minute)))
	assert.False(t, AlreadyUnlocked("owner", "card_1", now).IsExpiredAt(now.Add(time.Hour)))
}

func TestAttemptLockout(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	l := &AttemptLockout{Identifier: LockoutKey("owner", "card_1"), FailureCount: 5}

	assert.Equal(t, "owner|card_1", l.Identifier)
	assert.True(t, l.ShouldLock(5))
	assert.False(t, l.IsLockedAt(now))

	l.ApplyLock(15*time.Minute, now)
	assert.True(t, l.IsLockedAt(now.Add(14*time.Minute)))
	assert.False(t, l.LockExpiredAt(now.Add(14*time.Minute)))
	assert.True(t, l.LockExpiredAt(now.Add(15*time.Minute)))
}

func TestIsDigits(t *testing.T) {
	assert.True(t, IsDigits("123", 3))
	assert.False(t, IsDigits("12", 3))
	assert.False(t, IsDigits("12a", 3))
	assert.False(t, IsDigits("١٢٣", 3), "non-ascii digits are rejected")
	assert.True(t, IsDigits("000000", 6))
}

func TestBeginChallengeRequest(t *testing.T) {
	req := &BeginChallengeRequest{EntityID: "  "}
	req.Normalize()
	err := req.Validate()
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
