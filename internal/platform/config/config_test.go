package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadHeaderTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout)
	assert.Equal(t, "file", cfg.Preferences.Backend)
	assert.Equal(t, VerificationMock, cfg.Challenge.Verification)
	assert.Equal(t, 5, cfg.Challenge.MaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Challenge.LockDuration)
	assert.Equal(t, time.Second, cfg.Challenge.ResendDelay)
	assert.InDelta(t, 0.03, cfg.Repayment.CardMinimumRate, 1e-9)
	assert.InDelta(t, 5.00, cfg.Repayment.LoanProcessingFee, 1e-9)
	assert.Equal(t, "device-owner", cfg.Auth.DefaultOwner)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9090")
	t.Setenv("PREFERENCES_BACKEND", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("CHALLENGE_MAX_ATTEMPTS", "3")
	t.Setenv("CHALLENGE_SESSION_TTL", "2m")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "redis", cfg.Preferences.Backend)
	assert.Equal(t, 3, cfg.Challenge.MaxAttempts)
	assert.Equal(t, 2*time.Minute, cfg.Challenge.SessionTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_RejectsInvalidCombinations(t *testing.T) {
	cases := []struct {
		name    string
		env     map[string]string
		mention string
	}{
		{
			name:    "unknown backend",
			env:     map[string]string{"PREFERENCES_BACKEND": "sqlite"},
			mention: "PREFERENCES_BACKEND",
		},
		{
			name:    "redis backend without url",
			env:     map[string]string{"PREFERENCES_BACKEND": "redis"},
			mention: "REDIS_URL",
		},
		{
			name:    "postgres lockouts without url",
			env:     map[string]string{"CHALLENGE_LOCKOUT_BACKEND": "postgres"},
			mention: "PREFERENCES_POSTGRES_URL",
		},
		{
			name:    "auth without signing key",
			env:     map[string]string{"AUTH_ENABLED": "true"},
			mention: "AUTH_JWT_SIGNING_KEY",
		},
		{
			name:    "unknown verification mode",
			env:     map[string]string{"CHALLENGE_VERIFICATION": "sms"},
			mention: "CHALLENGE_VERIFICATION",
		},
		{
			name:    "negative fee",
			env:     map[string]string{"REPAYMENT_CARD_PROCESSING_FEE": "-1"},
			mention: "REPAYMENT_CARD_PROCESSING_FEE",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tc.mention), "expected %q in %v", tc.mention, err)
		})
	}
}
