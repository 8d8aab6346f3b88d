package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreaker_Defaults(t *testing.T) {
	b := New("audit-sink")
	assert.Equal(t, "audit-sink", b.Name())
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "closed", b.State().String())

	for range 4 {
		b.RecordFailure()
	}
	assert.False(t, b.IsOpen(), "default threshold is five failures")
	b.RecordFailure()
	assert.True(t, b.IsOpen())
	assert.Equal(t, "open", b.State().String())
}

// TestBreaker_BrokerProfile exercises the thresholds the event producer uses:
// open after three consecutive failures, close on the first good probe.
func TestBreaker_BrokerProfile(t *testing.T) {
	b := New("rabbitmq", WithFailureThreshold(3), WithSuccessThreshold(1))

	t.Run("interleaved success keeps it closed", func(t *testing.T) {
		b.RecordFailure()
		b.RecordFailure()
		usePrimary, change := b.RecordSuccess()
		assert.True(t, usePrimary)
		assert.False(t, change.Closed, "already closed")
		b.RecordFailure()
		b.RecordFailure()
		assert.False(t, b.IsOpen())
	})

	t.Run("third consecutive failure opens", func(t *testing.T) {
		useFallback, change := b.RecordFailure()
		assert.True(t, useFallback)
		assert.True(t, change.Opened)
		require.True(t, b.IsOpen())

		useFallback, change = b.RecordFailure()
		assert.True(t, useFallback)
		assert.False(t, change.Opened, "reports the transition once")
	})

	t.Run("one probe closes", func(t *testing.T) {
		usePrimary, change := b.RecordSuccess()
		assert.True(t, usePrimary)
		assert.True(t, change.Closed)
		assert.False(t, b.IsOpen())
	})

	t.Run("counter restarts after closing", func(t *testing.T) {
		b.RecordFailure()
		b.RecordFailure()
		assert.False(t, b.IsOpen())
	})
}

func TestBreaker_FailedProbeRestartsRecovery(t *testing.T) {
	b := New("kafka", WithFailureThreshold(1), WithSuccessThreshold(2))
	b.RecordFailure()
	require.True(t, b.IsOpen())

	b.RecordSuccess()
	b.RecordFailure()
	usePrimary, _ := b.RecordSuccess()
	assert.False(t, usePrimary, "success count restarted after the failed probe")
	assert.True(t, b.IsOpen())

	usePrimary, change := b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.True(t, change.Closed)
}

func TestBreaker_Reset(t *testing.T) {
	b := New("rabbitmq", WithFailureThreshold(1))
	b.RecordFailure()
	require.True(t, b.IsOpen())

	b.Reset()
	assert.False(t, b.IsOpen())
	useFallback, change := b.RecordFailure()
	assert.True(t, useFallback)
	assert.True(t, change.Opened)
}

func TestBreaker_IgnoresNonPositiveThresholds(t *testing.T) {
	b := New("rabbitmq", WithFailureThreshold(0), WithSuccessThreshold(-1))
	for range 4 {
		b.RecordFailure()
	}
	assert.False(t, b.IsOpen())
}
