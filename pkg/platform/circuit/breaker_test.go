package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerStartsClosed(t *testing.T) {
	b := New("audit-kafka")
	assert.Equal(t, "audit-kafka", b.Name())
	assert.Equal(t, StateClosed, b.State())
	assert.False(t, b.IsOpen())
}

func TestBreakerOpensOnConsecutiveFailures(t *testing.T) {
	b := New("sink", WithFailureThreshold(3))

	for i := 0; i < 2; i++ {
		fallback, change := b.RecordFailure()
		assert.False(t, fallback)
		assert.False(t, change.Opened)
	}

	fallback, change := b.RecordFailure()
	assert.True(t, fallback)
	assert.True(t, change.Opened, "third consecutive failure must open the circuit")
	assert.Equal(t, StateOpen, b.State())

	// Further failures keep it open without reporting another transition.
	fallback, change = b.RecordFailure()
	assert.True(t, fallback)
	assert.False(t, change.Opened)
}

func TestSuccessResetsFailureStreak(t *testing.T) {
	b := New("sink", WithFailureThreshold(2))

	_, _ = b.RecordFailure()
	_, _ = b.RecordSuccess()
	_, change := b.RecordFailure()

	assert.False(t, change.Opened, "streak restarts after a success")
	assert.False(t, b.IsOpen())
}

func TestBreakerClosesAfterSuccessThreshold(t *testing.T) {
	b := New("sink", WithFailureThreshold(1), WithSuccessThreshold(2))

	_, change := b.RecordFailure()
	require.True(t, change.Opened)

	usePrimary, change := b.RecordSuccess()
	assert.False(t, usePrimary)
	assert.False(t, change.Closed)

	usePrimary, change = b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.True(t, change.Closed)
	assert.Equal(t, StateClosed, b.State())
}

func TestFailureWhileOpenResetsSuccessStreak(t *testing.T) {
	b := New("sink", WithFailureThreshold(1), WithSuccessThreshold(2))

	_, _ = b.RecordFailure()
	_, _ = b.RecordSuccess()
	_, _ = b.RecordFailure()
	_, change := b.RecordSuccess()

	assert.False(t, change.Closed, "recovery restarts after an interleaved failure")
	assert.True(t, b.IsOpen())
}

func TestReset(t *testing.T) {
	b := New("sink", WithFailureThreshold(1))

	_, change := b.RecordFailure()
	require.True(t, change.Opened)

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
}
