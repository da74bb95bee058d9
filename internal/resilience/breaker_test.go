package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClock drives a breaker's notion of time without sleeping.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestBreaker(threshold int, timeout time.Duration) (*Breaker, *testClock) {
	clock := &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	b := NewBreaker("test-dep", threshold, timeout)
	b.now = clock.Now
	return b, clock
}

func TestBreaker_OpensAfterThresholdFailures(t *testing.T) {
	b, _ := newTestBreaker(3, 30*time.Second)

	for i := 0; i < 2; i++ {
		require.True(t, b.Allow())
		b.RecordFailure()
		assert.Equal(t, StateClosed, b.State())
	}

	require.True(t, b.Allow())
	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(3, 30*time.Second)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()

	// Two more failures must not reach the threshold of three consecutive.
	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenAfterRecoveryTimeout(t *testing.T) {
	b, clock := newTestBreaker(1, 30*time.Second)

	require.True(t, b.Allow())
	b.RecordFailure()
	require.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())

	clock.Advance(29 * time.Second)
	assert.False(t, b.Allow(), "still inside recovery timeout")

	clock.Advance(time.Second)
	assert.True(t, b.Allow(), "probe allowed after recovery timeout")
	assert.Equal(t, StateHalfOpen, b.State())
}

func TestBreaker_HalfOpenAdmitsSingleProbe(t *testing.T) {
	b, clock := newTestBreaker(1, 10*time.Second)

	b.RecordFailure()
	clock.Advance(10 * time.Second)

	require.True(t, b.Allow())
	// A second concurrent call during the probe must be rejected.
	assert.False(t, b.Allow())

	b.RecordSuccess()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	b, clock := newTestBreaker(1, 10*time.Second)

	b.RecordFailure()
	clock.Advance(10 * time.Second)
	require.True(t, b.Allow())

	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())

	// The cycle repeats: another timeout allows another probe.
	clock.Advance(10 * time.Second)
	assert.True(t, b.Allow())
	b.RecordSuccess()
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_Reset(t *testing.T) {
	b, _ := newTestBreaker(1, 10*time.Second)

	b.RecordFailure()
	require.Equal(t, StateOpen, b.State())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

func TestRegistry_SharesBreakersByName(t *testing.T) {
	r := NewRegistry(3, 30*time.Second)

	a := r.Breaker("ai-provider")
	b := r.Breaker("ai-provider")
	assert.Same(t, a, b)

	other := r.Breaker("deployment-http")
	assert.NotSame(t, a, other)
}

func TestRegistry_StatusAndResetAll(t *testing.T) {
	r := NewRegistry(1, 30*time.Second)

	r.Breaker("ai-provider").RecordFailure()
	r.Breaker("deployment-http")

	status := r.Status()
	require.Len(t, status, 2)
	assert.Equal(t, StateOpen, status["ai-provider"].State)
	assert.True(t, status["ai-provider"].IsOpen)
	assert.Equal(t, StateClosed, status["deployment-http"].State)

	r.ResetAll()
	status = r.Status()
	assert.Equal(t, StateClosed, status["ai-provider"].State)
	assert.Equal(t, 0, status["ai-provider"].Failures)
}
