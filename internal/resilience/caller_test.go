package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestCaller records requested backoff delays instead of sleeping.
func newTestCaller() (*Caller, *[]time.Duration) {
	delays := &[]time.Duration{}
	c := NewCaller(nil).WithSleep(func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	})
	return c, delays
}

func TestCall_SucceedsFirstAttempt(t *testing.T) {
	c, delays := newTestCaller()
	b := NewBreaker("dep", 3, time.Minute)

	calls := 0
	result, err := Call(context.Background(), c, b, DefaultPolicy(), func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *delays)
	assert.Equal(t, StateClosed, b.State())
}

func TestCall_RetriesTransientThenSucceeds(t *testing.T) {
	c, delays := newTestCaller()
	b := NewBreaker("dep", 10, time.Minute)

	calls := 0
	result, err := Call(context.Background(), c, b, DefaultPolicy(), func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("connection reset by peer")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, calls)
	// Exponential: 1s then 2s.
	require.Len(t, *delays, 2)
	assert.Equal(t, time.Second, (*delays)[0])
	assert.Equal(t, 2*time.Second, (*delays)[1])
}

func TestCall_RateLimitedGetsExtraBackoff(t *testing.T) {
	c, delays := newTestCaller()
	b := NewBreaker("dep", 10, time.Minute)

	calls := 0
	_, err := Call(context.Background(), c, b, DefaultPolicy(), func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("429 too many requests")
		}
		return 1, nil
	})

	require.NoError(t, err)
	require.Len(t, *delays, 1)
	// Base 1s with the rate-limit multiplier of 2 applied.
	assert.Equal(t, 2*time.Second, (*delays)[0])
}

func TestCall_FatalErrorNotRetried(t *testing.T) {
	c, delays := newTestCaller()
	b := NewBreaker("dep", 10, time.Minute)

	calls := 0
	fatal := errors.New("invalid request payload")
	_, err := Call(context.Background(), c, b, DefaultPolicy(), func(context.Context) (int, error) {
		calls++
		return 0, fatal
	})

	require.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *delays)
}

func TestCall_ExhaustionWrapsLastError(t *testing.T) {
	c, _ := newTestCaller()
	b := NewBreaker("dep", 10, time.Minute)

	calls := 0
	_, err := Call(context.Background(), c, b, DefaultPolicy(), func(context.Context) (int, error) {
		calls++
		return 0, errors.New("request timed out")
	})

	require.Error(t, err)
	assert.Equal(t, 4, calls)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 4, exhausted.Attempts)
	assert.Contains(t, exhausted.Err.Error(), "timed out")
}

func TestCall_OpenBreakerShortCircuits(t *testing.T) {
	c, _ := newTestCaller()
	b := NewBreaker("ai-provider", 1, time.Hour)
	b.ForceOpen()

	calls := 0
	_, err := Call(context.Background(), c, b, DefaultPolicy(), func(context.Context) (int, error) {
		calls++
		return 0, nil
	})

	var openErr *CircuitOpenError
	require.ErrorAs(t, err, &openErr)
	assert.Equal(t, "ai-provider", openErr.Name)
	assert.Equal(t, 0, calls, "operation must not be invoked while open")
}

func TestCall_FailuresOpenSharedBreaker(t *testing.T) {
	c, _ := newTestCaller()
	b := NewBreaker("dep", 3, time.Hour)

	_, err := Call(context.Background(), c, b, DefaultPolicy(), func(context.Context) (int, error) {
		return 0, errors.New("service unavailable")
	})
	require.Error(t, err)

	// Three recorded failures within one Call opened the breaker; the next
	// Call against the same breaker short-circuits.
	assert.Equal(t, StateOpen, b.State())
	_, err = Call(context.Background(), c, b, DefaultPolicy(), func(context.Context) (int, error) {
		t.Fatal("operation should not run")
		return 0, nil
	})
	var openErr *CircuitOpenError
	assert.ErrorAs(t, err, &openErr)
}

func TestCall_CanceledContextStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := NewCaller(nil).WithSleep(func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	})
	b := NewBreaker("dep", 10, time.Minute)

	_, err := Call(ctx, c, b, DefaultPolicy(), func(context.Context) (int, error) {
		return 0, errors.New("timeout")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaultClassify(t *testing.T) {
	assert.Equal(t, ClassRateLimited, DefaultClassify(errors.New("HTTP 429 Too Many Requests")))
	assert.Equal(t, ClassRateLimited, DefaultClassify(errors.New("quota exceeded")))
	assert.Equal(t, ClassTransient, DefaultClassify(errors.New("dial tcp: connection refused")))
	assert.Equal(t, ClassTransient, DefaultClassify(errors.New("503 Service Unavailable")))
	assert.Equal(t, ClassFatal, DefaultClassify(errors.New("401 unauthorized")))
	assert.Equal(t, ClassFatal, DefaultClassify(nil))
}

func TestPolicy_DelayCappedAtMax(t *testing.T) {
	p := DefaultPolicy().withDefaults()
	assert.Equal(t, time.Second, p.delay(0, ClassTransient))
	assert.Equal(t, 2*time.Second, p.delay(1, ClassTransient))
	assert.Equal(t, 4*time.Second, p.delay(2, ClassTransient))
	assert.Equal(t, 8*time.Second, p.delay(3, ClassTransient))
	assert.Equal(t, 10*time.Second, p.delay(4, ClassTransient), "capped at max delay")
	assert.Equal(t, 10*time.Second, p.delay(3, ClassRateLimited), "rate-limit multiplier still capped")
}
