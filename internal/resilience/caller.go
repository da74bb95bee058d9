package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Class categorizes a failure for retry purposes.
type Class int

// Failure classes, from most to least severe.
const (
	// ClassFatal errors are never retried.
	ClassFatal Class = iota
	// ClassTransient errors are retried with normal exponential backoff.
	ClassTransient
	// ClassRateLimited errors are retried with an extra backoff multiplier.
	ClassRateLimited
)

// Classifier decides the failure class of an error.
type Classifier func(error) Class

// Policy configures retry behavior for one call site.
type Policy struct {
	// MaxAttempts is the total number of attempts (1 initial + retries).
	MaxAttempts int
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
	// Multiplier is applied per attempt (delay = base * multiplier^attempt).
	Multiplier float64
	// MaxDelay caps the computed delay.
	MaxDelay time.Duration
	// RateLimitMultiplier is the extra factor applied when the failure is
	// rate-limited rather than merely transient.
	RateLimitMultiplier float64
	// Classify decides whether an error is fatal, transient, or rate-limited.
	// Nil means DefaultClassify.
	Classify Classifier
}

// DefaultPolicy returns the retry policy used by pipeline steps:
// 4 attempts, 1s base delay doubling per attempt, capped at 10s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:         4,
		BaseDelay:           time.Second,
		Multiplier:          2,
		MaxDelay:            10 * time.Second,
		RateLimitMultiplier: 2,
	}
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 4
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Second
	}
	if p.Multiplier <= 0 {
		p.Multiplier = 2
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 10 * time.Second
	}
	if p.RateLimitMultiplier <= 0 {
		p.RateLimitMultiplier = 2
	}
	if p.Classify == nil {
		p.Classify = DefaultClassify
	}
	return p
}

// delay returns the backoff before retrying after the given zero-based attempt.
func (p Policy) delay(attempt int, class Class) time.Duration {
	d := float64(p.BaseDelay)
	for i := 0; i < attempt; i++ {
		d *= p.Multiplier
	}
	if class == ClassRateLimited {
		d *= p.RateLimitMultiplier
	}
	if capped := float64(p.MaxDelay); d > capped {
		d = capped
	}
	return time.Duration(d)
}

// ExhaustedError wraps the last failure once all retry attempts are spent.
type ExhaustedError struct {
	Attempts int
	Elapsed  time.Duration
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts (%.1fs): %v", e.Attempts, e.Elapsed.Seconds(), e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Caller executes operations with retry and circuit breaking. The sleep
// function is replaceable so tests do not wait on real backoff.
type Caller struct {
	logger *slog.Logger
	sleep  func(context.Context, time.Duration) error
}

// NewCaller creates a Caller that sleeps on the wall clock between retries.
func NewCaller(logger *slog.Logger) *Caller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Caller{
		logger: logger,
		sleep:  sleepContext,
	}
}

// WithSleep returns a copy of the caller using the given sleep function.
// Intended for tests.
func (c *Caller) WithSleep(sleep func(context.Context, time.Duration) error) *Caller {
	return &Caller{logger: c.logger, sleep: sleep}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Call runs op under the breaker with the given retry policy.
//
// If the breaker is open the call short-circuits immediately with
// *CircuitOpenError and op is never invoked. Every attempt's outcome is
// recorded on the breaker. Fatal failures return immediately; transient and
// rate-limited failures back off and retry until attempts are exhausted, at
// which point the last failure is returned wrapped in *ExhaustedError.
func Call[T any](ctx context.Context, c *Caller, breaker *Breaker, policy Policy, op func(context.Context) (T, error)) (T, error) {
	var zero T
	policy = policy.withDefaults()
	start := time.Now()

	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if !breaker.Allow() {
			return zero, &CircuitOpenError{Name: breaker.Name()}
		}

		result, err := op(ctx)
		if err == nil {
			breaker.RecordSuccess()
			return result, nil
		}
		breaker.RecordFailure()
		lastErr = err

		class := policy.Classify(err)
		if class == ClassFatal {
			c.logger.Warn("non-retryable failure", "breaker", breaker.Name(), "error", err)
			return zero, err
		}
		if attempt == policy.MaxAttempts-1 {
			break
		}

		delay := policy.delay(attempt, class)
		c.logger.Warn("retrying after failure",
			"breaker", breaker.Name(),
			"attempt", attempt+1,
			"max_attempts", policy.MaxAttempts,
			"delay", delay,
			"error", err)
		if err := c.sleep(ctx, delay); err != nil {
			return zero, err
		}
	}

	return zero, &ExhaustedError{
		Attempts: policy.MaxAttempts,
		Elapsed:  time.Since(start),
		Err:      lastErr,
	}
}

// rateLimitPatterns match failures caused by upstream throttling.
var rateLimitPatterns = []string{
	"rate limit",
	"rate_limit",
	"429",
	"too many requests",
	"quota",
	"overloaded",
}

// transientPatterns match failures worth retrying with normal backoff.
var transientPatterns = []string{
	"timeout",
	"timed out",
	"deadline exceeded",
	"connection refused",
	"connection reset",
	"temporary failure",
	"service unavailable",
	"network",
	"502",
	"503",
	"504",
	"eof",
}

// DefaultClassify classifies an error by its message. Rate-limit and
// throttling failures get the extra backoff multiplier, known transient
// network failures get normal backoff, and everything else is fatal.
func DefaultClassify(err error) Class {
	if err == nil {
		return ClassFatal
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range rateLimitPatterns {
		if strings.Contains(msg, pattern) {
			return ClassRateLimited
		}
	}
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return ClassTransient
		}
	}
	return ClassFatal
}
