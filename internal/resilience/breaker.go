// Package resilience provides retry with exponential backoff and the circuit
// breaker pattern used around every external dependency call (AI provider,
// source-host API, deployment HTTP).
package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State string

// Circuit breaker states.
const (
	// StateClosed is normal operation: all calls pass through.
	StateClosed State = "closed"
	// StateOpen rejects all calls until the recovery timeout elapses.
	StateOpen State = "open"
	// StateHalfOpen allows exactly one probe call to test recovery.
	StateHalfOpen State = "half_open"
)

// DefaultFailureThreshold is the number of consecutive failures that opens a breaker.
const DefaultFailureThreshold = 3

// DefaultRecoveryTimeout is how long an open breaker waits before allowing a probe.
const DefaultRecoveryTimeout = 30 * time.Second

// CircuitOpenError is returned when a call is short-circuited by an open breaker.
type CircuitOpenError struct {
	Name string
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker '%s' is open", e.Name)
}

// IsCircuitOpen reports whether err was caused by an open breaker.
func IsCircuitOpen(err error) bool {
	var openErr *CircuitOpenError
	return errors.As(err, &openErr)
}

// Breaker implements the circuit breaker state machine for one named dependency.
// One Breaker instance is shared by name across all concurrent runs, so the
// health judgment for a dependency is global, not per-run.
type Breaker struct {
	name             string
	failureThreshold int
	recoveryTimeout  time.Duration

	mu            sync.Mutex
	state         State
	failures      int
	lastFailure   time.Time
	probeInFlight bool

	now    func() time.Time
	logger *slog.Logger
}

// NewBreaker creates a closed breaker for the named dependency.
func NewBreaker(name string, failureThreshold int, recoveryTimeout time.Duration) *Breaker {
	if failureThreshold <= 0 {
		failureThreshold = DefaultFailureThreshold
	}
	if recoveryTimeout <= 0 {
		recoveryTimeout = DefaultRecoveryTimeout
	}
	return &Breaker{
		name:             name,
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		state:            StateClosed,
		now:              time.Now,
		logger:           slog.Default(),
	}
}

// Name returns the dependency name this breaker guards.
func (b *Breaker) Name() string { return b.name }

// Allow reports whether a call may proceed right now.
// While open, it transitions to half-open once the recovery timeout has
// elapsed since the last failure and admits exactly one probe call; further
// calls are rejected until that probe's outcome is recorded.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if !b.lastFailure.IsZero() && b.now().Sub(b.lastFailure) >= b.recoveryTimeout {
			b.state = StateHalfOpen
			b.probeInFlight = true
			b.logger.Info("circuit breaker entering half-open state", "breaker", b.name)
			return true
		}
		return false
	case StateHalfOpen:
		// Only one probe at a time.
		if b.probeInFlight {
			return false
		}
		b.probeInFlight = true
		return true
	}
	return false
}

// RecordSuccess records a successful call, closing the breaker and resetting
// the consecutive-failure counter.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.logger.Info("circuit breaker recovered", "breaker", b.name)
	}
	b.state = StateClosed
	b.failures = 0
	b.probeInFlight = false
}

// RecordFailure records a failed call. A failed half-open probe reopens the
// breaker immediately; in the closed state the breaker opens once the
// consecutive-failure count reaches the threshold.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = b.now()
	b.probeInFlight = false

	if b.state == StateHalfOpen {
		b.state = StateOpen
		b.logger.Warn("circuit breaker probe failed, reopening", "breaker", b.name)
	} else if b.failures >= b.failureThreshold {
		b.state = StateOpen
		b.logger.Warn("circuit breaker opened", "breaker", b.name, "failures", b.failures)
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// IsOpen reports whether the breaker is currently open.
func (b *Breaker) IsOpen() bool {
	return b.State() == StateOpen
}

// Reset returns the breaker to its initial closed state.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.lastFailure = time.Time{}
	b.probeInFlight = false
}

// ForceOpen opens the breaker as if the failure threshold had just been
// reached. Intended for tests and operational overrides.
func (b *Breaker) ForceOpen() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateOpen
	b.failures = b.failureThreshold
	b.lastFailure = b.now()
	b.probeInFlight = false
}
