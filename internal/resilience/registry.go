package resilience

import (
	"sync"
	"time"
)

// Well-known dependency names used across the pipeline.
const (
	BreakerAIProvider     = "ai-provider"
	BreakerDeploymentHTTP = "deployment-http"
	BreakerSourceHostAPI  = "source-host-api"
)

// BreakerStatus is a point-in-time snapshot of one breaker's state.
type BreakerStatus struct {
	State    State `json:"state"`
	Failures int   `json:"failures"`
	IsOpen   bool  `json:"is_open"`
}

// Registry holds one Breaker per dependency name. It is constructed once at
// process start and injected into every component that calls an external
// dependency, so breaker lifetime and test-reset behavior stay explicit.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*Breaker

	failureThreshold int
	recoveryTimeout  time.Duration
}

// NewRegistry creates an empty registry with the given defaults for
// lazily-created breakers. Zero values fall back to the package defaults.
func NewRegistry(failureThreshold int, recoveryTimeout time.Duration) *Registry {
	return &Registry{
		breakers:         make(map[string]*Breaker),
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
	}
}

// Breaker returns the breaker for name, creating it on first use. The same
// instance is returned for every subsequent call with that name.
func (r *Registry) Breaker(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.breakers[name]
	if !ok {
		b = NewBreaker(name, r.failureThreshold, r.recoveryTimeout)
		r.breakers[name] = b
	}
	return b
}

// ResetAll resets every breaker in the registry to closed.
func (r *Registry) ResetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.breakers {
		b.Reset()
	}
}

// Status returns a snapshot of every breaker keyed by dependency name.
func (r *Registry) Status() map[string]BreakerStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	status := make(map[string]BreakerStatus, len(r.breakers))
	for name, b := range r.breakers {
		b.mu.Lock()
		status[name] = BreakerStatus{
			State:    b.state,
			Failures: b.failures,
			IsOpen:   b.state == StateOpen,
		}
		b.mu.Unlock()
	}
	return status
}
