// Package progress provides the in-memory publish/subscribe layer that lets
// many observers watch long-running pipeline runs concurrently. Delivery is
// fire-and-forget: at most once, no buffering for late subscribers, no replay.
package progress

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultBufferSize is the per-observer event buffer. An observer whose
// buffer fills (a stalled transport) is removed rather than blocking
// publishers.
const DefaultBufferSize = 64

// Event is one progress update for a run.
type Event struct {
	RunID     string         `json:"run_id"`
	Stage     string         `json:"stage"`
	Progress  int            `json:"progress"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

type observer struct {
	id     string
	events chan Event
	runs   map[string]struct{}
}

// Hub maps run identifiers to subscribed observers and broadcasts events to
// them. Each observer receives events over its own buffered channel, so the
// worker goroutine publishing progress never crosses directly into an
// observer's transport.
type Hub struct {
	mu sync.RWMutex
	// observer id -> observer
	observers map[string]*observer
	// run id -> set of observer ids
	subscriptions map[string]map[string]struct{}

	bufferSize int
	logger     *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		observers:     make(map[string]*observer),
		subscriptions: make(map[string]map[string]struct{}),
		bufferSize:    DefaultBufferSize,
		logger:        logger,
	}
}

// Connect registers an observer and returns the channel its events will be
// delivered on. The channel is closed when the observer is removed.
func (h *Hub) Connect(observerID string) (<-chan Event, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.observers[observerID]; exists {
		return nil, fmt.Errorf("observer %q already connected", observerID)
	}

	obs := &observer{
		id:     observerID,
		events: make(chan Event, h.bufferSize),
		runs:   make(map[string]struct{}),
	}
	h.observers[observerID] = obs
	h.logger.Info("observer connected", "observer", observerID)
	return obs.events, nil
}

// Disconnect removes an observer and drops all of its subscriptions.
// Disconnecting an unknown observer is a no-op.
func (h *Hub) Disconnect(observerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(observerID)
}

func (h *Hub) removeLocked(observerID string) {
	obs, ok := h.observers[observerID]
	if !ok {
		return
	}
	for runID := range obs.runs {
		if subs, ok := h.subscriptions[runID]; ok {
			delete(subs, observerID)
			if len(subs) == 0 {
				delete(h.subscriptions, runID)
			}
		}
	}
	delete(h.observers, observerID)
	close(obs.events)
	h.logger.Info("observer disconnected", "observer", observerID)
}

// Subscribe adds the observer to a run's subscriber set. The observer must
// already be connected.
func (h *Hub) Subscribe(observerID, runID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	obs, ok := h.observers[observerID]
	if !ok {
		return fmt.Errorf("observer %q is not connected", observerID)
	}
	obs.runs[runID] = struct{}{}
	if h.subscriptions[runID] == nil {
		h.subscriptions[runID] = make(map[string]struct{})
	}
	h.subscriptions[runID][observerID] = struct{}{}
	return nil
}

// Unsubscribe removes the observer from a run's subscriber set.
func (h *Hub) Unsubscribe(observerID, runID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if obs, ok := h.observers[observerID]; ok {
		delete(obs.runs, runID)
	}
	if subs, ok := h.subscriptions[runID]; ok {
		delete(subs, observerID)
		if len(subs) == 0 {
			delete(h.subscriptions, runID)
		}
	}
}

// Publish delivers the event to every observer currently subscribed to the
// run. Publishing to a run with no subscribers is a no-op. Delivery to one
// observer never blocks on or fails because of another; an observer whose
// buffer is full is removed so a stalled consumer cannot stall the pipeline.
func (h *Hub) Publish(runID string, event Event) {
	event.RunID = runID
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.subscriptions[runID]
	if !ok || len(subs) == 0 {
		return
	}

	var stalled []string
	for observerID := range subs {
		obs, ok := h.observers[observerID]
		if !ok {
			continue
		}
		select {
		case obs.events <- event:
		default:
			h.logger.Warn("observer buffer full, dropping observer", "observer", observerID, "run", runID)
			stalled = append(stalled, observerID)
		}
	}
	for _, observerID := range stalled {
		h.removeLocked(observerID)
	}
}

// Stats reports the current observer and subscription counts.
func (h *Hub) Stats() (observers int, subscribedRuns int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.observers), len(h.subscriptions)
}
