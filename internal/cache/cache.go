// Package cache provides a TTL cache used to shield the source-host API from
// redundant calls. Entries expire lazily on read; a cache that cannot be
// reached degrades to a miss rather than failing the caller.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// TTL classes used by the commit history analyzer.
const (
	// RawCommitsTTL bounds staleness of raw source-host API responses.
	RawCommitsTTL = 6 * time.Hour
	// AnalysisTTL bounds staleness of derived commit analyses, which are
	// more expensive to recompute.
	AnalysisTTL = 24 * time.Hour
)

// Store is the underlying key/value store. Implementations must be safe for
// concurrent use. A Get on an expired or missing key returns ok=false.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Key builds the composite cache key for a repository data kind,
// e.g. Key("octocat", "hello-world", "raw_commits").
func Key(owner, repo, kind string) string {
	return fmt.Sprintf("github:%s:%s:%s", kind, owner, repo)
}

// TTLCache wraps a Store with degrade-to-miss error handling: store failures
// are logged and treated as cache misses or no-ops, never surfaced.
type TTLCache struct {
	store  Store
	logger *slog.Logger
}

// New creates a TTLCache over the given store.
func New(store Store, logger *slog.Logger) *TTLCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &TTLCache{store: store, logger: logger}
}

// Get returns the cached value for key, or ok=false on a miss, an expired
// entry, or a store failure.
func (c *TTLCache) Get(ctx context.Context, key string) ([]byte, bool) {
	value, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache read failed", "key", key, "error", err)
		return nil, false
	}
	return value, ok
}

// Set stores value under key for ttl. Store failures are logged and dropped.
func (c *TTLCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.store.Set(ctx, key, value, ttl); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

// Invalidate removes the entry for key if present.
func (c *TTLCache) Invalidate(ctx context.Context, key string) {
	if err := c.store.Delete(ctx, key); err != nil {
		c.logger.Warn("cache invalidation failed", "key", key, "error", err)
	}
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process Store with per-entry expiry, checked on read.
// Expired entries are also swept opportunistically on write.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get implements Store. Entries past their expiry instant are treated as absent.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || m.now().After(e.expiresAt) {
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set implements Store. A non-positive ttl expires the entry immediately.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = entry{
		value:     value,
		expiresAt: m.now().Add(ttl),
	}

	// Opportunistic sweep keeps the map from accumulating dead entries.
	if len(m.entries) > 1024 {
		now := m.now()
		for k, e := range m.entries {
			if now.After(e.expiresAt) {
				delete(m.entries, k)
			}
		}
	}
	return nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Len returns the number of entries, including any not yet swept.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
