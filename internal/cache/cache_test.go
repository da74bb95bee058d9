package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemory() (*Memory, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }
	return m, &now
}

func TestMemory_SetThenGet(t *testing.T) {
	m, _ := newTestMemory()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Hour))

	value, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), value)
}

func TestMemory_ExpiredEntryIsAbsent(t *testing.T) {
	m, now := newTestMemory()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Hour))

	*now = now.Add(time.Hour + time.Second)
	_, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_EntryFreshJustBeforeExpiry(t *testing.T) {
	m, now := newTestMemory()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Hour))

	*now = now.Add(time.Hour - time.Second)
	_, ok, _ := m.Get(ctx, "k")
	assert.True(t, ok)
}

func TestMemory_OverwriteRefreshesExpiry(t *testing.T) {
	m, now := newTestMemory()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("old"), time.Hour))
	*now = now.Add(30 * time.Minute)
	require.NoError(t, m.Set(ctx, "k", []byte("new"), time.Hour))

	*now = now.Add(45 * time.Minute)
	value, ok, _ := m.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("new"), value)
}

func TestMemory_Delete(t *testing.T) {
	m, _ := newTestMemory()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Hour))
	require.NoError(t, m.Delete(ctx, "k"))

	_, ok, _ := m.Get(ctx, "k")
	assert.False(t, ok)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "github:raw_commits:octocat:hello-world", Key("octocat", "hello-world", "raw_commits"))
	assert.Equal(t, "github:analysis:octocat:hello-world", Key("octocat", "hello-world", "analysis"))
}

// failingStore simulates an unreachable backing store.
type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("store unreachable")
}

func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("store unreachable")
}

func (failingStore) Delete(context.Context, string) error {
	return errors.New("store unreachable")
}

func TestTTLCache_StoreFailureDegradesToMiss(t *testing.T) {
	c := New(failingStore{}, nil)
	ctx := context.Background()

	// None of these may panic or surface an error.
	c.Set(ctx, "k", []byte("v"), time.Hour)
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	c.Invalidate(ctx, "k")
}

func TestTTLCache_RoundTrip(t *testing.T) {
	c := New(NewMemory(), nil)
	ctx := context.Background()

	c.Set(ctx, Key("o", "r", "analysis"), []byte(`{"total_commits":3}`), AnalysisTTL)
	value, ok := c.Get(ctx, Key("o", "r", "analysis"))
	require.True(t, ok)
	assert.JSONEq(t, `{"total_commits":3}`, string(value))

	c.Invalidate(ctx, Key("o", "r", "analysis"))
	_, ok = c.Get(ctx, Key("o", "r", "analysis"))
	assert.False(t, ok)
}
