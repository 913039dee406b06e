package counter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyStore struct {
	mu    sync.Mutex
	fail  bool
	count map[string]int
}

func newFlakyStore() *flakyStore {
	return &flakyStore{count: make(map[string]int)}
}

func (f *flakyStore) setFailing(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = v
}

func (f *flakyStore) Increment(_ context.Context, key string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return 0, errors.New("redis: connection refused")
	}
	f.count[key] += 1000
	return f.count[key], nil
}

func TestFailoverStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	primary := newFlakyStore()
	fallback := NewInMemoryStore(WithClock(func() time.Time { return now }))
	store := NewFailoverStore(primary, fallback, WithFailureThreshold(2), WithSuccessThreshold(2))

	n, err := store.Increment(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 1000, n, "healthy primary is authoritative")

	primary.setFailing(true)
	_, err = store.Increment(ctx, "k")
	assert.Error(t, err, "below the threshold errors reach the caller")
	assert.False(t, store.Degraded())

	n, err = store.Increment(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "threshold reached, fallback counts")
	assert.True(t, store.Degraded())

	n, err = store.Increment(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	primary.setFailing(false)
	n, err = store.Increment(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 3, n, "still recovering, fallback keeps counting")
	assert.True(t, store.Degraded())

	n, err = store.Increment(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 3000, n, "recovered, primary is authoritative again")
	assert.False(t, store.Degraded())
}

func TestFailoverStoreFailureStreakResetsOnSuccess(t *testing.T) {
	ctx := context.Background()
	primary := newFlakyStore()
	store := NewFailoverStore(primary, NewInMemoryStore(), WithFailureThreshold(2))

	primary.setFailing(true)
	_, err := store.Increment(ctx, "k")
	require.Error(t, err)

	primary.setFailing(false)
	_, err = store.Increment(ctx, "k")
	require.NoError(t, err)

	primary.setFailing(true)
	_, err = store.Increment(ctx, "k")
	assert.Error(t, err, "non-consecutive failures never open the circuit")
	assert.False(t, store.Degraded())
}
