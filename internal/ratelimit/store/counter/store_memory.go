// Package counter holds per-key request counts that expire a fixed window after
// their last write.
package counter

import (
	"context"
	"time"

	"consents/internal/ratelimit/config"
	platformsync "consents/pkg/platform/sync"
)

// Clock returns the current time. Tests substitute a controllable clock.
type Clock func() time.Time

type entry struct {
	count     int
	writtenAt time.Time
}

// InMemoryStore is a process-local expiring counter map. An entry is logically
// absent once window has elapsed since it was last written; reads never extend
// its lifetime. Keys are partitioned across shards so unrelated clients never
// contend on the same lock.
type InMemoryStore struct {
	entries *platformsync.ShardedMap[entry]
	window  time.Duration
	now     Clock
}

type Option func(*InMemoryStore)

// WithWindow sets how long an entry stays live after its last write.
func WithWindow(window time.Duration) Option {
	return func(s *InMemoryStore) {
		if window > 0 {
			s.window = window
		}
	}
}

func WithClock(clock Clock) Option {
	return func(s *InMemoryStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

func NewInMemoryStore(opts ...Option) *InMemoryStore {
	s := &InMemoryStore{
		entries: platformsync.NewShardedMap[entry](platformsync.DefaultShards),
		window:  config.DefaultWindow,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Window reports the configured entry lifetime.
func (s *InMemoryStore) Window() time.Duration {
	return s.window
}

// Get returns the live count for key, or 0 when the key is unknown or expired.
// An expired entry found here is reclaimed.
func (s *InMemoryStore) Get(key string) int {
	var count int
	s.entries.Update(key, func(items map[string]entry) {
		e, ok := items[key]
		if !ok {
			return
		}
		if s.expired(e, s.now()) {
			delete(items, key)
			return
		}
		count = e.count
	})
	return count
}

// Set overwrites the count for key and restarts its window. Negative values are
// stored as 0.
func (s *InMemoryStore) Set(key string, value int) {
	if value < 0 {
		value = 0
	}
	s.entries.Update(key, func(items map[string]entry) {
		items[key] = entry{count: value, writtenAt: s.now()}
	})
}

// Increment adds one to the live count for key, restarts its window and returns
// the new count. The read and the write happen under the key's shard lock, so
// concurrent increments of one key never lose updates.
func (s *InMemoryStore) Increment(_ context.Context, key string) (int, error) {
	var next int
	s.entries.Update(key, func(items map[string]entry) {
		now := s.now()
		next = 1
		if e, ok := items[key]; ok && !s.expired(e, now) {
			next = e.count + 1
		}
		items[key] = entry{count: next, writtenAt: now}
	})
	return next, nil
}

// Sweep removes every expired entry and reports how many were dropped.
func (s *InMemoryStore) Sweep(_ context.Context) (int, error) {
	now := s.now()
	return s.entries.DeleteFunc(func(_ string, e entry) bool {
		return s.expired(e, now)
	}), nil
}

// Len returns the number of physically held entries, live or not yet swept.
func (s *InMemoryStore) Len() int {
	return s.entries.Len()
}

func (s *InMemoryStore) expired(e entry, now time.Time) bool {
	return now.Sub(e.writtenAt) >= s.window
}
