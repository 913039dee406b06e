package sync

import (
	"hash/fnv"
	"sync"
)

// DefaultShards is the shard count used when a non-positive count is requested.
const DefaultShards = 32

// ShardedMap partitions a string-keyed map across independently locked shards.
// Operations on keys in different shards never contend; operations on the same
// key are serialized by that shard's mutex.
type ShardedMap[V any] struct {
	shards []mapShard[V]
}

type mapShard[V any] struct {
	mu    sync.Mutex
	items map[string]V
}

// NewShardedMap creates a map with n shards.
func NewShardedMap[V any](n int) *ShardedMap[V] {
	if n <= 0 {
		n = DefaultShards
	}
	m := &ShardedMap[V]{shards: make([]mapShard[V], n)}
	for i := range m.shards {
		m.shards[i].items = make(map[string]V)
	}
	return m
}

// Update runs fn with exclusive access to the shard holding key. fn may read,
// write or delete key (or any other key of the same shard) on the map it is
// given; the map must not be retained after fn returns.
func (m *ShardedMap[V]) Update(key string, fn func(items map[string]V)) {
	sh := &m.shards[m.shardFor(key)]
	sh.mu.Lock()
	defer sh.mu.Unlock()
	fn(sh.items)
}

// DeleteFunc removes every entry for which remove returns true, one shard at a
// time, and reports how many were removed.
func (m *ShardedMap[V]) DeleteFunc(remove func(key string, v V) bool) int {
	removed := 0
	for i := range m.shards {
		sh := &m.shards[i]
		sh.mu.Lock()
		for k, v := range sh.items {
			if remove(k, v) {
				delete(sh.items, k)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// Len returns the number of entries held. Shards are counted one after the
// other, so the result is approximate under concurrent writes.
func (m *ShardedMap[V]) Len() int {
	n := 0
	for i := range m.shards {
		sh := &m.shards[i]
		sh.mu.Lock()
		n += len(sh.items)
		sh.mu.Unlock()
	}
	return n
}

func (m *ShardedMap[V]) shardFor(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(m.shards)))
}
