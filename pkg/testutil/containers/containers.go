//go:build integration

// Package containers starts the Postgres, Redis and Kafka instances used by
// integration tests. Each one is started lazily and shared by every suite in
// the test binary; Ryuk removes them when the process exits.
package containers

import (
	"sync"
	"testing"
)

// shared starts its value once, on the first successful get.
type shared[T any] struct {
	mu  sync.Mutex
	val *T
}

func (s *shared[T]) get(t *testing.T, start func(*testing.T) *T) *T {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.val == nil {
		s.val = start(t)
	}
	return s.val
}

type Manager struct {
	postgres shared[PostgresContainer]
	redis    shared[RedisContainer]
	kafka    shared[KafkaContainer]
}

var manager = &Manager{}

func GetManager() *Manager {
	return manager
}

// GetPostgres returns a Postgres instance with the consent schema applied.
func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	return m.postgres.get(t, NewPostgresContainer)
}

// GetRedis returns a Redis instance for the distributed counter store.
func (m *Manager) GetRedis(t *testing.T) *RedisContainer {
	return m.redis.get(t, NewRedisContainer)
}

// GetKafka returns a single-node Kafka broker for the event sink.
func (m *Manager) GetKafka(t *testing.T) *KafkaContainer {
	return m.kafka.get(t, NewKafkaContainer)
}
