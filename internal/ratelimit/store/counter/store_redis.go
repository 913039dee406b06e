package counter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"consents/internal/ratelimit/config"
)

const defaultKeyPrefix = "consents:ratelimit:"

// RedisStore shares counters between service instances. Expiry is delegated to
// Redis key TTLs, refreshed on every write.
type RedisStore struct {
	client redis.Cmdable
	window time.Duration
	prefix string
}

type RedisOption func(*RedisStore)

func WithRedisWindow(window time.Duration) RedisOption {
	return func(s *RedisStore) {
		if window > 0 {
			s.window = window
		}
	}
}

func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

func NewRedisStore(client redis.Cmdable, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		window: config.DefaultWindow,
		prefix: defaultKeyPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Increment runs INCR and PEXPIRE in one MULTI/EXEC so the counter and its
// expiry are updated together.
func (s *RedisStore) Increment(ctx context.Context, key string) (int, error) {
	k := s.prefix + key
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.PExpire(ctx, k, s.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("increment counter: %w", err)
	}
	return int(incr.Val()), nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (int, error) {
	n, err := s.client.Get(ctx, s.prefix+key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get counter: %w", err)
	}
	return n, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value int) error {
	if value < 0 {
		value = 0
	}
	if err := s.client.Set(ctx, s.prefix+key, value, s.window).Err(); err != nil {
		return fmt.Errorf("set counter: %w", err)
	}
	return nil
}

// Sweep is a no-op: Redis evicts expired keys itself.
func (s *RedisStore) Sweep(_ context.Context) (int, error) {
	return 0, nil
}
