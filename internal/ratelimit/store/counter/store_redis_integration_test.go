//go:build integration

package counter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"consents/pkg/testutil"
	"consents/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *RedisStore
	ctx   context.Context
}

func TestRedisStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.ctx = context.Background()
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
	s.store = NewRedisStore(s.redis.Client, WithRedisWindow(300*time.Millisecond))
}

func (s *RedisStoreSuite) TestGetMissingKeyIsZero() {
	n, err := s.store.Get(s.ctx, "203.0.113.5")
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *RedisStoreSuite) TestIncrementCountsAndSetsExpiry() {
	for i := 1; i <= 3; i++ {
		n, err := s.store.Increment(s.ctx, "203.0.113.5")
		s.Require().NoError(err)
		s.Equal(i, n)
	}

	ttl, err := s.redis.Client.PTTL(s.ctx, defaultKeyPrefix+"203.0.113.5").Result()
	s.Require().NoError(err)
	s.Positive(ttl)
	s.LessOrEqual(ttl, 300*time.Millisecond)
}

func (s *RedisStoreSuite) TestCounterExpiresAfterWindow() {
	_, err := s.store.Increment(s.ctx, "203.0.113.5")
	s.Require().NoError(err)

	s.Eventually(func() bool {
		n, err := s.store.Get(s.ctx, "203.0.113.5")
		return err == nil && n == 0
	}, 2*time.Second, 50*time.Millisecond)

	n, err := s.store.Increment(s.ctx, "203.0.113.5")
	s.Require().NoError(err)
	s.Equal(1, n)
}

func (s *RedisStoreSuite) TestSetOverwrites() {
	s.Require().NoError(s.store.Set(s.ctx, "203.0.113.9", 12))
	n, err := s.store.Get(s.ctx, "203.0.113.9")
	s.Require().NoError(err)
	s.Equal(12, n)
}

func (s *RedisStoreSuite) TestConcurrentIncrementsAreAtomic() {
	store := NewRedisStore(s.redis.Client, WithRedisWindow(10*time.Second))

	result := testutil.RunConcurrent(100, func(int) error {
		_, err := store.Increment(s.ctx, "203.0.113.5")
		return err
	})
	s.Equal(int32(100), result.Successes)

	n, err := store.Get(s.ctx, "203.0.113.5")
	s.Require().NoError(err)
	s.Equal(100, n)
}

func (s *RedisStoreSuite) TestClosedClientReturnsError() {
	closed := NewRedisStore(containers.NewClosedRedisClient(s.redis.URL))
	_, err := closed.Increment(s.ctx, "203.0.113.5")
	s.Error(err)
}
