//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"cardiotrack/internal/insights/models"
	"cardiotrack/pkg/testutil/containers"
)

type RedisStatsCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *RedisStatsCache
}

func TestRedisStatsCacheSuite(t *testing.T) {
	suite.Run(t, new(RedisStatsCacheSuite))
}

func (s *RedisStatsCacheSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
}

func (s *RedisStatsCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.Reset(context.Background()))
	s.cache = NewRedisStatsCache(s.redis.Client, time.Minute)
}

func (s *RedisStatsCacheSuite) TestRoundTripAndInvalidate() {
	ctx := context.Background()

	got, gen, err := s.cache.Get(ctx)
	s.Require().NoError(err)
	s.Nil(got)
	s.Zero(gen)

	want := models.NewStats(3, 2, 1)
	s.Require().NoError(s.cache.Set(ctx, gen, want))

	got, _, err = s.cache.Get(ctx)
	s.Require().NoError(err)
	s.Equal(want, got)

	s.Require().NoError(s.cache.Invalidate(ctx))
	got, gen, err = s.cache.Get(ctx)
	s.Require().NoError(err)
	s.Nil(got)
	s.Equal(int64(1), gen)
}

func (s *RedisStatsCacheSuite) TestLateWriteFromOlderGenerationIsDropped() {
	ctx := context.Background()

	_, before, err := s.cache.Get(ctx)
	s.Require().NoError(err)
	s.Require().NoError(s.cache.Invalidate(ctx))
	s.Require().NoError(s.cache.Set(ctx, before, models.NewStats(1, 0, 0)))

	got, after, err := s.cache.Get(ctx)
	s.Require().NoError(err)
	s.Nil(got)
	s.Equal(before+1, after)

	exists, err := s.redis.Client.Exists(ctx, statsKey).Result()
	s.Require().NoError(err)
	s.Zero(exists)
}

func (s *RedisStatsCacheSuite) TestEntryExpires() {
	ctx := context.Background()
	short := NewRedisStatsCache(s.redis.Client, 50*time.Millisecond)
	s.Require().NoError(short.Set(ctx, 0, models.NewStats(1, 1, 0)))

	s.Eventually(func() bool {
		got, _, err := short.Get(ctx)
		return err == nil && got == nil
	}, 2*time.Second, 25*time.Millisecond)
}
