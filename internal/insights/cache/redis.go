// Package cache holds computed statistics between requests.
//
// Every snapshot is tagged with the generation it was computed under.
// Invalidate bumps the generation, so a snapshot computed before an
// invalidation can never be served after it, even if its write lands late.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"cardiotrack/internal/insights/models"
)

const (
	statsKey      = "cardiotrack:stats"
	generationKey = "cardiotrack:stats:gen"
)

// setIfCurrent writes the snapshot only while the generation is unchanged.
var setIfCurrent = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[2]) or '0')
if current ~= tonumber(ARGV[1]) then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`)

type snapshot struct {
	Generation int64         `json:"generation"`
	Stats      *models.Stats `json:"stats"`
}

// RedisStatsCache stores the latest Stats snapshot under a single key with a TTL.
type RedisStatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStatsCache(client *redis.Client, ttl time.Duration) *RedisStatsCache {
	return &RedisStatsCache{client: client, ttl: ttl}
}

// Get returns the snapshot for the current generation together with that
// generation. A miss returns nil stats.
func (c *RedisStatsCache) Get(ctx context.Context) (*models.Stats, int64, error) {
	vals, err := c.client.MGet(ctx, statsKey, generationKey).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("get stats: %w", err)
	}
	gen, err := parseGeneration(vals[1])
	if err != nil {
		return nil, 0, err
	}
	raw, ok := vals[0].(string)
	if !ok {
		return nil, gen, nil
	}
	var snap snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, 0, fmt.Errorf("decode stats: %w", err)
	}
	if snap.Generation != gen || snap.Stats == nil {
		return nil, gen, nil
	}
	return snap.Stats, gen, nil
}

// Set stores stats computed under gen. The write is dropped when the
// generation has moved on since gen was read.
func (c *RedisStatsCache) Set(ctx context.Context, gen int64, stats *models.Stats) error {
	raw, err := json.Marshal(snapshot{Generation: gen, Stats: stats})
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	err = setIfCurrent.Run(ctx, c.client,
		[]string{statsKey, generationKey},
		gen, raw, c.ttl.Milliseconds(),
	).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("set stats: %w", err)
	}
	return nil
}

// Invalidate bumps the generation and drops the snapshot.
func (c *RedisStatsCache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey)
		pipe.Del(ctx, statsKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate stats: %w", err)
	}
	return nil
}

func parseGeneration(v any) (int64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, nil
	}
	gen, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse stats generation %q: %w", s, err)
	}
	return gen, nil
}
