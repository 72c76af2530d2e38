package cache

import (
	"context"
	"sync"
	"time"

	"cardiotrack/internal/insights/models"
)

// InMemory is the single-process stats cache used when Redis is not
// configured. It follows the same generation rules as RedisStatsCache.
type InMemory struct {
	mu         sync.Mutex
	ttl        time.Duration
	now        func() time.Time
	generation int64
	stats      *models.Stats
	expires    time.Time
}

func NewInMemory(ttl time.Duration) *InMemory {
	return &InMemory{ttl: ttl, now: time.Now}
}

func (c *InMemory) Get(_ context.Context) (*models.Stats, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stats == nil || (c.ttl > 0 && !c.now().Before(c.expires)) {
		return nil, c.generation, nil
	}
	cp := *c.stats
	return &cp, c.generation, nil
}

// Set drops the write when gen is no longer current.
func (c *InMemory) Set(_ context.Context, gen int64, stats *models.Stats) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return nil
	}
	cp := *stats
	c.stats = &cp
	c.expires = c.now().Add(c.ttl)
	return nil
}

func (c *InMemory) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.stats = nil
	return nil
}
