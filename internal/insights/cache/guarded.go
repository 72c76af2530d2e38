package cache

import (
	"context"
	"log/slog"

	"cardiotrack/internal/insights/models"
	"cardiotrack/pkg/platform/circuit"
)

// StatsStore is the cache contract the guard wraps.
type StatsStore interface {
	Get(ctx context.Context) (*models.Stats, int64, error)
	Set(ctx context.Context, gen int64, stats *models.Stats) error
	Invalidate(ctx context.Context) error
}

// Guarded stops reading and writing a failing cache until it recovers, so
// stats requests do not pay a timeout on every call. Invalidate always
// reaches the cache.
type Guarded struct {
	inner   StatsStore
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewGuarded(inner StatsStore, breaker *circuit.Breaker, logger *slog.Logger) *Guarded {
	return &Guarded{inner: inner, breaker: breaker, logger: logger}
}

// unread marks a miss reported without consulting the cache. Set ignores it.
const unread int64 = -1

// Get reports a miss without touching the cache while the breaker is open.
func (g *Guarded) Get(ctx context.Context) (*models.Stats, int64, error) {
	if !g.breaker.Allow() {
		return nil, unread, nil
	}
	stats, gen, err := g.inner.Get(ctx)
	g.record(ctx, err)
	return stats, gen, err
}

func (g *Guarded) Set(ctx context.Context, gen int64, stats *models.Stats) error {
	if gen == unread || !g.breaker.Allow() {
		return nil
	}
	err := g.inner.Set(ctx, gen, stats)
	g.record(ctx, err)
	return err
}

func (g *Guarded) Invalidate(ctx context.Context) error {
	err := g.inner.Invalidate(ctx)
	g.record(ctx, err)
	return err
}

func (g *Guarded) record(ctx context.Context, err error) {
	var change circuit.StateChange
	if err != nil {
		_, change = g.breaker.RecordFailure()
	} else {
		_, change = g.breaker.RecordSuccess()
	}
	switch {
	case change.Opened:
		g.logger.WarnContext(ctx, "stats cache circuit opened", "breaker", g.breaker.Name(), "error", err)
	case change.Closed:
		g.logger.InfoContext(ctx, "stats cache circuit closed", "breaker", g.breaker.Name())
	}
}
