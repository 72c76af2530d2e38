package cache

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardiotrack/internal/insights/models"
	"cardiotrack/pkg/platform/circuit"
)

type flakyStore struct {
	err         error
	gets        int
	sets        int
	invalidates int
	stats       *models.Stats
}

func (f *flakyStore) Get(context.Context) (*models.Stats, int64, error) {
	f.gets++
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.stats, 0, nil
}

func (f *flakyStore) Set(_ context.Context, _ int64, s *models.Stats) error {
	f.sets++
	if f.err != nil {
		return f.err
	}
	f.stats = s
	return nil
}

func (f *flakyStore) Invalidate(context.Context) error {
	f.invalidates++
	f.stats = nil
	return f.err
}

func TestGuardedStopsCallingAFailingCache(t *testing.T) {
	ctx := context.Background()
	logs := &bytes.Buffer{}
	inner := &flakyStore{err: errors.New("i/o timeout")}
	g := NewGuarded(inner, circuit.New("stats-cache", circuit.WithFailureThreshold(2)), slog.New(slog.NewTextHandler(logs, nil)))

	for range 2 {
		_, _, err := g.Get(ctx)
		require.Error(t, err)
	}
	assert.Contains(t, logs.String(), "stats cache circuit opened")

	got, gen, err := g.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
	require.NoError(t, g.Set(ctx, gen, models.NewStats(1, 0, 0)))
	assert.Equal(t, 2, inner.gets)
	assert.Zero(t, inner.sets)

	_ = g.Invalidate(ctx)
	assert.Equal(t, 1, inner.invalidates)
}

func TestGuardedPassesThroughWhenHealthy(t *testing.T) {
	ctx := context.Background()
	inner := &flakyStore{}
	g := NewGuarded(inner, circuit.New("stats-cache"), slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	want := models.NewStats(2, 1, 1)
	require.NoError(t, g.Set(ctx, 0, want))
	got, _, err := g.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
