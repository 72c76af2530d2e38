// Package service computes per-patient timelines and system-wide statistics
// from the profile and history stores. It never writes.
package service

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	insightsmetrics "cardiotrack/internal/insights/metrics"
	"cardiotrack/internal/insights/models"
	patient "cardiotrack/internal/patient/models"
	dErrors "cardiotrack/pkg/domain-errors"
	"cardiotrack/pkg/platform/sentinel"
	"cardiotrack/pkg/requestcontext"
)

type ProfileStore interface {
	FindByExternalID(ctx context.Context, patientID string) (*patient.Profile, error)
	Count(ctx context.Context) (int, error)
}

type RecordStore interface {
	ListByProfile(ctx context.Context, profileID int64) ([]*patient.Record, error)
	LatestByProfile(ctx context.Context, profileID int64) (*patient.Record, error)
	CountWhere(ctx context.Context, verdict patient.Verdict) (int, error)
}

// StatsCache is optional; a nil cache always recomputes. Get returns nil
// stats on a miss along with the cache generation; Set must be given that
// generation so a snapshot computed across an invalidation is discarded.
type StatsCache interface {
	Get(ctx context.Context) (*models.Stats, int64, error)
	Set(ctx context.Context, gen int64, stats *models.Stats) error
}

type Service struct {
	profiles ProfileStore
	records  RecordStore
	cache    StatsCache
	logger   *slog.Logger
	metrics  *insightsmetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *insightsmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithStatsCache(c StatsCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func New(profiles ProfileStore, records RecordStore, opts ...Option) *Service {
	s := &Service{
		profiles: profiles,
		records:  records,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Timeline returns the profile, its records newest first and the trend.
func (s *Service) Timeline(ctx context.Context, patientID string) (*models.Timeline, error) {
	p, err := s.findProfile(ctx, patientID)
	if err != nil {
		return nil, err
	}
	records, err := s.records.ListByProfile(ctx, p.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load history")
	}
	return &models.Timeline{
		Profile: &patient.ProfileSummary{Profile: p, TotalPredictions: len(records)},
		Records: records,
		Trend:   models.ClassifyTrend(records),
	}, nil
}

// Latest returns the newest record. A patient with no records is not an
// error: the result has Found == false and a message.
func (s *Service) Latest(ctx context.Context, patientID string) (*models.Latest, error) {
	p, err := s.findProfile(ctx, patientID)
	if err != nil {
		return nil, err
	}
	rec, err := s.records.LatestByProfile(ctx, p.ID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return &models.Latest{Found: false, Message: models.NoPredictionsMessage}, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load latest record")
	}
	return &models.Latest{Found: true, Record: rec}, nil
}

// Stats returns system-wide counts, served from the cache when one is
// configured and warm.
func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	var (
		gen       int64
		writeBack bool
	)
	if s.cache != nil {
		cached, g, err := s.cache.Get(ctx)
		switch {
		case err != nil:
			s.incrementCache("error")
			s.logger.WarnContext(ctx, "stats cache read failed",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		case cached != nil:
			s.incrementCache("hit")
			return cached, nil
		default:
			s.incrementCache("miss")
			gen, writeBack = g, true
		}
	}

	stats, err := s.computeStats(ctx)
	if err != nil {
		return nil, err
	}

	if writeBack {
		if err := s.cache.Set(ctx, gen, stats); err != nil {
			s.logger.WarnContext(ctx, "stats cache write failed",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
	}
	return stats, nil
}

func (s *Service) computeStats(ctx context.Context) (*models.Stats, error) {
	var patients, high, low int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.profiles.Count(gctx)
		patients = n
		return err
	})
	g.Go(func() error {
		n, err := s.records.CountWhere(gctx, patient.VerdictHigh)
		high = n
		return err
	})
	g.Go(func() error {
		n, err := s.records.CountWhere(gctx, patient.VerdictLow)
		low = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to compute statistics")
	}
	return models.NewStats(patients, high, low), nil
}

func (s *Service) findProfile(ctx context.Context, patientID string) (*patient.Profile, error) {
	p, err := s.profiles.FindByExternalID(ctx, patientID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "Patient not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to find patient")
	}
	return p, nil
}

func (s *Service) incrementCache(result string) {
	if s.metrics != nil {
		s.metrics.IncrementCache(result)
	}
}
