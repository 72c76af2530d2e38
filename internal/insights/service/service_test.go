package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"cardiotrack/internal/insights/cache"
	insightsmetrics "cardiotrack/internal/insights/metrics"
	"cardiotrack/internal/insights/models"
	patient "cardiotrack/internal/patient/models"
	"cardiotrack/internal/patient/store/history"
	"cardiotrack/internal/patient/store/profile"
	dErrors "cardiotrack/pkg/domain-errors"
	"cardiotrack/pkg/requestcontext"
)

// countingCache wraps the in-memory cache to count writes and inject
// read failures.
type countingCache struct {
	*cache.InMemory
	getErr error
	sets   int
}

func newCountingCache() *countingCache {
	return &countingCache{InMemory: cache.NewInMemory(time.Minute)}
}

func (c *countingCache) Get(ctx context.Context) (*models.Stats, int64, error) {
	if c.getErr != nil {
		return nil, 0, c.getErr
	}
	return c.InMemory.Get(ctx)
}

func (c *countingCache) Set(ctx context.Context, gen int64, st *models.Stats) error {
	c.sets++
	return c.InMemory.Set(ctx, gen, st)
}

// pausingRecords holds the first high-risk count open after it has been
// read, so a caller can change the store while Stats is mid-compute.
type pausingRecords struct {
	*history.InMemory
	once    sync.Once
	counted chan struct{}
	resume  chan struct{}
}

func (r *pausingRecords) CountWhere(ctx context.Context, verdict patient.Verdict) (int, error) {
	n, err := r.InMemory.CountWhere(ctx, verdict)
	if verdict == patient.VerdictHigh {
		r.once.Do(func() {
			close(r.counted)
			<-r.resume
		})
	}
	return n, err
}

type InsightsServiceSuite struct {
	suite.Suite
	ctx      context.Context
	profiles *profile.InMemory
	records  *history.InMemory
	service  *Service
}

func TestInsightsServiceSuite(t *testing.T) {
	suite.Run(t, new(InsightsServiceSuite))
}

func (s *InsightsServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.profiles = profile.NewInMemory()
	s.records = history.NewInMemory()
	s.service = New(s.profiles, s.records)
}

func (s *InsightsServiceSuite) createProfile(patientID string) *patient.Profile {
	p := &patient.Profile{PatientID: patientID, Name: "Mitu Akter", Gender: patient.GenderFemale}
	s.Require().NoError(s.profiles.Create(s.ctx, p))
	return p
}

// appendAt records probabilities oldest first, one minute apart.
func (s *InsightsServiceSuite) appendAt(p *patient.Profile, probabilities ...float64) {
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, prob := range probabilities {
		ctx := requestcontext.WithTime(s.ctx, base.Add(time.Duration(i)*time.Minute))
		verdict := patient.VerdictLow
		if prob > 0.5 {
			verdict = patient.VerdictHigh
		}
		s.Require().NoError(s.records.Append(ctx, &patient.Record{
			ProfileID: p.ID, Verdict: verdict, Probability: prob,
		}))
	}
}

func (s *InsightsServiceSuite) TestTimeline() {
	s.Run("improving when newest risk is lower", func() {
		p := s.createProfile("TL-1")
		s.appendAt(p, 0.8, 0.5, 0.2)

		tl, err := s.service.Timeline(s.ctx, "TL-1")
		s.Require().NoError(err)
		s.Equal(models.TrendImproving, tl.Trend)
		s.Require().Len(tl.Records, 3)
		s.Equal(0.2, tl.Records[0].Probability)
		s.Equal(3, tl.Profile.TotalPredictions)
	})

	s.Run("stable with a single record", func() {
		p := s.createProfile("TL-2")
		s.appendAt(p, 0.4)

		tl, err := s.service.Timeline(s.ctx, "TL-2")
		s.Require().NoError(err)
		s.Equal(models.TrendStable, tl.Trend)
	})

	s.Run("stable with no records", func() {
		s.createProfile("TL-3")
		tl, err := s.service.Timeline(s.ctx, "TL-3")
		s.Require().NoError(err)
		s.Empty(tl.Records)
		s.Equal(models.TrendStable, tl.Trend)
	})

	s.Run("unknown patient", func() {
		_, err := s.service.Timeline(s.ctx, "NOPE")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *InsightsServiceSuite) TestLatest() {
	s.Run("no records returns the sentinel result", func() {
		s.createProfile("LT-1")
		latest, err := s.service.Latest(s.ctx, "LT-1")
		s.Require().NoError(err)
		s.False(latest.Found)
		s.Nil(latest.Record)
		s.Equal("No predictions found for this patient", latest.Message)
	})

	s.Run("returns the newest record", func() {
		p := s.createProfile("LT-2")
		s.appendAt(p, 0.3, 0.9)
		latest, err := s.service.Latest(s.ctx, "LT-2")
		s.Require().NoError(err)
		s.True(latest.Found)
		s.Equal(0.9, latest.Record.Probability)
	})

	s.Run("unknown patient", func() {
		_, err := s.service.Latest(s.ctx, "NOPE")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *InsightsServiceSuite) TestStats() {
	s.Run("empty system", func() {
		stats, err := s.service.Stats(s.ctx)
		s.Require().NoError(err)
		s.Equal(&models.Stats{}, stats)
	})

	s.Run("counts across patients", func() {
		a := s.createProfile("ST-1")
		b := s.createProfile("ST-2")
		s.createProfile("ST-3")
		s.appendAt(a, 0.9, 0.2)
		s.appendAt(b, 0.7)

		stats, err := s.service.Stats(s.ctx)
		s.Require().NoError(err)
		s.Equal(3, stats.TotalPatients)
		s.Equal(3, stats.TotalPredictions)
		s.Equal(2, stats.HighRiskCount)
		s.Equal(1, stats.LowRiskCount)
		s.Equal(stats.TotalPredictions, stats.HighRiskCount+stats.LowRiskCount)
		s.Equal(66.67, stats.HighRiskPercentage)
		s.Equal(33.33, stats.LowRiskPercentage)
	})
}

func (s *InsightsServiceSuite) TestStatsCache() {
	s.Run("miss computes and stores, hit skips the stores", func() {
		c := newCountingCache()
		m := insightsmetrics.New(prometheus.NewRegistry())
		svc := New(s.profiles, s.records, WithStatsCache(c), WithMetrics(m))

		first, err := svc.Stats(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, c.sets)

		p := s.createProfile("CA-1")
		s.appendAt(p, 0.9)

		second, err := svc.Stats(s.ctx)
		s.Require().NoError(err)
		s.Equal(first, second)
		s.Equal(1, c.sets)
		s.Equal(float64(1), promtestutil.ToFloat64(m.StatsCache.WithLabelValues("hit")))
		s.Equal(float64(1), promtestutil.ToFloat64(m.StatsCache.WithLabelValues("miss")))
	})

	s.Run("read failure falls back to the stores", func() {
		c := newCountingCache()
		c.getErr = errors.New("connection refused")
		svc := New(s.profiles, s.records, WithStatsCache(c))

		stats, err := svc.Stats(s.ctx)
		s.Require().NoError(err)
		s.NotNil(stats)
		s.Zero(c.sets)
	})

	s.Run("invalidation during compute discards the stale snapshot", func() {
		records := &pausingRecords{
			InMemory: s.records,
			counted:  make(chan struct{}),
			resume:   make(chan struct{}),
		}
		c := newCountingCache()
		svc := New(s.profiles, records, WithStatsCache(c))
		before, err := s.service.Stats(s.ctx)
		s.Require().NoError(err)

		type result struct {
			stats *models.Stats
			err   error
		}
		done := make(chan result, 1)
		go func() {
			st, err := svc.Stats(s.ctx)
			done <- result{st, err}
		}()

		<-records.counted
		p := s.createProfile("CA-RACE")
		s.appendAt(p, 0.95)
		s.Require().NoError(c.Invalidate(s.ctx))
		close(records.resume)

		stale := <-done
		s.Require().NoError(stale.err)
		s.Equal(before.HighRiskCount, stale.stats.HighRiskCount)

		fresh, err := svc.Stats(s.ctx)
		s.Require().NoError(err)
		s.Equal(before.HighRiskCount+1, fresh.HighRiskCount)
		s.Equal(before.TotalPredictions+1, fresh.TotalPredictions)
	})
}
