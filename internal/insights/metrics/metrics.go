package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	StatsCache *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		StatsCache: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "cardiotrack_stats_cache_total",
			Help: "Stats cache lookups by result (hit, miss, error)",
		}, []string{"result"}),
	}
}

func (m *Metrics) IncrementCache(result string) {
	m.StatsCache.WithLabelValues(result).Inc()
}
