package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks outbox throughput. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Published     prometheus.Counter
	PublishFailed prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Published: factory.NewCounter(prometheus.CounterOpts{
			Name: "cardiotrack_outbox_published_total",
			Help: "Outbox entries delivered to the broker",
		}),
		PublishFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "cardiotrack_outbox_publish_failures_total",
			Help: "Outbox batches the broker rejected",
		}),
	}
}

func (m *Metrics) addPublished(n int) {
	if m == nil || n == 0 {
		return
	}
	m.Published.Add(float64(n))
}

func (m *Metrics) incFailed() {
	if m == nil {
		return
	}
	m.PublishFailed.Inc()
}
