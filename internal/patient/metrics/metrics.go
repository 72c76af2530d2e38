package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the patient module.
type Metrics struct {
	ProfilesCreated  prometheus.Counter
	ProfileConflicts prometheus.Counter
	ListDuration     prometheus.Histogram
}

// New registers the patient metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ProfilesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "cardiotrack_profiles_created_total",
			Help: "Total number of patient profiles created",
		}),
		ProfileConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "cardiotrack_profile_conflicts_total",
			Help: "Profile creations rejected because the patient id already exists",
		}),
		ListDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cardiotrack_list_profiles_duration_seconds",
			Help:    "Duration of profile listing including record counts",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementProfilesCreated() {
	m.ProfilesCreated.Inc()
}

func (m *Metrics) IncrementProfileConflicts() {
	m.ProfileConflicts.Inc()
}

// ObserveList records the duration of a ListProfiles call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveList(start time.Time) {
	m.ListDuration.Observe(time.Since(start).Seconds())
}
