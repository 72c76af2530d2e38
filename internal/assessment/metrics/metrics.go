package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the assessment pipeline.
type Metrics struct {
	Assessments     *prometheus.CounterVec
	Failures        *prometheus.CounterVec
	AssessDuration  prometheus.Histogram
	ScoringDuration prometheus.Histogram
}

// New registers the assessment metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Assessments: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cardiotrack_assessments_total",
			Help: "Recorded assessments by verdict",
		}, []string{"verdict"}),
		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cardiotrack_assessment_failures_total",
			Help: "Rejected or failed assessments by error code",
		}, []string{"code"}),
		AssessDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cardiotrack_assess_duration_seconds",
			Help:    "End-to-end duration of an assessment",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		ScoringDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cardiotrack_scoring_duration_seconds",
			Help:    "Duration of the scoring call",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
		}),
	}
}

func (m *Metrics) IncrementAssessments(verdict string) {
	m.Assessments.WithLabelValues(verdict).Inc()
}

func (m *Metrics) IncrementFailures(code string) {
	m.Failures.WithLabelValues(code).Inc()
}

// ObserveAssess records the duration of an Assess call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveAssess(start time.Time) {
	m.AssessDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveScoring(start time.Time) {
	m.ScoringDuration.Observe(time.Since(start).Seconds())
}
