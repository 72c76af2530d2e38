package models

import patient "cardiotrack/internal/patient/models"

// Trend summarizes the direction of a patient's recent risk.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendWorsening Trend = "worsening"
	TrendStable    Trend = "stable"
)

// trendWindow is how many of the newest records the trend looks at.
const trendWindow = 3

// ClassifyTrend compares the newest record against the oldest of the newest
// three. records must be ordered newest first.
func ClassifyTrend(records []*patient.Record) Trend {
	if len(records) < 2 {
		return TrendStable
	}
	w := records[:min(trendWindow, len(records))]
	first, last := w[0].Probability, w[len(w)-1].Probability
	switch {
	case first < last:
		return TrendImproving
	case first > last:
		return TrendWorsening
	default:
		return TrendStable
	}
}

// Timeline is a patient's full history, newest first.
type Timeline struct {
	Profile *patient.ProfileSummary
	Records []*patient.Record
	Trend   Trend
}

// NoPredictionsMessage accompanies a Latest result with Found == false.
const NoPredictionsMessage = "No predictions found for this patient"

// Latest is the newest record for a patient, if any.
type Latest struct {
	Found   bool
	Record  *patient.Record
	Message string
}

// Stats are system-wide counts. HighRiskCount + LowRiskCount always equals
// TotalPredictions.
type Stats struct {
	TotalPatients      int     `json:"total_patients"`
	TotalPredictions   int     `json:"total_predictions"`
	HighRiskCount      int     `json:"high_risk_count"`
	LowRiskCount       int     `json:"low_risk_count"`
	HighRiskPercentage float64 `json:"high_risk_percentage"`
	LowRiskPercentage  float64 `json:"low_risk_percentage"`
}

// NewStats derives totals and percentages from the raw counts.
func NewStats(patients, high, low int) *Stats {
	total := high + low
	return &Stats{
		TotalPatients:      patients,
		TotalPredictions:   total,
		HighRiskCount:      high,
		LowRiskCount:       low,
		HighRiskPercentage: patient.Share(high, total),
		LowRiskPercentage:  patient.Share(low, total),
	}
}
