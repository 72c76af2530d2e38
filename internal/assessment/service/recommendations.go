package service

import "cardiotrack/internal/patient/models"

var highRiskRecommendations = []string{
	"Consult with a cardiologist immediately",
	"Schedule comprehensive cardiac screening",
	"Monitor blood pressure and cholesterol regularly",
	"Adopt a heart-healthy diet",
	"Engage in regular physical activity",
	"Avoid smoking and limit alcohol",
	"Manage stress effectively",
}

var lowRiskRecommendations = []string{
	"Continue maintaining a healthy lifestyle",
	"Regular annual health check-ups",
	"Balanced diet and exercise",
	"Monitor vital signs periodically",
	"Avoid smoking and excessive alcohol",
}

const (
	highRiskMessage = "High risk detected. Please consult a healthcare professional immediately."
	lowRiskMessage  = "Low risk detected. Keep up the good work with healthy habits!"
)

// Recommendations returns a fresh copy of the advice list for a verdict.
func Recommendations(v models.Verdict) []string {
	if v == models.VerdictHigh {
		return append([]string(nil), highRiskRecommendations...)
	}
	return append([]string(nil), lowRiskRecommendations...)
}

// Message returns the one-line summary shown with a verdict.
func Message(v models.Verdict) string {
	if v == models.VerdictHigh {
		return highRiskMessage
	}
	return lowRiskMessage
}
