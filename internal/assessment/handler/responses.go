package handler

import "cardiotrack/internal/assessment/service"

// PredictResponse is returned for every recorded assessment.
type PredictResponse struct {
	PredictionID    int64    `json:"prediction_id"`
	PatientID       string   `json:"patient_id"`
	PatientName     string   `json:"patient_name"`
	Prediction      string   `json:"prediction"`
	RiskProbability float64  `json:"risk_probability"`
	Message         string   `json:"message"`
	Recommendations []string `json:"recommendations"`
	IsNewPatient    bool     `json:"is_new_patient"`
}

func FromResult(res *service.Result) PredictResponse {
	return PredictResponse{
		PredictionID:    res.Record.ID,
		PatientID:       res.Profile.PatientID,
		PatientName:     res.Profile.Name,
		Prediction:      string(res.Record.Verdict),
		RiskProbability: res.RiskPercent,
		Message:         res.Message,
		Recommendations: res.Recommendations,
		IsNewPatient:    res.IsNewPatient,
	}
}
