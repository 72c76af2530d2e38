package handler

import (
	"time"

	"cardiotrack/internal/patient/models"
)

// ProfileResponse is the public view of a profile.
type ProfileResponse struct {
	ID               int64     `json:"id"`
	PatientID        string    `json:"patient_id"`
	Name             string    `json:"name"`
	DateOfBirth      string    `json:"date_of_birth"`
	Gender           string    `json:"gender"`
	Phone            string    `json:"phone"`
	Email            *string   `json:"email"`
	Address          *string   `json:"address"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	TotalPredictions int       `json:"total_predictions"`
}

func FromProfile(s *models.ProfileSummary) ProfileResponse {
	p := s.Profile
	return ProfileResponse{
		ID:               p.ID,
		PatientID:        p.PatientID,
		Name:             p.Name,
		DateOfBirth:      p.DateOfBirth,
		Gender:           string(p.Gender),
		Phone:            p.Phone,
		Email:            p.Email,
		Address:          p.Address,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
		TotalPredictions: s.TotalPredictions,
	}
}

// RecordTimeLayout is the timestamp format used in record views.
const RecordTimeLayout = "2006-01-02 15:04:05"

// RecordResponse is the public view of a record. Probability is a
// percentage and sex is rendered as text.
type RecordResponse struct {
	ID              int64   `json:"id"`
	ProfileID       int64   `json:"profile_id"`
	Age             int     `json:"age"`
	Sex             string  `json:"sex"`
	CP              int     `json:"cp"`
	Trestbps        int     `json:"trestbps"`
	Chol            int     `json:"chol"`
	FBS             int     `json:"fbs"`
	RestECG         int     `json:"restecg"`
	Thalach         int     `json:"thalach"`
	Exang           int     `json:"exang"`
	Oldpeak         float64 `json:"oldpeak"`
	Slope           int     `json:"slope"`
	CA              int     `json:"ca"`
	Thal            int     `json:"thal"`
	Prediction      string  `json:"prediction"`
	RiskProbability float64 `json:"risk_probability"`
	DoctorNotes     *string `json:"doctor_notes"`
	CreatedAt       string  `json:"created_at"`
}

func FromRecord(r *models.Record) RecordResponse {
	m := r.MedicalFields
	return RecordResponse{
		ID:              r.ID,
		ProfileID:       r.ProfileID,
		Age:             m.Age,
		Sex:             models.SexText(m.Sex),
		CP:              m.CP,
		Trestbps:        m.Trestbps,
		Chol:            m.Chol,
		FBS:             m.FBS,
		RestECG:         m.RestECG,
		Thalach:         m.Thalach,
		Exang:           m.Exang,
		Oldpeak:         m.Oldpeak,
		Slope:           m.Slope,
		CA:              m.CA,
		Thal:            m.Thal,
		Prediction:      string(r.Verdict),
		RiskProbability: models.Percent(r.Probability),
		DoctorNotes:     r.DoctorNotes,
		CreatedAt:       r.CreatedAt.UTC().Format(RecordTimeLayout),
	}
}

func FromRecords(records []*models.Record) []RecordResponse {
	out := make([]RecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, FromRecord(r))
	}
	return out
}
