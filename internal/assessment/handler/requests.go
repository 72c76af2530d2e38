package handler

import (
	"strings"

	"cardiotrack/internal/assessment/service"
	"cardiotrack/internal/patient/models"
	"cardiotrack/pkg/platform/validation"
)

// PredictRequest is the body of POST /predict. The measurements are pointers
// so a missing field is reported as required rather than read as zero.
type PredictRequest struct {
	PatientID   *string              `json:"patient_id,omitempty" validate:"-"`
	ProfileData *models.ProfileInput `json:"profile_data,omitempty" validate:"-"`

	Age      *int     `json:"age" validate:"required"`
	Sex      *int     `json:"sex" validate:"required"`
	CP       *int     `json:"cp" validate:"required"`
	Trestbps *int     `json:"trestbps" validate:"required"`
	Chol     *int     `json:"chol" validate:"required"`
	FBS      *int     `json:"fbs" validate:"required"`
	RestECG  *int     `json:"restecg" validate:"required"`
	Thalach  *int     `json:"thalach" validate:"required"`
	Exang    *int     `json:"exang" validate:"required"`
	Oldpeak  *float64 `json:"oldpeak" validate:"required"`
	Slope    *int     `json:"slope" validate:"required"`
	CA       *int     `json:"ca" validate:"required"`
	Thal     *int     `json:"thal" validate:"required"`

	DoctorNotes *string `json:"doctor_notes,omitempty"`
}

func (r *PredictRequest) Normalize() {
	if r.DoctorNotes != nil {
		notes := strings.TrimSpace(*r.DoctorNotes)
		if notes == "" {
			r.DoctorNotes = nil
		} else {
			r.DoctorNotes = &notes
		}
	}
}

// Validate only checks presence. Ranges and the patient reference are
// checked by the orchestrator.
func (r *PredictRequest) Validate() error {
	return validation.Struct(r)
}

// ToServiceRequest assumes Validate has passed.
func (r *PredictRequest) ToServiceRequest() service.Request {
	return service.Request{
		Reference: models.Reference{
			PatientID:   r.PatientID,
			ProfileData: r.ProfileData,
		},
		Medical: models.MedicalFields{
			Age:      *r.Age,
			Sex:      *r.Sex,
			CP:       *r.CP,
			Trestbps: *r.Trestbps,
			Chol:     *r.Chol,
			FBS:      *r.FBS,
			RestECG:  *r.RestECG,
			Thalach:  *r.Thalach,
			Exang:    *r.Exang,
			Oldpeak:  *r.Oldpeak,
			Slope:    *r.Slope,
			CA:       *r.CA,
			Thal:     *r.Thal,
		},
		DoctorNotes: r.DoctorNotes,
	}
}
