package models

import (
	"math"
	"time"

	"cardiotrack/pkg/platform/validation"
)

// Verdict is the binary classification attached to every record.
type Verdict string

const (
	VerdictHigh Verdict = "High Risk"
	VerdictLow  Verdict = "Low Risk"
)

// VerdictFromLabel maps the scorer's label: 1 is high risk, anything else low.
func VerdictFromLabel(label int) Verdict {
	if label == 1 {
		return VerdictHigh
	}
	return VerdictLow
}

func (v Verdict) IsValid() bool {
	return v == VerdictHigh || v == VerdictLow
}

// FeatureCount is the length of the scoring vector.
const FeatureCount = 13

// MedicalFields are the clinical measurements captured per assessment.
type MedicalFields struct {
	Age      int     `json:"age" validate:"gte=1,lte=120"`
	Sex      int     `json:"sex" validate:"gte=0,lte=1"`
	CP       int     `json:"cp" validate:"gte=0,lte=3"`
	Trestbps int     `json:"trestbps" validate:"gte=80,lte=250"`
	Chol     int     `json:"chol" validate:"gte=100,lte=600"`
	FBS      int     `json:"fbs" validate:"gte=0,lte=1"`
	RestECG  int     `json:"restecg" validate:"gte=0,lte=2"`
	Thalach  int     `json:"thalach" validate:"gte=60,lte=220"`
	Exang    int     `json:"exang" validate:"gte=0,lte=1"`
	Oldpeak  float64 `json:"oldpeak" validate:"gte=0,lte=10"`
	Slope    int     `json:"slope" validate:"gte=0,lte=2"`
	CA       int     `json:"ca" validate:"gte=0,lte=4"`
	Thal     int     `json:"thal" validate:"gte=0,lte=3"`
}

// Validate checks every field against its clinical range and reports all
// violations at once.
func (m MedicalFields) Validate() error {
	return validation.Struct(m)
}

// Vector returns the fields in the order the scoring model was trained on.
func (m MedicalFields) Vector() [FeatureCount]float64 {
	return [FeatureCount]float64{
		float64(m.Age),
		float64(m.Sex),
		float64(m.CP),
		float64(m.Trestbps),
		float64(m.Chol),
		float64(m.FBS),
		float64(m.RestECG),
		float64(m.Thalach),
		float64(m.Exang),
		m.Oldpeak,
		float64(m.Slope),
		float64(m.CA),
		float64(m.Thal),
	}
}

// Record is one immutable assessment. There is no update or delete path.
type Record struct {
	ID        int64 `json:"id"`
	ProfileID int64 `json:"profile_id"`
	MedicalFields
	Verdict     Verdict   `json:"prediction"`
	Probability float64   `json:"risk_probability"`
	DoctorNotes *string   `json:"doctor_notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Percent presents a probability fraction as a percentage rounded to two
// decimals. Applying it to an already rounded fraction yields the same value.
func Percent(p float64) float64 {
	return math.Round(p*10000) / 100
}

// Share returns count/total as a percentage rounded to two decimals, or 0
// when total is 0.
func Share(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*10000) / 100
}
