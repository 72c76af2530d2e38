// Package models holds the flattened views the report and export renderers
// consume. Renderers never see stores or domain entities.
package models

import (
	"strconv"
	"time"

	patient "cardiotrack/internal/patient/models"
)

// ReportData is one record plus its owner, with coded fields already
// rendered as text where the report shows text.
type ReportData struct {
	RecordID           int64
	Name               string
	PatientID          string
	Age                int
	Sex                string
	ChestPain          int
	ChestPainText      string
	RestingBP          int
	Cholesterol        int
	FastingSugar       string
	RestingECG         int
	RestingECGText     string
	MaxHeartRate       int
	ExerciseAngina     string
	STDepression       float64
	STSlope            int
	STSlopeText        string
	Vessels            int
	Thalassemia        int
	ThalassemiaText    string
	Verdict            patient.Verdict
	ProbabilityPercent float64
	Notes              string
	CreatedAt          time.Time
}

// NewReportData flattens a record and its owner.
func NewReportData(p *patient.Profile, r *patient.Record) ReportData {
	m := r.MedicalFields
	return ReportData{
		RecordID:           r.ID,
		Name:               p.Name,
		PatientID:          p.PatientID,
		Age:                m.Age,
		Sex:                patient.SexText(m.Sex),
		ChestPain:          m.CP,
		ChestPainText:      patient.ChestPainText(m.CP),
		RestingBP:          m.Trestbps,
		Cholesterol:        m.Chol,
		FastingSugar:       patient.YesNo(m.FBS),
		RestingECG:         m.RestECG,
		RestingECGText:     patient.RestECGText(m.RestECG),
		MaxHeartRate:       m.Thalach,
		ExerciseAngina:     patient.YesNo(m.Exang),
		STDepression:       m.Oldpeak,
		STSlope:            m.Slope,
		STSlopeText:        patient.SlopeText(m.Slope),
		Vessels:            m.CA,
		Thalassemia:        m.Thal,
		ThalassemiaText:    patient.ThalText(m.Thal),
		Verdict:            r.Verdict,
		ProbabilityPercent: patient.Percent(r.Probability),
		Notes:              notes(r.DoctorNotes),
		CreatedAt:          r.CreatedAt,
	}
}

// Filename is the attachment name for a PDF report.
func (d ReportData) Filename() string {
	return "patient_" + d.PatientID + "_report_" + strconv.FormatInt(d.RecordID, 10) + ".pdf"
}

// OwnedRecord pairs a record with its owner. Owner is nil when the owning
// profile could not be loaded.
type OwnedRecord struct {
	Record *patient.Record
	Owner  *patient.Profile
}

func notes(n *string) string {
	if n == nil {
		return ""
	}
	return *n
}
