package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"cardiotrack/internal/patient/models"
	"cardiotrack/internal/patient/store/history"
	"cardiotrack/internal/patient/store/profile"
	reportmodels "cardiotrack/internal/report/models"
	dErrors "cardiotrack/pkg/domain-errors"
	"cardiotrack/pkg/requestcontext"
)

type stubRenderer struct {
	got reportmodels.ReportData
	err error
}

func (r *stubRenderer) Render(d reportmodels.ReportData) ([]byte, error) {
	r.got = d
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-stub"), nil
}

type ReportServiceSuite struct {
	suite.Suite
	ctx      context.Context
	profiles *profile.InMemory
	records  *history.InMemory
	renderer *stubRenderer
	service  *Service
}

func TestReportServiceSuite(t *testing.T) {
	suite.Run(t, new(ReportServiceSuite))
}

func (s *ReportServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2025, 7, 9, 16, 45, 3, 0, time.UTC))
	s.profiles = profile.NewInMemory()
	s.records = history.NewInMemory()
	s.renderer = &stubRenderer{}
	s.service = New(s.records, s.profiles, s.renderer)
}

func (s *ReportServiceSuite) seed(patientID string, probs ...float64) *models.Profile {
	p := &models.Profile{PatientID: patientID, Name: "Name " + patientID, Phone: "01900000000"}
	s.Require().NoError(s.profiles.Create(s.ctx, p))
	for _, prob := range probs {
		verdict := models.VerdictLow
		if prob > 0.5 {
			verdict = models.VerdictHigh
		}
		s.Require().NoError(s.records.Append(s.ctx, &models.Record{
			ProfileID:     p.ID,
			MedicalFields: models.MedicalFields{Age: 50, Sex: 1},
			Verdict:       verdict,
			Probability:   prob,
		}))
	}
	return p
}

func (s *ReportServiceSuite) TestReport() {
	s.Run("renders with the owner resolved", func() {
		s.seed("RS-1", 0.72)
		doc, err := s.service.Report(s.ctx, 1)
		s.Require().NoError(err)
		s.Equal("patient_RS-1_report_1.pdf", doc.Filename)
		s.Equal(ContentTypePDF, doc.ContentType)
		s.Equal("Name RS-1", s.renderer.got.Name)
		s.Equal(72.0, s.renderer.got.ProbabilityPercent)
	})

	s.Run("unknown prediction", func() {
		_, err := s.service.Report(s.ctx, 999)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("render failure is internal", func() {
		s.renderer.err = errors.New("font missing")
		defer func() { s.renderer.err = nil }()
		_, err := s.service.Report(s.ctx, 1)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ReportServiceSuite) TestRecent() {
	s.seed("RC-1", 0.2, 0.9)
	s.seed("RC-2", 0.4)

	rows, err := s.service.Recent(s.ctx, 0, 2)
	s.Require().NoError(err)
	s.Require().Len(rows, 2)
	s.Equal(int64(3), rows[0].Record.ID)
	s.Equal("RC-2", rows[0].Owner.PatientID)
	s.Equal("RC-1", rows[1].Owner.PatientID)

	rows, err = s.service.Recent(s.ctx, 2, 10)
	s.Require().NoError(err)
	s.Len(rows, 1)

	_, err = s.service.Recent(s.ctx, -1, 10)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	_, err = s.service.Recent(s.ctx, 0, 1001)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ReportServiceSuite) TestExports() {
	s.seed("EX-1", 0.95, 0.3)
	s.seed("EX-2", 0.65)

	doc, err := s.service.ExportRoster(s.ctx)
	s.Require().NoError(err)
	s.Equal("heart_disease_patients_20250709_164503.xlsx", doc.Filename)
	s.Equal(ContentTypeXLSX, doc.ContentType)
	s.True(strings.HasPrefix(string(doc.Body), "PK"), "xlsx is a zip archive")

	doc, err = s.service.ExportHighRisk(s.ctx)
	s.Require().NoError(err)
	s.Equal("high_risk_patients_20250709_164503.xlsx", doc.Filename)
}
