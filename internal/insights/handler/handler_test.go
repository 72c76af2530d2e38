package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardiotrack/internal/insights/models"
	"cardiotrack/internal/insights/service"
	patient "cardiotrack/internal/patient/models"
	"cardiotrack/internal/patient/store/history"
	"cardiotrack/internal/patient/store/profile"
	"cardiotrack/pkg/testutil"
)

func setup(t *testing.T) (http.Handler, *profile.InMemory, *history.InMemory) {
	t.Helper()
	profiles := profile.NewInMemory()
	records := history.NewInMemory()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	r := chi.NewRouter()
	New(service.New(profiles, records), logger).Register(r)
	return r, profiles, records
}

func seed(t *testing.T, profiles *profile.InMemory, records *history.InMemory, patientID string, probs ...float64) {
	t.Helper()
	ctx := context.Background()
	p := &patient.Profile{PatientID: patientID, Name: "Sadia Islam", Gender: patient.GenderFemale, DateOfBirth: "1970-01-01"}
	require.NoError(t, profiles.Create(ctx, p))
	for _, prob := range probs {
		verdict := patient.VerdictLow
		if prob > 0.5 {
			verdict = patient.VerdictHigh
		}
		require.NoError(t, records.Append(ctx, &patient.Record{
			ProfileID:     p.ID,
			MedicalFields: patient.MedicalFields{Age: 55, Sex: 0},
			Verdict:       verdict,
			Probability:   prob,
		}))
	}
}

func TestTimeline(t *testing.T) {
	router, profiles, records := setup(t)
	seed(t, profiles, records, "HT-1", 0.9, 0.55, 0.123456)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/profiles/HT-1/timeline"))
	testutil.AssertStatusOK(t, rr)
	body := testutil.UnmarshalResponse[TimelineResponse](t, rr)
	assert.Equal(t, "HT-1", body.Profile.PatientID)
	assert.Equal(t, 3, body.Profile.TotalPredictions)
	require.Len(t, body.History, 3)
	assert.Equal(t, 12.35, body.History[0].RiskProbability)
	assert.Equal(t, "Female", body.History[0].Sex)
	assert.Equal(t, string(models.TrendImproving), body.RiskTrend)

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/profiles/NOPE/timeline"))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
}

func TestLatest(t *testing.T) {
	router, profiles, records := setup(t)
	seed(t, profiles, records, "HL-1")
	seed(t, profiles, records, "HL-2", 0.3, 0.8)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/profiles/HL-1/latest"))
	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONContains(t, rr, "message", "No predictions found for this patient")

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/profiles/HL-2/latest"))
	testutil.AssertStatusOK(t, rr)
	rec := testutil.UnmarshalResponse[struct {
		Prediction      string  `json:"prediction"`
		RiskProbability float64 `json:"risk_probability"`
	}](t, rr)
	assert.Equal(t, "High Risk", rec.Prediction)
	assert.Equal(t, 80.0, rec.RiskProbability)
}

func TestStats(t *testing.T) {
	router, profiles, records := setup(t)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/stats"))
	testutil.AssertStatusOK(t, rr)
	empty := testutil.UnmarshalResponse[models.Stats](t, rr)
	assert.Zero(t, empty.TotalPredictions)
	assert.Zero(t, empty.HighRiskPercentage)

	seed(t, profiles, records, "HS-1", 0.9, 0.1)
	seed(t, profiles, records, "HS-2")

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/stats"))
	testutil.AssertStatusOK(t, rr)
	stats := testutil.UnmarshalResponse[models.Stats](t, rr)
	assert.Equal(t, 2, stats.TotalPatients)
	assert.Equal(t, 2, stats.TotalPredictions)
	assert.Equal(t, 50.0, stats.HighRiskPercentage)
	assert.Equal(t, 50.0, stats.LowRiskPercentage)
}
