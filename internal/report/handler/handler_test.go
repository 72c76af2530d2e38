package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardiotrack/internal/patient/models"
	"cardiotrack/internal/patient/store/history"
	"cardiotrack/internal/patient/store/profile"
	"cardiotrack/internal/report/pdf"
	"cardiotrack/internal/report/service"
	"cardiotrack/pkg/testutil"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	ctx := context.Background()
	profiles := profile.NewInMemory()
	records := history.NewInMemory()

	p := &models.Profile{PatientID: "RH-1", Name: "Farhana Akter", Phone: "01600000000"}
	require.NoError(t, profiles.Create(ctx, p))
	for _, prob := range []float64{0.85, 0.35} {
		verdict := models.VerdictLow
		if prob > 0.5 {
			verdict = models.VerdictHigh
		}
		require.NoError(t, records.Append(ctx, &models.Record{
			ProfileID:     p.ID,
			MedicalFields: models.MedicalFields{Age: 47, Sex: 0, CP: 1, Trestbps: 130, Chol: 240, Thalach: 150},
			Verdict:       verdict,
			Probability:   prob,
		}))
	}

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	r := chi.NewRouter()
	New(service.New(records, profiles, pdf.NewRenderer()), logger).Register(r)
	return r
}

func TestReportDownload(t *testing.T) {
	router := newRouter(t)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/report/1"))
	assert.Equal(t, "patient_RH-1_report_1.pdf", testutil.AssertAttachment(t, rr, service.ContentTypePDF))
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF-")))

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/report/77"))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/report/abc"))
	testutil.AssertStatus(t, rr, http.StatusUnprocessableEntity)
	testutil.AssertErrorCode(t, rr, "validation_error")
	testutil.AssertErrorFields(t, rr, "prediction_id")
}

func TestRecentListing(t *testing.T) {
	router := newRouter(t)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/patients?limit=1"))
	testutil.AssertStatusOK(t, rr)
	body := testutil.UnmarshalResponse[[]RecentRecordResponse](t, rr)
	require.Len(t, *body, 1)
	assert.Equal(t, "RH-1", (*body)[0].PatientID)
	assert.Equal(t, "Farhana Akter", (*body)[0].Name)
	assert.Equal(t, int64(2), (*body)[0].ID)
	assert.Equal(t, 35.0, (*body)[0].RiskProbability)

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/patients?skip=-1"))
	testutil.AssertStatus(t, rr, http.StatusUnprocessableEntity)
	testutil.AssertErrorFields(t, rr, "skip")
}

func TestExports(t *testing.T) {
	router := newRouter(t)

	for _, path := range []string{"/export/patients/excel", "/export/high-risk/excel"} {
		t.Run(path, func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, path))
			filename := testutil.AssertAttachment(t, rr, service.ContentTypeXLSX)
			assert.True(t, strings.HasSuffix(filename, ".xlsx"))
		})
	}
}
