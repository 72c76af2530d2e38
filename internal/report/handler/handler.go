package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	patienthandler "cardiotrack/internal/patient/handler"
	reportmodels "cardiotrack/internal/report/models"
	"cardiotrack/internal/report/service"
	dErrors "cardiotrack/pkg/domain-errors"
	"cardiotrack/pkg/platform/httputil"
	"cardiotrack/pkg/platform/validation"
	"cardiotrack/pkg/requestcontext"
)

type Service interface {
	Report(ctx context.Context, recordID int64) (*service.Document, error)
	Recent(ctx context.Context, offset, limit int) ([]reportmodels.OwnedRecord, error)
	ExportRoster(ctx context.Context) (*service.Document, error)
	ExportHighRisk(ctx context.Context) (*service.Document, error)
}

// Handler serves generated documents and the legacy record listing.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/report/{predictionID}", h.HandleReport)
	r.Get("/patients", h.HandleRecent)
	r.Get("/export/patients/excel", h.HandleExportRoster)
	r.Get("/export/high-risk/excel", h.HandleExportHighRisk)
}

// RecentRecordResponse is a record view with its owner's identity.
type RecentRecordResponse struct {
	patienthandler.RecordResponse
	Name      string `json:"name"`
	PatientID string `json:"patient_id"`
}

func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	raw := chi.URLParam(r, "predictionID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		httputil.WriteError(w, dErrors.Validation([]string{"prediction_id"}, "prediction_id must be a positive integer"))
		return
	}

	doc, err := h.service.Report(ctx, id)
	if err != nil {
		h.logFailure(ctx, "report", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteBinary(w, doc.ContentType, doc.Filename, doc.Body)
}

// HandleRecent handles GET /patients, newest records first.
func (h *Handler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	skip, limit, err := httputil.PageParams(r, validation.DefaultPageSize, validation.MaxPageSize)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	rows, err := h.service.Recent(ctx, skip, limit)
	if err != nil {
		h.logFailure(ctx, "recent records", err)
		httputil.WriteError(w, err)
		return
	}

	out := make([]RecentRecordResponse, 0, len(rows))
	for _, row := range rows {
		resp := RecentRecordResponse{
			RecordResponse: patienthandler.FromRecord(row.Record),
			Name:           "Unknown",
			PatientID:      "Unknown",
		}
		if row.Owner != nil {
			resp.Name = row.Owner.Name
			resp.PatientID = row.Owner.PatientID
		}
		out = append(out, resp)
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleExportRoster(w http.ResponseWriter, r *http.Request) {
	h.serveExport(w, r, "roster export", h.service.ExportRoster)
}

func (h *Handler) HandleExportHighRisk(w http.ResponseWriter, r *http.Request) {
	h.serveExport(w, r, "high-risk export", h.service.ExportHighRisk)
}

func (h *Handler) serveExport(w http.ResponseWriter, r *http.Request, op string, export func(context.Context) (*service.Document, error)) {
	ctx := r.Context()
	doc, err := export(ctx)
	if err != nil {
		h.logFailure(ctx, op, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteBinary(w, doc.ContentType, doc.Filename, doc.Body)
}

func (h *Handler) logFailure(ctx context.Context, op string, err error) {
	h.logger.ErrorContext(ctx, op+" failed",
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
}
