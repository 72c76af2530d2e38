package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cardiotrack/internal/insights/models"
	patienthandler "cardiotrack/internal/patient/handler"
	"cardiotrack/pkg/platform/httputil"
	"cardiotrack/pkg/requestcontext"
)

type Service interface {
	Timeline(ctx context.Context, patientID string) (*models.Timeline, error)
	Latest(ctx context.Context, patientID string) (*models.Latest, error)
	Stats(ctx context.Context) (*models.Stats, error)
}

// Handler serves read-only aggregate views.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/profiles/{patientID}/timeline", h.HandleTimeline)
	r.Get("/profiles/{patientID}/latest", h.HandleLatest)
	r.Get("/stats", h.HandleStats)
}

// TimelineResponse is the body of GET /profiles/{patientID}/timeline.
type TimelineResponse struct {
	Profile   patienthandler.ProfileResponse  `json:"profile"`
	History   []patienthandler.RecordResponse `json:"history"`
	RiskTrend string                          `json:"risk_trend"`
}

// MessageResponse is returned by /latest when the patient has no records.
type MessageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) HandleTimeline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	patientID := chi.URLParam(r, "patientID")

	tl, err := h.service.Timeline(ctx, patientID)
	if err != nil {
		h.logFailure(ctx, "timeline", patientID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, TimelineResponse{
		Profile:   patienthandler.FromProfile(tl.Profile),
		History:   patienthandler.FromRecords(tl.Records),
		RiskTrend: string(tl.Trend),
	})
}

func (h *Handler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	patientID := chi.URLParam(r, "patientID")

	latest, err := h.service.Latest(ctx, patientID)
	if err != nil {
		h.logFailure(ctx, "latest", patientID, err)
		httputil.WriteError(w, err)
		return
	}
	if !latest.Found {
		httputil.WriteJSON(w, http.StatusOK, MessageResponse{Message: latest.Message})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, patienthandler.FromRecord(latest.Record))
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.service.Stats(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "stats failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) logFailure(ctx context.Context, op, patientID string, err error) {
	h.logger.InfoContext(ctx, op+" lookup failed",
		"request_id", requestcontext.RequestID(ctx),
		"patient_id", patientID,
		"error", err,
	)
}
