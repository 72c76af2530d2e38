package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cardiotrack/internal/patient/models"
	"cardiotrack/pkg/platform/httputil"
	"cardiotrack/pkg/platform/validation"
	"cardiotrack/pkg/requestcontext"
)

// Service defines the profile operations exposed over HTTP.
type Service interface {
	CreateProfile(ctx context.Context, in models.ProfileInput) (*models.Profile, error)
	GetProfile(ctx context.Context, patientID string) (*models.ProfileSummary, error)
	ListProfiles(ctx context.Context, offset, limit int) ([]*models.ProfileSummary, error)
}

// Handler serves the profile endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts profile endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/profiles/create", h.HandleCreate)
	r.Get("/profiles/search/{patientID}", h.HandleSearch)
	r.Get("/profiles", h.HandleList)
}

// HandleCreate handles POST /profiles/create.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateProfileRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	p, err := h.service.CreateProfile(ctx, models.ProfileInput(*req))
	if err != nil {
		h.logger.WarnContext(ctx, "create profile failed",
			"request_id", requestID,
			"patient_id", req.PatientID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromProfile(&models.ProfileSummary{Profile: p}))
}

// HandleSearch handles GET /profiles/search/{patientID}.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	patientID := chi.URLParam(r, "patientID")

	summary, err := h.service.GetProfile(ctx, patientID)
	if err != nil {
		h.logger.InfoContext(ctx, "profile lookup failed",
			"request_id", requestcontext.RequestID(ctx),
			"patient_id", patientID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromProfile(summary))
}

// HandleList handles GET /profiles?skip=&limit=.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	skip, limit, err := httputil.PageParams(r, validation.DefaultPageSize, validation.MaxPageSize)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	summaries, err := h.service.ListProfiles(ctx, skip, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "list profiles failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	out := make([]ProfileResponse, len(summaries))
	for i, s := range summaries {
		out[i] = FromProfile(s)
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}
