package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cardiotrack/internal/assessment/service"
	"cardiotrack/pkg/platform/httputil"
	"cardiotrack/pkg/requestcontext"
)

// Service runs an assessment.
type Service interface {
	Assess(ctx context.Context, req service.Request) (*service.Result, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/predict", h.HandlePredict)
}

// HandlePredict handles POST /predict.
func (h *Handler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[PredictRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.service.Assess(ctx, req.ToServiceRequest())
	if err != nil {
		h.logger.WarnContext(ctx, "assessment failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromResult(res))
}
