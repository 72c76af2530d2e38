// Package httpapi assembles the public router from the domain handlers.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"cardiotrack/internal/platform/metrics"
	"cardiotrack/internal/platform/middleware"
	"cardiotrack/pkg/platform/httputil"
)

const (
	serviceName    = "Heart Disease Prediction API - With Patient Profiles"
	serviceVersion = "2.0.0"

	requestTimeout = 30 * time.Second
	healthTimeout  = 2 * time.Second
)

// Registrar mounts a domain's routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck pings one dependency. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

// Deps is everything the router needs. Metrics and Gatherer are optional.
type Deps struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Checks   map[string]HealthCheck
	Handlers []Registrar
}

// NewRouter wires middleware, operational endpoints and every domain handler.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime(time.Now))
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS)
	if deps.Metrics != nil {
		r.Use(middleware.LatencyMiddleware(deps.Metrics))
	}

	r.Get("/", handleRoot)
	r.Get("/health", handleHealth(deps.Checks))
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		for _, h := range deps.Handlers {
			h.Register(r)
		}
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "not_found"})
	})
	return r
}

type rootResponse struct {
	Message  string   `json:"message"`
	Version  string   `json:"version"`
	Features []string `json:"features"`
}

func handleRoot(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, rootResponse{
		Message: serviceName,
		Version: serviceVersion,
		Features: []string{
			"Patient Profile Management",
			"Prediction History Tracking",
			"Timeline View",
			"Progress Analysis",
		},
	})
}

type healthResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// handleHealth runs every check concurrently. Any failure turns the
// response into a 503.
func handleHealth(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		names := make([]string, 0, len(checks))
		results := make([]error, 0, len(checks))
		for name := range checks {
			names = append(names, name)
			results = append(results, nil)
		}

		var g errgroup.Group
		for i, name := range names {
			check := checks[name]
			g.Go(func() error {
				results[i] = check(ctx)
				return nil
			})
		}
		_ = g.Wait()

		resp := healthResponse{Status: "ok", Dependencies: make(map[string]string, len(names))}
		status := http.StatusOK
		for i, name := range names {
			if results[i] != nil {
				resp.Dependencies[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Dependencies[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
