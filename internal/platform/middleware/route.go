package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// routePattern keeps metric label cardinality bounded by using the chi
// pattern ("/profiles/{patientID}/timeline") instead of the raw path.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
