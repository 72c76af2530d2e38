// Package httputil holds the JSON response and request helpers shared by handlers.
package httputil

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	dErrors "cardiotrack/pkg/domain-errors"
)

// maxBodyBytes bounds request bodies decoded by DecodeAndPrepare.
const maxBodyBytes = 1 << 20

// Validatable is implemented by request bodies that check themselves after decoding.
type Validatable interface {
	Validate() error
}

// Normalizer is implemented by request bodies that trim or default fields before validation.
type Normalizer interface {
	Normalize()
}

// ErrorResponse is the body written for every failed request.
type ErrorResponse struct {
	Error            string   `json:"error"`
	ErrorDescription string   `json:"error_description,omitempty"`
	Fields           []string `json:"fields,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to a status and body. Internal errors never leak their
// description to the client.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	resp := ErrorResponse{Error: string(code)}
	if code != dErrors.CodeInternal {
		if de, ok := dErrors.As(err); ok {
			resp.ErrorDescription = de.Message
			resp.Fields = de.Fields
		}
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), resp)
}

// WriteBinary streams a generated document as an attachment.
func WriteBinary(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// DecodeAndPrepare decodes a JSON body into T, normalizes and validates it.
// On failure it writes the error response and returns false.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	var req T
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return nil, false
	}
	if n, ok := any(&req).(Normalizer); ok {
		n.Normalize()
	}
	if v, ok := any(&req).(Validatable); ok {
		if err := v.Validate(); err != nil {
			logger.WarnContext(ctx, "request validation failed",
				"request_id", requestID,
				"error", err,
			)
			WriteError(w, err)
			return nil, false
		}
	}
	return &req, true
}

// PageParams reads skip and limit query parameters. Missing values fall back
// to 0 and defaultLimit; malformed or out-of-range values are validation errors.
func PageParams(r *http.Request, defaultLimit, maxLimit int) (skip, limit int, err error) {
	q := r.URL.Query()
	skip, limit = 0, defaultLimit
	var bad []string
	if raw := q.Get("skip"); raw != "" {
		if n, convErr := strconv.Atoi(raw); convErr != nil || n < 0 {
			bad = append(bad, "skip")
		} else {
			skip = n
		}
	}
	if raw := q.Get("limit"); raw != "" {
		if n, convErr := strconv.Atoi(raw); convErr != nil || n < 1 || n > maxLimit {
			bad = append(bad, "limit")
		} else {
			limit = n
		}
	}
	if len(bad) > 0 {
		return 0, 0, dErrors.Validation(bad,
			fmt.Sprintf("skip must be a non-negative integer and limit an integer between 1 and %d", maxLimit))
	}
	return skip, limit, nil
}
