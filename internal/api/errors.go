// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/industrial-optimization-group/desdeo2/internal/archive"
	"github.com/industrial-optimization-group/desdeo2/internal/log"
	"github.com/industrial-optimization-group/desdeo2/internal/nimbus"
	"github.com/industrial-optimization-group/desdeo2/internal/problem"
	"github.com/industrial-optimization-group/desdeo2/internal/registry"
	"github.com/industrial-optimization-group/desdeo2/internal/scalarization"
)

// APIError is the JSON error envelope of every non-2xx response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError maps a domain error to the envelope and an HTTP status.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, archive.ErrNotFound), errors.Is(err, registry.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, archive.ErrDuplicate):
		status, code = http.StatusConflict, "duplicate"
	case errors.Is(err, problem.ErrSchema),
		errors.Is(err, scalarization.ErrScalarization),
		errors.Is(err, nimbus.ErrNimbus):
		status, code = http.StatusBadRequest, "validation"
	}
	if status == http.StatusInternalServerError {
		log.WithComponentFromContext(r.Context(), "api").Error().Err(err).
			Str(log.FieldPath, r.URL.Path).
			Msg("request failed")
		// Internals stay out of the response body.
		writeJSON(w, status, APIError{Code: code, Message: "internal server error"})
		return
	}
	writeJSON(w, status, APIError{Code: code, Message: err.Error()})
}

// respondBadRequest reports a malformed request body or parameter.
func respondBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, APIError{Code: "bad_request", Message: msg})
}

// respondUnauthorized reports a missing or invalid token.
func respondUnauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, APIError{Code: "unauthorized", Message: "missing or invalid API token"})
}
