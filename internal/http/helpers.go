package http

import (
	"errors"
	"net/http"
	"strings"

	"cantine/internal/core"
	"cantine/internal/log"
	"cantine/internal/services"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// statusFor maps a service error to the HTTP status it is reported with.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrMalformedBody), errors.Is(err, ErrEmptyImport):
		return http.StatusBadRequest
	case services.IsValidation(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrConflict), errors.Is(err, services.ErrResetUnsupported):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports err to the client. Only unexpected failures are logged
// with their detail; the client gets a generic message for those.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		fields := log.NewFields()
		fields[log.FieldPath] = r.URL.Path
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, log.ComponentHTTP, op, fields)
		InternalServerError("internal error").Write(w)
		return
	}
	ErrorResponse(status, err.Error()).Write(w)
}
