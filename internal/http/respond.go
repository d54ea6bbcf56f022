package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response body", "error", err)
	}
}

// writeValidationErrors answers 400 with the field -> message map.
func writeValidationErrors(w http.ResponseWriter, errs validationErrors) {
	writeJSON(w, http.StatusBadRequest, errs)
}

// domainErrors are business failures the client caused; they answer 400
// with the error message, matching the error contract clients rely on.
var domainErrors = []error{
	core.ErrNotFound,
	core.ErrEmailTaken,
	core.ErrUserNotFound,
	core.ErrInvalidCredentials,
	core.ErrPasswordMismatch,
	core.ErrEmptyTitle,
	core.ErrInvalidAmount,
	core.ErrFutureDate,
	core.ErrInvalidType,
}

// writeError maps an error to the response contract: ErrUnauthenticated is
// 401, domain errors are 400 with {"error": msg}, anything else is 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, core.ErrUnauthenticated) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}

	for _, domainErr := range domainErrors {
		if errors.Is(err, domainErr) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
	}

	applog.NewStructuredLogger(applog.FromContext(r.Context())).LogError(
		r.Context(), "Unexpected error handling request", err,
		applog.ComponentHTTP, r.Method+" "+r.URL.Path, applog.NewFields())
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "An unexpected error occurred: " + err.Error(),
	})
}

// decodeJSON parses the request body into dst, answering 400 on malformed
// input. The boolean reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Malformed request body"})
		return false
	}
	return true
}
