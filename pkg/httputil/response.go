package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/mwynn/storefront/pkg/errors"
	"github.com/mwynn/storefront/pkg/logger"
	"github.com/mwynn/storefront/pkg/validator"
)

// Envelope is the standard JSON response body. Success responses carry
// "success": true plus handler-specific payload fields; error responses carry
// "success": false and a human-readable "message".
type Envelope map[string]any

// WriteJSON writes a JSON response with the given status code.
// Headers are already sent if encoding fails, so the error is swallowed.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess writes the uniform success envelope, merging the payload fields
// into {"success": true}.
func WriteSuccess(w http.ResponseWriter, status int, payload Envelope) {
	body := Envelope{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	WriteJSON(w, status, body)
}

// WriteError is the single error responder all handlers funnel through. It maps
// the error's declared kind to an HTTP status and writes
// {"success": false, "message": ...}. Internal details are logged, never
// exposed: any 500-class failure is reported with a generic message.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	// Prefer the request-scoped logger (enriched with correlation_id, user_id)
	// if the RequestLogger middleware has been mounted.
	l := logger.FromContext(r.Context())
	if l == slog.Default() {
		l = fallback
	}

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, Envelope{
			"success": false,
			"message": valErr.Error(),
		})
		return
	}

	status := apperrors.HTTPStatus(err)
	message := "an internal error occurred"

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && status != http.StatusInternalServerError {
		message = appErr.Message
	}

	if status == http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "internal error",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	WriteJSON(w, status, Envelope{
		"success": false,
		"message": message,
	})
}
