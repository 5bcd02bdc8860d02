// Package response writes every JSON body the API sends.
//
// Handlers never pick error status codes themselves: they hand the error
// to Fail, which is the single place where service and validation errors
// are turned into an HTTP status and a localised message.
package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/students-api/internal/i18n"
	"github.com/aanand-mishra/students-api/internal/service"
	"github.com/aanand-mishra/students-api/internal/storage"
	"github.com/aanand-mishra/students-api/internal/validation"
)

// ─────────────────────────────────────────────────────────────────────────────
// Response is the envelope used for every error.
//
//	{ "error": "invalid data: field email must be a valid email address",
//	  "details": [ { "field": "email", "message": "must be a valid email address" } ] }
//
// Details is only present for validation failures.
// ─────────────────────────────────────────────────────────────────────────────
type Response struct {
	Error   string                  `json:"error"`
	Details []validation.FieldError `json:"details,omitempty"`
}

// WriteJSON sets the content type, writes status and encodes data.
// Header() → WriteHeader() → body, in that order.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// NoContent writes a 204 with an empty body.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Message writes {"error": <key translated for r>} with status.
func Message(w http.ResponseWriter, r *http.Request, status int, key string) {
	_ = WriteJSON(w, status, Response{Error: i18n.Translate(r.Header.Get("Accept-Language"), key)})
}

// ─────────────────────────────────────────────────────────────────────────────
// Fail maps err onto a status code and writes the error body.
//
//	*validation.Error            → 400 invalid data
//	service.ErrDuplicateEmail    → 400 email already registered
//	service.ErrInvalidCredentials→ 401
//	service.ErrInvalidToken      → 401
//	service.ErrStudentNotFound   → 404
//	anything else                → 500, details only in the log
// ─────────────────────────────────────────────────────────────────────────────
func Fail(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		lang := r.Header.Get("Accept-Language")
		_ = WriteJSON(w, http.StatusBadRequest, Response{
			Error:   i18n.Translate(lang, i18n.InvalidData) + ": " + verr.Error(),
			Details: verr.Fields,
		})
	case errors.Is(err, service.ErrDuplicateEmail):
		Message(w, r, http.StatusBadRequest, i18n.EmailTaken)
	case errors.Is(err, service.ErrInvalidCredentials):
		Message(w, r, http.StatusUnauthorized, i18n.InvalidCredentials)
	case errors.Is(err, service.ErrInvalidToken):
		Message(w, r, http.StatusUnauthorized, i18n.InvalidToken)
	case errors.Is(err, service.ErrStudentNotFound), errors.Is(err, storage.ErrNotFound):
		Message(w, r, http.StatusNotFound, i18n.NotFound)
	default:
		if logger == nil {
			logger = slog.Default()
		}
		logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		Message(w, r, http.StatusInternalServerError, i18n.InternalError)
	}
}
