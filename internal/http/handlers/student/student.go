// Package student contains the HTTP handlers for the /students resource.
//
// Each handler is built by a factory that receives its dependencies once at
// startup and returns the http.HandlerFunc chi calls on every request:
//
//	r.Get("/students/{id}", student.GetByID(svc, logger))
//
// Handlers only decode, call the service and encode. Status codes for
// errors are chosen by response.Fail.
package student

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aanand-mishra/students-api/internal/i18n"
	"github.com/aanand-mishra/students-api/internal/types"
	"github.com/aanand-mishra/students-api/internal/utils/response"
	"github.com/aanand-mishra/students-api/internal/validation"
)

// MaxBodyBytes caps every request body read by these handlers.
const MaxBodyBytes = 1 << 20

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// Service is the subset of service.StudentService the handlers use.
type Service interface {
	List(ctx context.Context, page, limit int) (types.StudentPage, error)
	Get(ctx context.Context, id string) (*types.Student, error)
	Create(ctx context.Context, in types.StudentCreateInput) (types.Student, error)
	Update(ctx context.Context, id string, in types.StudentUpdateInput) (types.Student, error)
	Delete(ctx context.Context, id string) (types.Student, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// List handles GET /students?page=&limit=
//
//	200 { "items": [...], "total": 42, "page": 1, "limit": 10 }
//	400 page or limit not a positive integer, limit above 100, or a page
//	    so large that its offset overflows
// ─────────────────────────────────────────────────────────────────────────────
func List(svc Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := positiveQueryInt(r, "page", defaultPage)
		if err != nil {
			response.Fail(w, r, logger, err)
			return
		}
		limit, err := positiveQueryInt(r, "limit", defaultLimit)
		if err != nil {
			response.Fail(w, r, logger, err)
			return
		}
		if limit > maxLimit {
			response.Fail(w, r, logger, validation.Invalid("limit", "must be at most "+strconv.Itoa(maxLimit)))
			return
		}
		if page-1 > math.MaxInt/limit {
			response.Fail(w, r, logger, validation.Invalid("page", "is too large"))
			return
		}

		result, err := svc.List(r.Context(), page, limit)
		if err != nil {
			response.Fail(w, r, logger, err)
			return
		}
		_ = response.WriteJSON(w, http.StatusOK, result)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetByID handles GET /students/{id}
//
//	200 the student
//	404 no student with that id
// ─────────────────────────────────────────────────────────────────────────────
func GetByID(svc Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			response.Fail(w, r, logger, err)
			return
		}
		if st == nil {
			response.Message(w, r, http.StatusNotFound, i18n.NotFound)
			return
		}
		_ = response.WriteJSON(w, http.StatusOK, st)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /students
//
//	{ "firstName": "Alice", "lastName": "Smith", "email": "alice@example.com",
//	  "birthDate": "2000-01-01T00:00:00.000Z", "grade": "5th" }
//
//	201 the stored student
//	400 invalid payload
// ─────────────────────────────────────────────────────────────────────────────
func New(svc Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := validation.DecodeStudentCreate(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
		if err != nil {
			response.Fail(w, r, logger, err)
			return
		}

		st, err := svc.Create(r.Context(), in)
		if err != nil {
			response.Fail(w, r, logger, err)
			return
		}

		logger.InfoContext(r.Context(), "student created", slog.String("id", st.ID))
		_ = response.WriteJSON(w, http.StatusCreated, st)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT /students/{id} as a partial update: fields left out
// keep their value, birthDate/grade sent as null are cleared.
//
//	200 the updated student
//	400 invalid payload
//	404 no student with that id
// ─────────────────────────────────────────────────────────────────────────────
func Update(svc Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := validation.DecodeStudentUpdate(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
		if err != nil {
			response.Fail(w, r, logger, err)
			return
		}

		st, err := svc.Update(r.Context(), chi.URLParam(r, "id"), in)
		if err != nil {
			response.Fail(w, r, logger, err)
			return
		}
		_ = response.WriteJSON(w, http.StatusOK, st)
	}
}

// Delete handles DELETE /students/{id}: 204 on success, 404 when missing.
func Delete(svc Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := svc.Delete(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			response.Fail(w, r, logger, err)
			return
		}

		logger.InfoContext(r.Context(), "student deleted", slog.String("id", st.ID))
		response.NoContent(w)
	}
}

// positiveQueryInt reads an optional query parameter that must be >= 1.
func positiveQueryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, validation.Invalid(name, "must be a positive integer")
	}
	return n, nil
}
