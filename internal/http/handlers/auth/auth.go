// Package auth contains the HTTP handlers under /auth.
package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/students-api/internal/http/middleware"
	"github.com/aanand-mishra/students-api/internal/i18n"
	"github.com/aanand-mishra/students-api/internal/types"
	"github.com/aanand-mishra/students-api/internal/utils/response"
	"github.com/aanand-mishra/students-api/internal/validation"
)

const maxBodyBytes = 1 << 20

// Service is the subset of service.AuthService the handlers use.
type Service interface {
	Register(ctx context.Context, in types.RegisterInput) (types.AuthResult, error)
	Login(ctx context.Context, in types.LoginInput) (types.AuthResult, error)
	Logout(ctx context.Context, id types.Identity) error
}

// Register handles POST /auth/register.
//
//	201 { "token": "...", "user": { "id", "email", "name" } }
//	400 invalid payload or email already registered
func Register(svc Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := validation.DecodeRegister(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			response.Fail(w, r, logger, err)
			return
		}

		res, err := svc.Register(r.Context(), in)
		if err != nil {
			response.Fail(w, r, logger, err)
			return
		}
		_ = response.WriteJSON(w, http.StatusCreated, res)
	}
}

// Login handles POST /auth/login.
//
//	200 { "token": "...", "user": { ... } }
//	400 invalid payload
//	401 unknown email or wrong password, same body for both
func Login(svc Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := validation.DecodeLogin(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			response.Fail(w, r, logger, err)
			return
		}

		res, err := svc.Login(r.Context(), in)
		if err != nil {
			response.Fail(w, r, logger, err)
			return
		}
		_ = response.WriteJSON(w, http.StatusOK, res)
	}
}

// Me handles GET /auth/me and echoes the identity carried by the token.
func Me() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			response.Message(w, r, http.StatusUnauthorized, i18n.NotAuthenticated)
			return
		}
		_ = response.WriteJSON(w, http.StatusOK, id)
	}
}

// Logout handles POST /auth/logout by revoking the presented token.
func Logout(svc Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			response.Message(w, r, http.StatusUnauthorized, i18n.NotAuthenticated)
			return
		}
		if err := svc.Logout(r.Context(), id); err != nil {
			response.Fail(w, r, logger, err)
			return
		}
		response.NoContent(w)
	}
}
