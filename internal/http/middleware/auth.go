// Package middleware holds the HTTP middleware specific to this API.
// Generic pieces (request ids, real IP, rate limiting, secure headers)
// come from chi, httprate and unrolled/secure and are mounted by the router.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aanand-mishra/students-api/internal/i18n"
	"github.com/aanand-mishra/students-api/internal/types"
	"github.com/aanand-mishra/students-api/internal/utils/response"
)

// TokenVerifier turns a bearer token into the caller identity.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (types.Identity, error)
}

type identityKey struct{}

func ContextWithIdentity(ctx context.Context, id types.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored by Authenticate.
func IdentityFromContext(ctx context.Context) (types.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(types.Identity)
	return id, ok
}

const bearerPrefix = "Bearer "

// Authenticate rejects requests without a valid bearer token.
//
// A missing or non-Bearer Authorization header answers 401 "not
// authenticated"; a token that fails verification answers 401 "invalid or
// expired token". Verifier failures other than a bad token become 500.
func Authenticate(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, bearerPrefix) {
				response.Message(w, r, http.StatusUnauthorized, i18n.NotAuthenticated)
				return
			}

			id, err := verifier.Verify(r.Context(), header[len(bearerPrefix):])
			if err != nil {
				response.Fail(w, r, logger, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), id)))
		})
	}
}
