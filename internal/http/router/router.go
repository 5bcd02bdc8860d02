// Package router assembles the chi router: global middleware, public
// routes, the rate-limited /auth group and the authenticated /students group.
package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/aanand-mishra/students-api/internal/http/handlers/auth"
	"github.com/aanand-mishra/students-api/internal/http/handlers/student"
	"github.com/aanand-mishra/students-api/internal/http/middleware"
	"github.com/aanand-mishra/students-api/internal/i18n"
	"github.com/aanand-mishra/students-api/internal/observability"
	"github.com/aanand-mishra/students-api/internal/utils/response"
)

// AuthService is what the /auth routes and the bearer check need.
type AuthService interface {
	auth.Service
	middleware.TokenVerifier
	SupportsLogout() bool
}

// Options configures New. Zero values disable the optional pieces:
// no CORS without origins, no rate limit when AuthRateLimit is 0,
// no /metrics without Metrics.
type Options struct {
	Logger             *slog.Logger
	Auth               AuthService
	Students           student.Service
	Metrics            *observability.Metrics
	AuthRateLimit      int
	CORSAllowedOrigins []string
	Production         bool
}

func New(opts Options) http.Handler {
	logger := opts.Logger

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(secureHeaders(opts.Production, logger))
	if len(opts.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Accept-Language", "Authorization", "Content-Type"},
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}))
	}
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Message(w, r, http.StatusNotFound, i18n.NotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Message(w, r, http.StatusMethodNotAllowed, i18n.MethodNotAllowed)
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		_ = response.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	authenticate := middleware.Authenticate(opts.Auth, logger)

	r.Route("/auth", func(r chi.Router) {
		if opts.AuthRateLimit > 0 {
			r.Use(httprate.Limit(opts.AuthRateLimit, time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					response.Message(w, r, http.StatusTooManyRequests, i18n.TooManyRequests)
				}),
			))
		}
		r.Post("/register", auth.Register(opts.Auth, logger))
		r.Post("/login", auth.Login(opts.Auth, logger))

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/me", auth.Me())
			if opts.Auth.SupportsLogout() {
				r.Post("/logout", auth.Logout(opts.Auth, logger))
			}
		})
	})

	r.Route("/students", func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/", student.List(opts.Students, logger))
		r.Post("/", student.New(opts.Students, logger))
		r.Get("/{id}", student.GetByID(opts.Students, logger))
		r.Put("/{id}", student.Update(opts.Students, logger))
		r.Delete("/{id}", student.Delete(opts.Students, logger))
	})

	return r
}

// secureHeaders sets the usual hardening headers on every response.
func secureHeaders(production bool, logger *slog.Logger) func(http.Handler) http.Handler {
	sm := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		STSSeconds:            15552000,
		STSIncludeSubdomains:  true,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         !production,
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := sm.Process(w, r); err != nil {
				logger.WarnContext(r.Context(), "secure headers blocked request", slog.Any("error", err))
				response.Message(w, r, http.StatusBadRequest, i18n.InvalidData)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
