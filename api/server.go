/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address from X-Forwarded-For / X-Real-IP
  3. Logger:     One slog line per request (requestLogger)
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for the admin and public frontends

ROUTE GROUPS:
  /health               Liveness, no auth
  /api/events/*         Event listing (user) and mutation (admin)
  /api/registrations    Sign-up (user), listing (admin)
  /api/me               Current user
  /api/analytics/*      Admin dashboard
  /api/admin/*          Audit runs
  /api/scenarios/*      Demo data (admin)

AUTHENTICATION:
  Every /api route requires a bearer token (RequireUser). Admin routes
  additionally require the admin role (RequireAdmin).

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: token verification
  - cmd/server/main.go: Server startup
*/
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Users          UserProvider
	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", h.Health)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(RequireUser(opts.Users))

		r.Get("/me", h.Me)

		// Event routes
		r.Route("/events", func(r chi.Router) {
			r.Get("/", h.ListEvents)
			r.Get("/range", h.ListEventsInRange)

			r.Group(func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Get("/planning", h.ListPlanning)
				r.Post("/", h.SubmitEvent)
				r.Post("/confirm", h.ConfirmEvent)
				r.Delete("/", h.DeleteEvent)
			})
		})

		// Registration routes
		r.Route("/registrations", func(r chi.Router) {
			r.Post("/", h.Register)
			r.With(RequireAdmin).Get("/", h.ListRegistrations)
		})

		// Analytics routes
		r.Route("/analytics", func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Get("/events", h.EventAnalytics)
			r.Get("/utilization", h.Utilization)
			r.Get("/risk", h.Risk)
			r.Get("/budget", h.Budget)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Get("/audit", h.GetAudit)
			r.Post("/audit/run", h.RunAudit)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetScenario)
		})
	})

	return r
}

// requestLogger logs method, path, status, duration and request ID.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("http request",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", ww.Status()),
					slog.Int("bytes", ww.BytesWritten()),
					slog.Duration("duration", time.Since(start)),
					slog.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
