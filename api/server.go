/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request for tracing
  2. RealIP:        Client address from X-Forwarded-For / X-Real-IP
  3. RequestLogger: zap access log
  4. Recoverer:     Panic recovery (500 instead of crash)
  5. CORS:          Cross-origin requests for the calendar frontend

ROUTE GROUPS:
  /api/webhook          Messenger webhook (rate limited per client)
  /api/vacations/*      Calendar data
  /api/oracle/*         Extraction stats
  /api/admin/*          Admin operations
  /healthz              Liveness

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: RequestLogger, RateLimitByIP
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// RouterConfig holds router-level settings.
type RouterConfig struct {
	AllowedOrigins []string
	// WebhookRate is requests per second per client; zero disables limiting.
	WebhookRate  float64
	WebhookBurst int
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(h.Logger.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
	}))

	webhookLimit := func(next http.Handler) http.Handler { return next }
	if cfg.WebhookRate > 0 {
		webhookLimit = RateLimitByIP(rate.Limit(cfg.WebhookRate), cfg.WebhookBurst)
	}

	r.Get("/healthz", h.Health)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.With(webhookLimit).Post("/webhook", h.Webhook)

		// Vacation routes
		r.Route("/vacations", func(r chi.Router) {
			r.Get("/", h.ListVacations)
			r.Get("/summary", h.Summary)
			r.Get("/export", h.Export)
			r.Delete("/{id}", h.DeleteVacation)
		})

		r.Get("/oracle/stats", h.OracleStats)

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/seed", h.SeedDemo)
		})
	})

	return r
}
