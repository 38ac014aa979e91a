// Package app wires configuration, middleware and handlers into the HTTP
// surface of the service.
package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpserver "github.com/fairyhunter13/video-gen-api/internal/adapter/httpserver"
	"github.com/fairyhunter13/video-gen-api/internal/adapter/observability"
	"github.com/fairyhunter13/video-gen-api/internal/config"
	"github.com/fairyhunter13/video-gen-api/internal/domain"
)

// ParseOrigins splits a comma-separated origin list into a slice, trimming spaces.
// If the input is empty, returns ["*"].
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{"*"}
	}
	if s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	// Security & instrumentation middleware
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{
			"X-Request-ID",
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
			"X-RateLimit-Window",
			"X-RateLimit-Policy",
			"Retry-After",
		},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Per-user sliding window, applied before auth so the response carries
	// X-RateLimit-* headers even on auth failures of known keys.
	r.Use(httpserver.RateLimit(srv.Limiter, srv.Store, srv.Hub, cfg.RateLimitEnabled))

	// Versioned API
	r.Route(cfg.APIPrefix, func(api chi.Router) {
		// TimeoutHandler cannot wrap the websocket upgrade, so the
		// deadline applies to the REST surface only.
		api.Use(httpserver.TimeoutMiddleware(30 * time.Second))
		api.Use(httpserver.Authenticate(srv.Store))

		api.Group(func(gr chi.Router) {
			gr.Use(httpserver.RequireTier(domain.TierDeveloper))
			gr.Post("/generate", srv.Generate())
		})
		api.Group(func(gr chi.Router) {
			gr.Use(httpserver.RequireTier(domain.TierPro))
			gr.Post("/generate/batch", srv.BatchGenerate())
		})
		api.Get("/generate/models", srv.Models())

		api.Get("/jobs", srv.ListJobs())
		api.Get("/jobs/{jobID}", srv.GetJob())
		api.Delete("/jobs/{jobID}", srv.CancelJob())

		api.Get("/videos", srv.ListVideos())
		api.Get("/videos/{videoID}", srv.GetVideo())
		api.Get("/videos/{videoID}/stream", srv.StreamVideo())
		api.Delete("/videos/{videoID}", srv.DeleteVideo())

		api.Get("/account", srv.AccountInfo())
		api.Get("/account/usage", srv.AccountUsage())
		api.Get("/account/quota", srv.AccountQuota())
	})

	// Dashboard websocket, IP-limited since it is unauthenticated
	r.Group(func(wr chi.Router) {
		wr.Use(httprate.LimitByIP(cfg.DashboardRatePerMin, 1*time.Minute))
		wr.Get("/ws/dashboard", srv.Hub.ServeWS)
	})

	// Health, metrics and service discovery
	r.Get("/health", srv.Health())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) { promhttp.Handler().ServeHTTP(w, r) })
	r.Get("/", srv.Root())

	return httpserver.SecurityHeaders(r)
}
