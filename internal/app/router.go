package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpserver "github.com/fairyhunter13/internship-recommender/internal/adapter/httpserver"
	"github.com/fairyhunter13/internship-recommender/internal/adapter/observability"
	"github.com/fairyhunter13/internship-recommender/internal/config"
)

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	// Security & instrumentation middleware
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Origins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id", "Location", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/v1/sessions", func(sr chi.Router) {
		sr.Group(func(g chi.Router) {
			g.Use(httpserver.TimeoutMiddleware(30 * time.Second))
			g.Get("/{id}", srv.GetSessionHandler())
			g.Put("/{id}/steps/{step}", srv.UpdateStepHandler())
			g.Post("/{id}/next", srv.NextStepHandler())
			g.Post("/{id}/back", srv.PrevStepHandler())
			g.Post("/{id}/reset", srv.ResetSessionHandler())
			g.Delete("/{id}", srv.DeleteSessionHandler())
		})
		// Rate limit endpoints that create work
		sr.Group(func(g chi.Router) {
			g.Use(httprate.LimitByIP(cfg.RateLimitPerMin, 1*time.Minute))
			g.With(httpserver.TimeoutMiddleware(30*time.Second)).Post("/", srv.CreateSessionHandler())
			g.With(httpserver.TimeoutMiddleware(60*time.Second)).Post("/{id}/resume", srv.ResumeUploadHandler())
			// Submit is bounded by the recommender timeouts, not a handler deadline.
			g.Post("/{id}/submit", srv.SubmitHandler())
		})
	})

	// Health and metrics
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) { promhttp.Handler().ServeHTTP(w, r) })
	r.Get("/readyz", srv.ReadyzHandler())

	return httpserver.SecurityHeaders(r)
}
