package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/ctxvault/internal/common"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

// Handler builds the router with the full middleware stack.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.observe)
	r.Use(chimw.Recoverer)
	if s.config.RequestTimeout > 0 {
		r.Use(chimw.Timeout(s.config.RequestTimeout))
	}
	if s.config.RateLimitPerMinute > 0 {
		r.Use(httprate.LimitByIP(s.config.RateLimitPerMinute, time.Minute))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{common.AuthorizationHeaderName, "Content-Type", common.DeviceIDHeaderName, chimw.RequestIDHeader},
		ExposedHeaders: []string{chimw.RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/cron/retention", s.handleRetention)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/session", s.handleAdminSession)
			r.Group(func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Post("/tokens", s.handleCreateToken)
				r.Get("/tokens", s.handleListTokens)
				r.Delete("/tokens/{id}", s.handleRevokeToken)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Post("/screenshots", s.handleUploadScreenshot)
			r.Get("/screenshots", s.handleListScreenshots)

			r.Post("/jobs", s.handleEnqueueJob)
			r.Get("/jobs", s.handleListJobs)
			r.Post("/jobs/claim", s.handleClaimJob)
			r.Post("/jobs/{id}/complete", s.handleCompleteJob)

			r.Get("/activity", s.handleListActivity)

			r.Post("/{kind}", s.handleSync)
			r.Get("/{kind}", s.handleRead)
		})
	})

	return r
}
