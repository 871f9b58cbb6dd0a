package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/guidelinehq/guideline-api/internal/api"
	apiMiddleware "github.com/guidelinehq/guideline-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware) // Add trace IDs for improved error handling

	jobHandler := api.NewJobHandler(app.jobService)

	// Register routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/jobs", jobHandler.SubmitJob)
		r.Get("/jobs/{event_id}", jobHandler.GetJobStatus)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
