package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/exercise-api/internal/api"
	apiMiddleware "github.com/phrazzld/exercise-api/internal/api/middleware"
	"github.com/phrazzld/exercise-api/internal/metrics"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))

	urls := api.NewURLBuilder(app.config.Server.PublicBaseURL)
	generationHandler := api.NewGenerationHandler(app.generationService, app.exportService, urls, app.clock, app.location, app.logger)
	downloadHandler := api.NewDownloadHandler(app.exportService, urls, app.clock, app.logger)
	statsHandler := api.NewStatsHandler(app.stats, app.logger)
	configHandler := api.NewConfigHandler(app.catalog)
	adminHandler := api.NewAdminHandler(app.sweeper, app.logger)

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)
	adminMiddleware := apiMiddleware.NewAdminMiddleware(app.config.Admin.APIKeyHash, app.passwordVerifier)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		// Generation endpoints
		r.Post("/generate", generationHandler.Generate)
		r.Get("/generations", generationHandler.ListGenerations)
		r.Route("/generation/{id}", func(r chi.Router) {
			r.Get("/", generationHandler.GetGeneration)
			r.Delete("/", generationHandler.DeleteGeneration)
			r.Get("/exercises", generationHandler.GetExercises)
			r.Put("/favorite", generationHandler.SetFavorite)
			r.Post("/export", generationHandler.Export)
		})

		// Download endpoints
		r.Get("/download/{id}", downloadHandler.Download)
		r.Get("/download/{id}/info", downloadHandler.Info)

		// Statistics endpoints
		r.Get("/statistics", statsHandler.Summary)
		r.Get("/statistics/daily", statsHandler.Daily)
		r.Get("/recommendation", statsHandler.Recommend)

		// Catalog endpoints
		r.Route("/config", func(r chi.Router) {
			r.Get("/subjects", configHandler.Subjects)
			r.Get("/grades", configHandler.Grades)
			r.Get("/question-types", configHandler.QuestionTypes)
			r.Get("/difficulty-levels", configHandler.DifficultyLevels)
			r.Get("/export-formats", configHandler.ExportFormats)
		})
	})

	// Admin endpoints authenticate with X-Admin-Key instead of a user token
	r.With(adminMiddleware.RequireAdminKey).Delete("/admin/cleanup", adminHandler.Cleanup)

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	r.Handle("/metrics", metrics.Handler())

	return r
}
