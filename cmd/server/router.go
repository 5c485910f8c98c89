package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mwhitlock/tasktrack-api/internal/api"
	apiMiddleware "github.com/mwhitlock/tasktrack-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware. It accepts the application dependencies to create handlers
// and register routes. Returns the configured router.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware) // Add trace IDs for improved error handling

	// Create API handlers using the application's services
	authHandler := api.NewAuthHandler(app.userService, app.jwtService)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	taskHandler := api.NewTaskHandler(
		app.taskService,
		app.userService,
		app.notifier,
		app.registry,
		app.logger,
	)
	stageHandler := api.NewStageHandler(app.stageService, app.registry)
	templateHandler := api.NewTemplateHandler(app.templateStore)
	analyticsHandler := api.NewAnalyticsHandler(app.analyticsService)

	// Register routes
	r.Route("/api", func(r chi.Router) {
		// Authentication endpoints (public)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			// Task endpoints
			r.Post("/tasks", taskHandler.CreateTask)
			r.Get("/tasks", taskHandler.ListTasks)
			r.Get("/tasks/{id}", taskHandler.GetTask)
			r.Put("/tasks/{id}", taskHandler.UpdateTask)
			r.Delete("/tasks/{id}", taskHandler.DeleteTask)
			r.Post("/tasks/{id}/notify", taskHandler.NotifyTask)

			// Stage endpoints
			r.Post("/tasks/{id}/stages", stageHandler.AddStage)
			r.Put("/stages/{id}", stageHandler.UpdateStage)
			r.Delete("/stages/{id}", stageHandler.DeleteStage)

			// Template endpoints
			r.Get("/templates", templateHandler.ListTemplates)
			r.Get("/templates/{id}", templateHandler.GetTemplate)

			// Analytics endpoints
			r.Get("/analytics/summary", analyticsHandler.Summary)
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("OK"))
		if err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
