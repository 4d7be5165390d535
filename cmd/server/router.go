package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Webhook endpoints
	r.Post("/telegram/webhook", app.telegramWebhook.Handle)
	r.Post("/wazzup/webhook", app.wazzupHandler.HandleWebhook)

	// Browsing and administration endpoints
	r.Route("/api", func(r chi.Router) {
		r.Get("/tasks", app.taskHandler.ListTasks)
		r.Get("/tasks/{id}", app.taskHandler.GetTask)
		r.Get("/sources", app.sourceHandler.ListSources)
		r.Post("/sources", app.sourceHandler.CreateSource)
		r.Get("/stats", app.statsHandler.GetStats)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
