package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vidfetch/vidfetch/internal/api/handler"
	mw "github.com/vidfetch/vidfetch/internal/api/middleware"
)

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(
	downloadHandler *handler.DownloadHandler,
	healthHandler *handler.HealthHandler,
	uiHandler *handler.UIHandler,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	// Downloads block until the engine finishes, so the request timeout has
	// to outlast the engine timeout.
	r.Use(middleware.Timeout(15 * time.Minute))

	// Health endpoints
	r.Get("/health", healthHandler.Live)
	r.Get("/ready", healthHandler.Ready)

	// Web UI
	r.Get("/", uiHandler.Index)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/downloads", downloadHandler.Submit)
		r.Get("/downloads", downloadHandler.List)
		r.Get("/downloads/{downloadID}/file", downloadHandler.ServeFile)
	})

	return r
}
