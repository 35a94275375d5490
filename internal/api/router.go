package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/ringclient-core/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Passphrase exchange (no auth required)
		r.Post("/auth/token", s.handleToken)

		// System metrics (no auth required for basic monitoring)
		r.Get("/metrics", s.handleMetrics)

		// WebSocket (auth via ticket, validated in handler)
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Group(func(r chi.Router) {
				r.Use(s.requireScope(auth.ScopeRead))

				r.Post("/auth/ws-ticket", s.handleWSTicket)

				r.Get("/collections", s.handleListCollections)
				r.Get("/collections/{handle}", s.handleGetCollection)

				r.Get("/contacts", s.handleListContacts)
				r.Get("/contacts/{uid}", s.handleGetContact)

				r.Get("/video/renderers", s.handleListRenderers)
				r.Get("/video/devices", s.handleListDevices)
			})

			r.Group(func(r chi.Router) {
				r.Use(s.requireScope(auth.ScopeControl))

				r.Post("/collections/save", s.handleSaveCollections)
				r.Post("/collections/load", s.handleLoadCollections)
				r.Put("/collections/{handle}/enabled", s.handleSetCollectionEnabled)
				r.Post("/collections/{handle}/reload", s.handleReloadCollection)

				r.Post("/contacts", s.handleCreateContact)

				r.Post("/video/preview/start", s.handleStartPreview)
				r.Post("/video/preview/stop", s.handleStopPreview)
				r.Put("/video/devices/active", s.handleSwitchDevice)
			})
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.app.HealthCheck(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":  "degraded",
			"version": s.version,
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
