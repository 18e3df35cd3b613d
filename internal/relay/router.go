package relay

import (
	"net/http"

	"github.com/go-chi/chi/v5"
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

	// Locator and dashboard contract
	r.Post("/submit-data", s.handleSubmit)
	r.Get("/get-labour-data", s.handleLabourData)

	// Push channel for live map viewers
	r.Get(s.cfg.WebSocket.Path, s.handleWebSocket)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Route("/presence", func(r chi.Router) {
			r.Get("/", s.handleListPresence)
			r.Post("/", s.handleSubmit)
			r.Get("/{subjectID}", s.handleGetPresence)
		})

		r.Get("/rooms", s.handleListRooms)
	})

	return r
}
