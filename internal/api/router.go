package api

import (
	"context"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware())
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// No auth required
		r.Get("/health", s.handleHealth)
		r.Get("/device-types", s.handleListDeviceTypes)

		// Push channel (auth via the first socket message)
		r.Get("/ws", s.hub.ServeWS)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Route("/devices", func(r chi.Router) {
				r.Get("/", s.handleListDevices)
				r.Post("/", s.handleBindDevice)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetDevice)
					r.Patch("/", s.handleRenameDevice)
					r.Delete("/", s.handleReleaseDevice)
					r.Get("/latest", s.handleLatest)
					r.Put("/settings", s.handleUpdateSettings)
				})
			})
		})
	})

	return r
}

// handleHealth reports the server and dependency status.
// Any failing dependency turns the response into 503 "degraded".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	components := make(map[string]string, len(names))
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := s.checks[name].HealthCheck(ctx)
		cancel()
		if err != nil {
			components[name] = err.Error()
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	body := map[string]any{
		"status":      status,
		"version":     s.version,
		"components":  components,
		"connections": s.hub.ConnectionCount(),
		"cached":      s.service.CachedDevices(),
	}
	if s.ingest != nil {
		body["ingest"] = s.ingest.Stats()
	}
	if s.supervisor != nil {
		body["tasks"] = s.supervisor.Stats()
	}
	writeData(w, httpStatus, body)
}
