// Package api provides the HTTP API server for the Rewind service.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rewind-gg/rewind/internal/api/middleware"
)

const (
	healthCheckTimeout     = 2 * time.Second
	expectedURLParts       = 2
	contentTypeProblemJSON = "application/problem+json"

	// readinessProbeKey is the blob key the readiness probe stats. The key
	// never has to exist; only a transport fault marks the store unhealthy.
	readinessProbeKey = "health/readiness-probe"

	serviceName = "rewind"
)

// serviceVersion is overridden at build time via
// -ldflags "-X github.com/rewind-gg/rewind/internal/api.serviceVersion=...".
var serviceVersion = "v0.1.0"

// setupRoutes wires all HTTP routes for the API server.
func (s *Server) setupRoutes(mux *http.ServeMux) {
	// Public operational endpoints
	s.registerPublicRoutes(
		mux,
		Route{"GET /ping", s.handlePing},     // liveness probe
		Route{"GET /ready", s.handleReady},   // readiness probe, checks the recap store
		Route{"GET /health", s.handleHealth}, // status, uptime, version
		Route{"/", s.handleNotFound},         // catch-all handler for 404 responses
	)

	if s.deps.Metrics != nil {
		s.registerPublicRoutes(mux, Route{"GET /metrics", s.deps.Metrics.ServeHTTP})
	}

	// Protected endpoints
	mux.HandleFunc("POST /api/v1/recaps", s.handleCreateRecap)
}

// registerPublicRoutes registers HTTP routes that bypass authentication. It
// both mounts the handler on the mux and records the path in the
// middleware's public endpoint registry.
//
// Public routes are for operational endpoints only (probes, health, metrics).
// Never register a business endpoint here.
func (s *Server) registerPublicRoutes(mux *http.ServeMux, routes ...Route) {
	validHTTPMethods := map[string]bool{
		"GET":    true,
		"POST":   true,
		"PUT":    true,
		"PATCH":  true,
		"DELETE": true,
	}

	for _, route := range routes {
		mux.Handle(route.Pattern, route.Handler)

		// Go 1.22 mux patterns carry a method prefix ("GET /ping") but
		// r.URL.Path seen by the middleware is just "/ping", so strip the
		// method before registering the bypass.
		path := route.Pattern

		parts := strings.Fields(path)
		if len(parts) == expectedURLParts && validHTTPMethods[parts[0]] {
			path = strings.TrimSpace(parts[1])
		}

		if path == "" {
			s.logger.Warn("Malformed route pattern, ignoring route", slog.String("pattern", route.Pattern))

			continue
		}

		middleware.RegisterPublicEndpoint(path)
	}
}

// handlePing responds to liveness probes.
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	correlationID := middleware.GetCorrelationID(r.Context())

	w.Header().Set("Content-Type", "text/plain")
	w.Header().Set("X-Rewind-Version", serviceVersion)
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte("pong")); err != nil {
		s.logger.Error("Failed to write ping response",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)
	}
}

// handleReady responds to readiness probes by checking the recap document
// store.
//
// Response codes:
//   - 200 OK: the blob store answered the probe (found or not found)
//   - 503 Service Unavailable: the blob store is unreachable
//
// A 503 tells the orchestration layer to stop routing traffic to this
// instance until the store recovers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	correlationID := middleware.GetCorrelationID(r.Context())

	// Without a store there is nothing to check; report ready so the
	// server can run in degraded mode.
	if s.deps.BlobStore == nil {
		s.logger.Warn("Blob store not configured, readiness check disabled",
			slog.String("correlation_id", correlationID),
		)

		s.writeReady(w, correlationID)

		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if _, err := s.deps.BlobStore.Exists(ctx, readinessProbeKey); err != nil {
		s.logger.Error("Blob store health check failed",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusServiceUnavailable)

		if _, writeErr := w.Write([]byte("storage unavailable")); writeErr != nil {
			s.logger.Error("Failed to write unavailable response",
				slog.String("correlation_id", correlationID),
				slog.String("error", writeErr.Error()),
			)
		}

		return
	}

	s.writeReady(w, correlationID)
}

func (s *Server) writeReady(w http.ResponseWriter, correlationID string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte("ready")); err != nil {
		s.logger.Error("Failed to write ready response",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)
	}
}

// handleHealth returns status, uptime, and version as JSON.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	correlationID := middleware.GetCorrelationID(r.Context())

	var uptime string

	if !s.startTime.IsZero() {
		uptime = time.Since(s.startTime).Round(time.Second).String()
	}

	health := HealthStatus{
		Status:      "healthy",
		ServiceName: serviceName,
		Version:     serviceVersion,
		Uptime:      uptime,
	}

	data, err := json.Marshal(health)
	if err != nil {
		s.logger.Error("Failed to encode health response",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)

		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to encode health response"))

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Rewind-Version", serviceVersion)
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(data); err != nil {
		s.logger.Error("Failed to write health response",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)
	}
}

// handleNotFound returns RFC 7807 404 responses for unknown paths.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	WriteErrorResponse(w, r, s.logger, NotFound("The requested resource was not found"))
}

// hasJSONContentType checks whether the Content-Type header is JSON,
// allowing charset parameters ("application/json; charset=utf-8").
func hasJSONContentType(contentType string) bool {
	return strings.HasPrefix(strings.TrimSpace(contentType), "application/json")
}
