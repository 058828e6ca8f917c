// Package api provides the HTTP API server for the Rewind service.
package api

import (
	"net/http"

	"github.com/rewind-gg/rewind/internal/recap"
)

type (
	// RecapRequest is the body of POST /api/v1/recaps.
	RecapRequest struct {
		// Handle is the player's riot ID in "GameName#TAG" form.
		Handle string `json:"handle"`

		// Region is the player's region code (na, euw, kr, ...).
		Region string `json:"region"`

		// Period is the recap year as a 4-digit string.
		Period string `json:"period"`

		// Limit optionally bounds how many matches the recap considers.
		// Zero or omitted means the whole season.
		Limit int `json:"limit,omitempty"`
	}

	// RecapResponse is the success body: the resolved identity and the
	// recap document, untouched. correlation_id and timestamp are tracing
	// extensions.
	RecapResponse struct {
		Identifier    string          `json:"identifier"`
		Period        string          `json:"period"`
		Document      *recap.Document `json:"document"`
		CorrelationID string          `json:"correlation_id"`
		Timestamp     string          `json:"timestamp"`
	}

	// HealthStatus is the GET /health response.
	HealthStatus struct {
		Status      string `json:"status"`
		ServiceName string `json:"serviceName"`
		Version     string `json:"version"`
		Uptime      string `json:"uptime,omitempty"`
	}

	// Route pairs a mux pattern with its handler, so public routes can be
	// registered declaratively together with their auth bypass.
	Route struct {
		Pattern string
		Handler http.HandlerFunc
	}
)
