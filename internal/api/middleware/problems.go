// Package middleware provides the HTTP middleware chain for the Rewind API.
package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// writeProblem writes an RFC 7807 problem response without importing the api
// package, which would create an import cycle. The api package owns the full
// ProblemDetail type; middleware only ever emits auth, rate-limit, and panic
// problems.
func writeProblem(w http.ResponseWriter, r *http.Request, status int, detail, correlationID string) error {
	problem := map[string]any{
		"type":           fmt.Sprintf("https://rewind.gg/problems/%d", status),
		"title":          http.StatusText(status),
		"status":         status,
		"detail":         detail,
		"instance":       r.URL.Path,
		"correlation_id": correlationID,
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)

	return json.NewEncoder(w).Encode(problem)
}
