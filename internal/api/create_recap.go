package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rewind-gg/rewind/internal/api/middleware"
	"github.com/rewind-gg/rewind/internal/dispatch"
	"github.com/rewind-gg/rewind/internal/pipeline"
	"github.com/rewind-gg/rewind/internal/recap"
	"github.com/rewind-gg/rewind/internal/riot"
)

// handleCreateRecap handles recap requests.
// POST /api/v1/recaps - Resolve a player handle, run the compute stages, and
// return the season recap document.
//
// Request validation (returns 4xx):
//   - 405 Method Not Allowed: only POST is allowed (handled by route pattern)
//   - 415 Unsupported Media Type: Content-Type must be application/json
//   - 413 Payload Too Large: request body exceeds MaxRequestSize
//   - 400 Bad Request: empty body, invalid JSON, or malformed
//     handle/region/period/limit
//
// Pipeline failures map by class, not by HTTP verb semantics:
//   - 400: the request itself was malformed (handle or period)
//   - 502: the Riot API or a compute stage failed
//   - 500: store faults, pipeline inconsistency, misconfiguration
//
// The request blocks until both stages finish, so callers should expect
// response times in minutes for a cold player/season pair.
func (s *Server) handleCreateRecap(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	correlationID := middleware.GetCorrelationID(r.Context())

	if !hasJSONContentType(r.Header.Get("Content-Type")) {
		WriteErrorResponse(w, r, s.logger, UnsupportedMediaType("Content-Type must be application/json"))

		return
	}

	req, problem := s.parseRecapRequest(r)
	if problem != nil {
		WriteErrorResponse(w, r, s.logger, problem)

		return
	}

	if problem := validateRecapRequest(req); problem != nil {
		WriteErrorResponse(w, r, s.logger, problem)

		return
	}

	result, err := s.deps.Recaps.Run(r.Context(), pipeline.Request{
		Handle: req.Handle,
		Region: req.Region,
		Period: req.Period,
		Limit:  req.Limit,
	})
	if err != nil {
		problem := mapPipelineError(err)

		s.logger.Warn("Recap request failed",
			slog.String("correlation_id", correlationID),
			slog.String("handle", req.Handle),
			slog.String("period", req.Period),
			slog.Int("status_code", problem.Status),
			slog.String("error", err.Error()),
		)

		WriteErrorResponse(w, r, s.logger, problem)

		return
	}

	response := &RecapResponse{
		Identifier:    result.PlayerID,
		Period:        result.Period,
		Document:      result.Document,
		CorrelationID: correlationID,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}

	statusCode := s.sendRecapResponse(w, r, response)

	s.logger.Info("Recap request completed",
		slog.String("correlation_id", correlationID),
		slog.String("identifier", result.PlayerID),
		slog.String("period", result.Period),
		slog.Bool("shared", result.Shared),
		slog.Int("status_code", statusCode),
		slog.Duration("duration", time.Since(startTime)),
	)
}

// parseRecapRequest parses the HTTP request body into a RecapRequest.
// Returns the parsed request or a ProblemDetail if parsing fails.
//
// Validates:
//   - Request size (fail fast for known oversized requests)
//   - Empty body check (better UX than a JSON decode error)
//   - JSON parsing
func (s *Server) parseRecapRequest(r *http.Request) (*RecapRequest, *ProblemDetail) {
	// Allow unknown sizes (-1); 0 is caught below with a specific message.
	if r.ContentLength > 0 && r.ContentLength > s.config.MaxRequestSize {
		return nil, PayloadTooLarge(
			fmt.Sprintf("Request body exceeds maximum size of %d bytes", s.config.MaxRequestSize),
		)
	}

	if r.ContentLength == 0 {
		return nil, BadRequest("Request body cannot be empty")
	}

	var req RecapRequest

	decoder := json.NewDecoder(io.LimitReader(r.Body, s.config.MaxRequestSize))
	if err := decoder.Decode(&req); err != nil {
		return nil, BadRequest("Invalid JSON: " + err.Error())
	}

	req.Handle = strings.TrimSpace(req.Handle)
	req.Region = strings.TrimSpace(req.Region)
	req.Period = strings.TrimSpace(req.Period)

	return &req, nil
}

// validateRecapRequest checks the request fields before any upstream work.
// The pipeline parses the handle again; validating here keeps obviously bad
// requests from consuming a resolve call and gives field-specific messages.
func validateRecapRequest(req *RecapRequest) *ProblemDetail {
	if req.Handle == "" {
		return BadRequest("handle is required")
	}

	if req.Region == "" {
		return BadRequest("region is required")
	}

	if _, err := riot.ParseHandle(req.Handle, req.Region); err != nil {
		return BadRequest(err.Error())
	}

	if _, err := recap.ParsePeriod(req.Period); err != nil {
		return BadRequest(err.Error())
	}

	if req.Limit < 0 {
		return BadRequest("limit cannot be negative")
	}

	return nil
}

// mapPipelineError translates a pipeline failure into an RFC 7807 problem.
//
// Classification goes by error identity, never by the lifecycle state that
// failed: a resolve step can fail on a malformed handle (the caller's fault)
// or on an upstream outage (not the caller's fault), and those must map to
// different status codes.
func mapPipelineError(err error) *ProblemDetail {
	// Prefer the cause over the lifecycle wrapper for client-visible detail.
	detail := err.Error()

	var perr *pipeline.Error
	if errors.As(err, &perr) && perr.Err != nil {
		detail = perr.Err.Error()
	}

	switch {
	case errors.Is(err, riot.ErrMalformedHandle), errors.Is(err, recap.ErrInvalidPeriod):
		return BadRequest(detail)
	case errors.Is(err, pipeline.ErrInconsistentState):
		return InternalServerError("The recap was computed but no document was stored")
	case errors.Is(err, riot.ErrMissingAPIKey):
		return InternalServerError("The service is not configured for identity resolution")
	}

	var upstream *riot.UpstreamError
	if errors.As(err, &upstream) {
		if upstream.Transport() {
			return BadGateway("The Riot API is unreachable")
		}

		return BadGateway(fmt.Sprintf("The Riot API rejected the lookup with status %d", upstream.Status))
	}

	var stage *dispatch.StageError
	if errors.As(err, &stage) {
		return BadGateway(fmt.Sprintf("The %s stage failed", stage.Stage))
	}

	var deser *recap.DeserializationError
	if errors.As(err, &deser) {
		return InternalServerError("The stored recap document could not be decoded")
	}

	return InternalServerError("The recap request failed unexpectedly")
}

// sendRecapResponse marshals and writes the success response. Returns the
// HTTP status code actually sent, for logging.
func (s *Server) sendRecapResponse(w http.ResponseWriter, r *http.Request, response *RecapResponse) int {
	// Marshal before writing headers so an encode failure can still
	// produce a clean error response.
	data, err := json.Marshal(response)
	if err != nil {
		s.logger.Error("Failed to marshal recap response",
			slog.String("correlation_id", response.CorrelationID),
			slog.String("error", err.Error()),
		)
		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to encode response"))

		return http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(data); err != nil {
		s.logger.Error("Failed to write recap response",
			slog.String("correlation_id", response.CorrelationID),
			slog.String("error", err.Error()),
		)
	}

	return http.StatusOK
}
