package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/netquest-hub/netquest-hub/internal/application/command"
	"github.com/netquest-hub/netquest-hub/internal/application/query"
	"github.com/netquest-hub/netquest-hub/internal/domain/progression"
	"github.com/netquest-hub/netquest-hub/internal/domain/shared"
	"github.com/netquest-hub/netquest-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST DTOs
// ══════════════════════════════════════════════════════════════════════════════

// applyResultRequest is the body of POST /api/v1/results.
type applyResultRequest struct {
	UserID      string    `json:"user_id"`
	GameType    string    `json:"game_type"`
	Score       int       `json:"score"`
	TimeSpentMS int64     `json:"time_spent_ms"`
	Accuracy    *float64  `json:"accuracy,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// recordLoginRequest is the body of POST /api/v1/logins.
type recordLoginRequest struct {
	UserID string `json:"user_id"`
}

// ══════════════════════════════════════════════════════════════════════════════
// COMMAND ENDPOINTS
// ══════════════════════════════════════════════════════════════════════════════

// handleApplyGameResult handles POST /api/v1/results.
func (s *Server) handleApplyGameResult(w http.ResponseWriter, r *http.Request) {
	if s.deps.ApplyGameResultHandler == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "not_configured", "Command handler not available")
		return
	}

	var req applyResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
		return
	}

	// Absent accuracy means "not reported", encoded as a negative value.
	accuracy := -1.0
	if req.Accuracy != nil {
		accuracy = *req.Accuracy
	}
	completedAt := req.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now().UTC()
	}

	cmd := command.ApplyGameResultCommand{
		UserID: req.UserID,
		Result: progression.GameResult{
			GameType:    progression.GameType(req.GameType),
			Score:       req.Score,
			TimeSpent:   time.Duration(req.TimeSpentMS) * time.Millisecond,
			Accuracy:    accuracy,
			CompletedAt: completedAt,
		},
		CorrelationID: getRequestID(r.Context()),
	}

	result, err := s.deps.ApplyGameResultHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleRecordLogin handles POST /api/v1/logins.
func (s *Server) handleRecordLogin(w http.ResponseWriter, r *http.Request) {
	if s.deps.RecordLoginHandler == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "not_configured", "Command handler not available")
		return
	}

	var req recordLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
		return
	}

	cmd := command.RecordLoginCommand{
		UserID:        req.UserID,
		CorrelationID: getRequestID(r.Context()),
	}

	result, err := s.deps.RecordLoginHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// QUERY ENDPOINTS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetLeaderboard handles GET /api/v1/leaderboard.
// Query params: sort (xp|streak|level), page, limit.
func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetLeaderboardHandler == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "not_configured", "Query handler not available")
		return
	}

	q := query.GetLeaderboardQuery{
		SortKey: getQueryParam(r, "sort", ""),
		Page:    getQueryParamInt(r, "page", 0),
		Limit:   getQueryParamInt(r, "limit", 0),
	}

	result, err := s.deps.GetLeaderboardHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetProgress handles GET /api/v1/users/{id}/progress.
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetProgressHandler == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "not_configured", "Query handler not available")
		return
	}

	q := query.GetProgressQuery{
		UserID:       r.PathValue("id"),
		HistoryLimit: getQueryParamInt(r, "history_limit", 0),
	}

	result, err := s.deps.GetProgressHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetNeighbors handles GET /api/v1/users/{id}/neighbors.
// Query params: sort (xp|streak|level), radius.
func (s *Server) handleGetNeighbors(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetNeighborsHandler == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "not_configured", "Query handler not available")
		return
	}

	q := query.GetNeighborsQuery{
		UserID:  r.PathValue("id"),
		SortKey: getQueryParam(r, "sort", ""),
		Radius:  getQueryParamInt(r, "radius", 0),
	}

	result, err := s.deps.GetNeighborsHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS ENDPOINTS
// ══════════════════════════════════════════════════════════════════════════════

// healthResponse is the body of GET /health.
type healthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	CheckedAt time.Time         `json:"checked_at"`
}

// handleHealth handles GET /health: pings every configured dependency.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Checks:    make(map[string]string, len(s.deps.HealthCheckers)),
		CheckedAt: time.Now().UTC(),
	}

	status := http.StatusOK
	for name, checker := range s.deps.HealthCheckers {
		if checker == nil {
			continue
		}
		if err := checker.Ping(r.Context()); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		} else {
			resp.Checks[name] = "ok"
		}
	}

	writeJSON(w, status, resp)
}

// handleLive handles GET /live: the process is up.
func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// handleRoot handles GET /.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "not_found", "Unknown endpoint")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "netquest-hub",
		"api":     "/api/v1",
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// writeDomainError maps domain errors to HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case shared.IsConflict(err):
		writeJSONError(w, http.StatusConflict, "conflict", "Concurrent update, please retry")
	case errors.Is(err, shared.ErrServiceUnavailable):
		writeJSONError(w, http.StatusServiceUnavailable, "service_unavailable", "Backing store unavailable")
	default:
		s.log.Error("unhandled error",
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
			logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
