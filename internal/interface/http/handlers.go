package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kiko-app/kiko-matching/internal/application/command"
	"github.com/kiko-app/kiko-matching/internal/application/query"
	"github.com/kiko-app/kiko-matching/internal/domain/matching"
	"github.com/kiko-app/kiko-matching/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROOT & HEALTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot handles the root endpoint.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "not_found", "Endpoint not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "kiko-matching",
		"status":  "running",
		"uptime":  s.Uptime().Round(time.Second).String(),
	})
}

// handleHealth returns the full health status of the service.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"healthy": true,
			"message": "No health checker configured",
		})
		return
	}

	status := s.deps.HealthChecker.Check(r.Context())

	httpStatus := http.StatusOK
	if !status.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, status)
}

// handleReady returns readiness status (for Kubernetes readiness probes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"ready": true})
		return
	}

	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Ready {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"ready":   false,
			"message": status.Message,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"ready": true})
}

// handleLive returns liveness status (for Kubernetes liveness probes).
// Liveness only proves the process answers; dependency state belongs to
// readiness.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"alive": true})
}

// ══════════════════════════════════════════════════════════════════════════════
// PROPOSAL HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetCurrentProposal returns the user's current proposal for a week.
//
//	GET /api/v1/users/{id}/proposal?week=2026-W07
//
// The week parameter is optional and defaults to the current week.
func (s *Server) handleGetCurrentProposal(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetCurrentProposalHandler == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "service_unavailable", "Proposal queries are not available")
		return
	}

	userID := r.PathValue("id")

	q := query.GetCurrentProposalQuery{
		UserID:  userID,
		WeekKey: matching.WeekKey(getQueryParam(r, "week", "")),
	}

	dto, err := s.deps.GetCurrentProposalHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	if dto == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"proposal": nil,
			"message":  "No proposal this week",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"proposal": dto})
}

// handleSecondChance reports whether a user qualifies for the Friday round.
//
//	GET /api/v1/users/{id}/second-chance?week=2026-W07
func (s *Server) handleSecondChance(w http.ResponseWriter, r *http.Request) {
	if s.deps.SecondChanceHandler == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "service_unavailable", "Eligibility queries are not available")
		return
	}

	userID := r.PathValue("id")
	week := matching.WeekKey(getQueryParam(r, "week", ""))
	if week == "" {
		week = matching.CurrentWeekKey()
	}

	q := query.SecondChanceEligibilityQuery{
		UserID:  userID,
		WeekKey: week,
	}

	dto, err := s.deps.SecondChanceHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto)
}

// respondRequest is the body of the respond endpoint.
type respondRequest struct {
	// UserID is the acting user. Must own the proposal.
	UserID string `json:"user_id"`

	// Action is "accept" or "reject".
	Action string `json:"action"`

	// Reason is an optional free-text rejection reason.
	Reason string `json:"reason,omitempty"`
}

// respondResponse is the body returned by the respond endpoint.
type respondResponse struct {
	Status     string `json:"status"`
	Mutual     bool   `json:"mutual"`
	ChannelRef string `json:"channel_ref,omitempty"`
	NoOp       bool   `json:"no_op,omitempty"`
}

// handleRespondToProposal accepts or rejects a proposal.
//
//	POST /api/v1/proposals/{id}/respond
//	{"user_id": "u-123", "action": "accept"}
//
// Repeating the same action on an already-answered proposal returns the
// current state with no_op=true instead of an error.
func (s *Server) handleRespondToProposal(w http.ResponseWriter, r *http.Request) {
	if s.deps.RespondHandler == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "service_unavailable", "Proposal responses are not available")
		return
	}

	proposalID := r.PathValue("id")

	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
		return
	}

	cmd := command.RespondToProposalCommand{
		ProposalID:   proposalID,
		ActingUserID: req.UserID,
		Action:       matching.ResponseAction(req.Action),
		Reason:       req.Reason,
	}

	result, err := s.deps.RespondHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, respondResponse{
		Status:     string(result.Status),
		Mutual:     result.Mutual,
		ChannelRef: result.ChannelRef,
		NoOp:       result.NoOp,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// triggerableJobs are the job names the admin endpoint may run.
var triggerableJobs = map[string]bool{
	"thursday_drop": true,
	"friday_drop":   true,
	"expire_sweep":  true,
}

// handleTriggerJob runs a scheduler job immediately.
//
//	POST /api/v1/admin/jobs/thursday_drop/run
//
// Re-running a drop is safe: generation is idempotent per user and round.
func (s *Server) handleTriggerJob(w http.ResponseWriter, r *http.Request) {
	if s.deps.TriggerJob == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "service_unavailable", "No scheduler attached to this process")
		return
	}

	name := r.PathValue("name")
	if !triggerableJobs[name] {
		writeJSONError(w, http.StatusNotFound, "unknown_job", "Unknown job name")
		return
	}

	s.logger.Info("admin job trigger",
		"job", name,
		"ip", getClientIP(r),
		"request_id", getRequestID(r.Context()),
	)

	if err := s.deps.TriggerJob(r.Context(), name); err != nil {
		writeJSONErrorWithDetails(w, http.StatusInternalServerError, "job_failed", "Job execution failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"job":       name,
		"triggered": true,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// writeDomainError maps domain errors to HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", "Resource not found")
	case shared.IsValidation(err):
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "validation_error", "Invalid request", err.Error())
	case shared.IsInvalidState(err):
		writeJSONErrorWithDetails(w, http.StatusConflict, "invalid_state", "Operation not allowed in the current state", err.Error())
	default:
		s.logger.Error("request failed",
			"error", err,
			"path", r.URL.Path,
			"request_id", getRequestID(r.Context()),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
