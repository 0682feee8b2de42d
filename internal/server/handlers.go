package server

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/rgygrj9sjw-svg/Claims/internal/audit"
	"github.com/rgygrj9sjw-svg/Claims/internal/claim"
	"github.com/rgygrj9sjw-svg/Claims/internal/otel"
	"github.com/rgygrj9sjw-svg/Claims/internal/policy"
	"github.com/rgygrj9sjw-svg/Claims/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

// clientIP returns the remote IP without port, for rate-limit keying.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	}
	if r.URL.Query().Get("detail") == "true" {
		components := map[string]string{
			"claim_store": "ok",
			"pipeline":    "ok",
		}
		if s.auditStore == nil {
			components["audit_store"] = "disabled"
		} else {
			components["audit_store"] = "ok"
		}
		resp["components"] = components
	}
	writeJSON(w, http.StatusOK, resp)
}

type submitResponse struct {
	ClaimID string `json:"claim_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *Server) handleSubmitClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var sub claim.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if err := sub.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	start := time.Now()
	decision := s.pipeline.Process(ctx, &sub)

	stored, err := s.store.CreateClaim(ctx, &sub, decision.Disposition)
	if err != nil {
		log.Error().Err(err).Func(otel.LogTraceFields(ctx)).Msg("storing claim failed")
		writeError(w, http.StatusInternalServerError, "internal", "Failed to store claim")
		return
	}

	if s.auditStore != nil {
		rec := &audit.Record{
			ClaimID:       stored.ID,
			Status:        string(decision.Status),
			FlagReason:    decision.Verdict.FlagReason,
			FlaggedTerms:  decision.Verdict.FlaggedTerms,
			PIICategories: decision.PIICategories,
			DurationMS:    time.Since(start).Milliseconds(),
		}
		if err := s.auditStore.Append(ctx, rec); err != nil {
			// The claim is already persisted; losing the audit row is
			// log-worthy but must not fail the submission.
			log.Error().Err(err).Str("claim_id", stored.ID).Msg("audit append failed")
		}
	}

	log.Info().
		Str("claim_id", stored.ID).
		Str("status", string(decision.Status)).
		Bool("pii_detected", len(decision.PIICategories) > 0).
		Func(otel.LogTraceFields(ctx)).
		Msg("claim submitted")

	message := "Your claim has been published successfully."
	if decision.Status == policy.StatusPendingReview {
		message = "Your claim has been submitted and is pending review."
	}
	writeJSON(w, http.StatusCreated, submitResponse{
		ClaimID: stored.ID,
		Status:  string(decision.Status),
		Message: message,
	})
}

func (s *Server) handleListClaims(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.Filter{
		State:      q.Get("state"),
		CarrierID:  q.Get("carrier_id"),
		PolicyType: q.Get("policy_type"),
		LossType:   q.Get("loss_type"),
		SortBy:     q.Get("sort_by"),
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		f.Page = page
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		f.Limit = limit
	}

	page, err := s.store.ListPublished(r.Context(), f)
	if err != nil {
		log.Error().Err(err).Msg("listing claims failed")
		writeError(w, http.StatusInternalServerError, "internal", "Failed to list claims")
		return
	}

	// Held and rejected claims never reach this endpoint, so flag reasons
	// cannot leak; strip them anyway to keep the public shape minimal.
	for i := range page.Claims {
		page.Claims[i].FlagReason = nil
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleGetClaim(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c, err := s.store.GetClaim(r.Context(), id, true)
	if errors.Is(err, store.ErrClaimNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "Claim not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("claim_id", id).Msg("fetching claim failed")
		writeError(w, http.StatusInternalServerError, "internal", "Failed to fetch claim")
		return
	}

	if err := s.store.IncrementViewCount(r.Context(), id); err != nil {
		log.Warn().Err(err).Str("claim_id", id).Msg("view count update failed")
	}

	c.FlagReason = nil
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	claims, err := s.store.ListPendingReview(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("listing pending claims failed")
		writeError(w, http.StatusInternalServerError, "internal", "Failed to list pending claims")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"claims": claims,
		"total":  len(claims),
	})
}

func (s *Server) handlePublishClaim(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := s.store.PublishClaim(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrClaimNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Claim not found")
		return
	case errors.Is(err, policy.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
		return
	case err != nil:
		log.Error().Err(err).Str("claim_id", id).Msg("publishing claim failed")
		writeError(w, http.StatusInternalServerError, "internal", "Failed to publish claim")
		return
	}

	log.Info().Str("claim_id", id).Str("admin", AdminFromContext(r.Context())).Msg("claim published")
	writeJSON(w, http.StatusOK, map[string]string{"claim_id": id, "status": string(policy.StatusPublished)})
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleRejectClaim(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Reason) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "A rejection reason is required")
		return
	}

	err := s.store.RejectClaim(r.Context(), id, req.Reason)
	switch {
	case errors.Is(err, store.ErrClaimNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Claim not found")
		return
	case errors.Is(err, policy.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
		return
	case err != nil:
		log.Error().Err(err).Str("claim_id", id).Msg("rejecting claim failed")
		writeError(w, http.StatusInternalServerError, "internal", "Failed to reject claim")
		return
	}

	log.Info().Str("claim_id", id).Str("admin", AdminFromContext(r.Context())).Msg("claim rejected")
	writeJSON(w, http.StatusOK, map[string]string{"claim_id": id, "status": string(policy.StatusRejected)})
}

func (s *Server) handleDeleteClaim(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := s.store.DeleteClaim(r.Context(), id)
	if errors.Is(err, store.ErrClaimNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "Claim not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("claim_id", id).Msg("deleting claim failed")
		writeError(w, http.StatusInternalServerError, "internal", "Failed to delete claim")
		return
	}

	log.Info().Str("claim_id", id).Str("admin", AdminFromContext(r.Context())).Msg("claim deleted")
	w.WriteHeader(http.StatusNoContent)
}

// handlePIICheck re-runs detection (without substitution) over a stored
// claim's text fields. The stored text is already sanitized, so any hit here
// means a category slipped past redaction, a diagnostic for pattern tuning.
func (s *Server) handlePIICheck(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c, err := s.store.GetClaim(r.Context(), id, false)
	if errors.Is(err, store.ErrClaimNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "Claim not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("claim_id", id).Msg("fetching claim failed")
		writeError(w, http.StatusInternalServerError, "internal", "Failed to fetch claim")
		return
	}

	seen := make(map[string]bool)
	check := func(text string) {
		if has, types := s.scanner.ContainsPII(r.Context(), text); has {
			for _, t := range types {
				seen[t] = true
			}
		}
	}
	check(c.Metadata.PropertyType)
	check(c.Metadata.Occupancy)
	for _, ev := range c.Timeline {
		check(ev.Notes)
	}

	var types []string
	for _, rule := range s.scanner.Rules() {
		if seen[rule.Name] {
			types = append(types, rule.Name)
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"claim_id": id,
		"has_pii":  len(types) > 0,
		"types":    types,
	})
}

func (s *Server) handleClaimAudit(w http.ResponseWriter, r *http.Request) {
	if s.auditStore == nil {
		writeError(w, http.StatusNotFound, "not_found", "Audit store is disabled")
		return
	}
	id := chi.URLParam(r, "id")

	records, err := s.auditStore.ListByClaim(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("claim_id", id).Msg("listing audit records failed")
		writeError(w, http.StatusInternalServerError, "internal", "Failed to list audit records")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"claim_id": id,
		"records":  records,
	})
}
