// Package policy turns an aggregate moderation verdict into a publication
// disposition. The decision is made exactly once, at submission time, over
// already-sanitized text; later transitions out of PENDING_REVIEW are
// administrator actions handled by the store, not by this package.
package policy

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/rgygrj9sjw-svg/Claims/internal/moderate"
)

// ErrInvalidTransition is returned for any status change other than
// PENDING_REVIEW to PUBLISHED or REJECTED.
var ErrInvalidTransition = errors.New("invalid status transition")

// Status is the publication state of a claim.
type Status string

const (
	// StatusPublished means the claim is publicly visible.
	StatusPublished Status = "PUBLISHED"
	// StatusPendingReview means the claim is held for an administrator.
	StatusPendingReview Status = "PENDING_REVIEW"
	// StatusRejected is reachable only through an explicit admin action.
	StatusRejected Status = "REJECTED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPublished, StatusPendingReview, StatusRejected:
		return true
	}
	return false
}

// Disposition is the routing decision for a submission: publish now, or hold
// with an advisory reason for the reviewing administrator. FlagReason is nil
// exactly when Status is PUBLISHED.
type Disposition struct {
	Status     Status  `json:"status"`
	FlagReason *string `json:"flag_reason"`
}

// Decide maps the aggregate verdict for a submission to its disposition.
func Decide(verdict moderate.Verdict) Disposition {
	if !verdict.RequiresReview {
		return Disposition{Status: StatusPublished}
	}

	reason := verdict.FlagReason
	log.Debug().
		Str("status", string(StatusPendingReview)).
		Str("flag_reason", reason).
		Int("flagged_terms", len(verdict.FlaggedTerms)).
		Msg("submission held for review")

	return Disposition{Status: StatusPendingReview, FlagReason: &reason}
}

// ValidateTransition checks an admin-driven status change. Only
// PENDING_REVIEW to PUBLISHED and PENDING_REVIEW to REJECTED are allowed; the
// intake decision itself never moves a claim out of a terminal state.
func ValidateTransition(from, to Status) error {
	if from == StatusPendingReview && (to == StatusPublished || to == StatusRejected) {
		return nil
	}
	return fmt.Errorf("%w %s -> %s", ErrInvalidTransition, from, to)
}
