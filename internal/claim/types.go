// Package claim defines the typed claim submission schema and the
// content-safety pipeline every submission passes through before persistence.
//
// The set of moderated free-text fields is an explicit, auditable contract:
// TextFields enumerates them in a fixed order rather than walking arbitrary
// nested values, so the fold over per-field verdicts is deterministic by
// construction.
package claim

import (
	"fmt"
	"time"
)

// PolicyType is the insurance policy category of a claim.
type PolicyType string

const (
	PolicyHomeowners PolicyType = "HO"
	PolicyRenters    PolicyType = "RENTERS"
	PolicyAuto       PolicyType = "AUTO"
	PolicyCommercial PolicyType = "COMMERCIAL"
)

// Valid reports whether p is a known policy type.
func (p PolicyType) Valid() bool {
	switch p {
	case PolicyHomeowners, PolicyRenters, PolicyAuto, PolicyCommercial:
		return true
	}
	return false
}

// LossType is the cause-of-loss category.
type LossType string

const (
	LossWater     LossType = "WATER"
	LossFire      LossType = "FIRE"
	LossWind      LossType = "WIND"
	LossHail      LossType = "HAIL"
	LossTheft     LossType = "THEFT"
	LossLiability LossType = "LIABILITY"
	LossOther     LossType = "OTHER"
)

// Valid reports whether l is a known loss type.
func (l LossType) Valid() bool {
	switch l {
	case LossWater, LossFire, LossWind, LossHail, LossTheft, LossLiability, LossOther:
		return true
	}
	return false
}

// EventType categorizes a timeline event.
type EventType string

const (
	EventReported     EventType = "REPORTED"
	EventFirstContact EventType = "FIRST_CONTACT"
	EventInspection   EventType = "INSPECTION"
	EventDenial       EventType = "DENIAL"
	EventPayment      EventType = "PAYMENT"
	EventReopened     EventType = "REOPENED"
	EventAppraisal    EventType = "APPRAISAL"
	EventLitigation   EventType = "LITIGATION"
	EventOther        EventType = "OTHER"
)

// Valid reports whether e is a known event type.
func (e EventType) Valid() bool {
	switch e {
	case EventReported, EventFirstContact, EventInspection, EventDenial,
		EventPayment, EventReopened, EventAppraisal, EventLitigation, EventOther:
		return true
	}
	return false
}

// usStates covers the 50 states plus DC.
var usStates = map[string]bool{
	"AL": true, "AK": true, "AZ": true, "AR": true, "CA": true, "CO": true,
	"CT": true, "DE": true, "FL": true, "GA": true, "HI": true, "ID": true,
	"IL": true, "IN": true, "IA": true, "KS": true, "KY": true, "LA": true,
	"ME": true, "MD": true, "MA": true, "MI": true, "MN": true, "MS": true,
	"MO": true, "MT": true, "NE": true, "NV": true, "NH": true, "NJ": true,
	"NM": true, "NY": true, "NC": true, "ND": true, "OH": true, "OK": true,
	"OR": true, "PA": true, "RI": true, "SC": true, "SD": true, "TN": true,
	"TX": true, "UT": true, "VT": true, "VA": true, "WA": true, "WV": true,
	"WI": true, "WY": true, "DC": true,
}

// maxNoteLength bounds a single timeline note.
const maxNoteLength = 2000

// minLossYear is the earliest accepted date-of-loss year.
const minLossYear = 1990

// Metadata holds the structured facts of a claim. PropertyType and Occupancy
// are operator-defined free text and therefore pass through the pipeline.
type Metadata struct {
	State           string     `json:"state"`
	CarrierID       string     `json:"carrier_id"`
	PolicyType      PolicyType `json:"policy_type"`
	LossType        LossType   `json:"loss_type"`
	DateOfLossMonth int        `json:"date_of_loss_month"`
	DateOfLossYear  int        `json:"date_of_loss_year"`
	PropertyType    string     `json:"property_type,omitempty"`
	Occupancy       string     `json:"occupancy,omitempty"`
	MitigationDone  bool       `json:"mitigation_done"`
}

// TimelineEvent is one dated step in the claim's history. Notes is the only
// unconstrained free text a user supplies and is always stored in sanitized
// form.
type TimelineEvent struct {
	Date      time.Time `json:"date"`
	EventType EventType `json:"event_type"`
	Notes     string    `json:"notes,omitempty"`
}

// Outcome records how the claim resolved.
type Outcome struct {
	InitialPaymentAmount *float64 `json:"initial_payment_amount,omitempty"`
	FinalPaymentAmount   *float64 `json:"final_payment_amount,omitempty"`
	DeniedFlag           bool     `json:"denied_flag"`
	PartialFlag          bool     `json:"partial_flag"`
	AppraisalFlag        bool     `json:"appraisal_flag"`
	LitigationFlag       bool     `json:"litigation_flag"`
}

// Consent captures the three acknowledgements required before submission.
type Consent struct {
	AccuracyConfirmed bool `json:"accuracy_confirmed"`
	NoLegalAdvice     bool `json:"no_legal_advice"`
	TermsAccepted     bool `json:"terms_accepted"`
}

// Submission is a full claim as received from a user, before sanitization.
type Submission struct {
	Metadata Metadata        `json:"metadata"`
	Timeline []TimelineEvent `json:"timeline"`
	Outcome  Outcome         `json:"outcome"`
	Consent  Consent         `json:"consent"`
}

// Validate checks structural constraints. It deliberately knows nothing about
// content safety; a submission that validates still goes through the full
// pipeline.
func (s *Submission) Validate() error {
	if !usStates[s.Metadata.State] {
		return fmt.Errorf("invalid state %q", s.Metadata.State)
	}
	if s.Metadata.CarrierID == "" {
		return fmt.Errorf("carrier is required")
	}
	if !s.Metadata.PolicyType.Valid() {
		return fmt.Errorf("invalid policy type %q", s.Metadata.PolicyType)
	}
	if !s.Metadata.LossType.Valid() {
		return fmt.Errorf("invalid loss type %q", s.Metadata.LossType)
	}
	if s.Metadata.DateOfLossMonth < 1 || s.Metadata.DateOfLossMonth > 12 {
		return fmt.Errorf("date of loss month must be 1-12, got %d", s.Metadata.DateOfLossMonth)
	}
	if year := s.Metadata.DateOfLossYear; year < minLossYear || year > time.Now().Year() {
		return fmt.Errorf("date of loss year out of range: %d", year)
	}
	if len(s.Timeline) == 0 {
		return fmt.Errorf("at least one timeline event is required")
	}
	for i, ev := range s.Timeline {
		if ev.Date.IsZero() {
			return fmt.Errorf("timeline event %d: date is required", i)
		}
		if !ev.EventType.Valid() {
			return fmt.Errorf("timeline event %d: invalid event type %q", i, ev.EventType)
		}
		if len(ev.Notes) > maxNoteLength {
			return fmt.Errorf("timeline event %d: notes must be under %d characters", i, maxNoteLength)
		}
	}
	if p := s.Outcome.InitialPaymentAmount; p != nil && *p < 0 {
		return fmt.Errorf("initial payment amount must not be negative")
	}
	if p := s.Outcome.FinalPaymentAmount; p != nil && *p < 0 {
		return fmt.Errorf("final payment amount must not be negative")
	}
	if !s.Consent.AccuracyConfirmed {
		return fmt.Errorf("you must confirm the information is accurate")
	}
	if !s.Consent.NoLegalAdvice {
		return fmt.Errorf("you must acknowledge this is not legal advice")
	}
	if !s.Consent.TermsAccepted {
		return fmt.Errorf("you must accept the terms of service")
	}
	return nil
}

// TextFields returns pointers to every user-supplied free-text field, in the
// fixed order the pipeline visits them: metadata property type, metadata
// occupancy, then each timeline event's notes in index order. This list IS
// the contract for what gets sanitized and moderated; a new free-text field
// is not covered until it is added here.
func (s *Submission) TextFields() []*string {
	fields := make([]*string, 0, 2+len(s.Timeline))
	fields = append(fields, &s.Metadata.PropertyType, &s.Metadata.Occupancy)
	for i := range s.Timeline {
		fields = append(fields, &s.Timeline[i].Notes)
	}
	return fields
}
