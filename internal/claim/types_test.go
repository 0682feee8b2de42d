package claim

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSubmission() Submission {
	return Submission{
		Metadata: Metadata{
			State:           "TX",
			CarrierID:       "acme-mutual",
			PolicyType:      PolicyHomeowners,
			LossType:        LossWater,
			DateOfLossMonth: 6,
			DateOfLossYear:  2023,
			PropertyType:    "single family",
			Occupancy:       "owner occupied",
		},
		Timeline: []TimelineEvent{
			{
				Date:      time.Date(2023, 6, 2, 0, 0, 0, 0, time.UTC),
				EventType: EventReported,
				Notes:     "Reported the leak the morning after the storm.",
			},
			{
				Date:      time.Date(2023, 8, 15, 0, 0, 0, 0, time.UTC),
				EventType: EventPayment,
				Notes:     "Payment finally arrived.",
			},
		},
		Consent: Consent{
			AccuracyConfirmed: true,
			NoLegalAdvice:     true,
			TermsAccepted:     true,
		},
	}
}

func TestSubmissionValidate(t *testing.T) {
	payment := 1500.0
	negative := -10.0

	tests := []struct {
		name    string
		mutate  func(*Submission)
		wantErr string
	}{
		{
			name:   "valid submission",
			mutate: func(s *Submission) {},
		},
		{
			name:   "valid with payments",
			mutate: func(s *Submission) { s.Outcome.InitialPaymentAmount = &payment },
		},
		{
			name:    "unknown state",
			mutate:  func(s *Submission) { s.Metadata.State = "ZZ" },
			wantErr: "invalid state",
		},
		{
			name:    "lowercase state rejected",
			mutate:  func(s *Submission) { s.Metadata.State = "tx" },
			wantErr: "invalid state",
		},
		{
			name:    "missing carrier",
			mutate:  func(s *Submission) { s.Metadata.CarrierID = "" },
			wantErr: "carrier is required",
		},
		{
			name:    "unknown policy type",
			mutate:  func(s *Submission) { s.Metadata.PolicyType = "BOAT" },
			wantErr: "invalid policy type",
		},
		{
			name:    "unknown loss type",
			mutate:  func(s *Submission) { s.Metadata.LossType = "METEOR" },
			wantErr: "invalid loss type",
		},
		{
			name:    "month zero",
			mutate:  func(s *Submission) { s.Metadata.DateOfLossMonth = 0 },
			wantErr: "month must be 1-12",
		},
		{
			name:    "month thirteen",
			mutate:  func(s *Submission) { s.Metadata.DateOfLossMonth = 13 },
			wantErr: "month must be 1-12",
		},
		{
			name:    "year before floor",
			mutate:  func(s *Submission) { s.Metadata.DateOfLossYear = 1989 },
			wantErr: "year out of range",
		},
		{
			name:    "year in the future",
			mutate:  func(s *Submission) { s.Metadata.DateOfLossYear = time.Now().Year() + 1 },
			wantErr: "year out of range",
		},
		{
			name:    "empty timeline",
			mutate:  func(s *Submission) { s.Timeline = nil },
			wantErr: "at least one timeline event",
		},
		{
			name:    "timeline event without date",
			mutate:  func(s *Submission) { s.Timeline[0].Date = time.Time{} },
			wantErr: "date is required",
		},
		{
			name:    "timeline event with unknown type",
			mutate:  func(s *Submission) { s.Timeline[1].EventType = "LUNCH" },
			wantErr: "invalid event type",
		},
		{
			name:    "oversized note",
			mutate:  func(s *Submission) { s.Timeline[0].Notes = strings.Repeat("a", 2001) },
			wantErr: "notes must be under",
		},
		{
			name:    "negative initial payment",
			mutate:  func(s *Submission) { s.Outcome.InitialPaymentAmount = &negative },
			wantErr: "initial payment amount",
		},
		{
			name:    "negative final payment",
			mutate:  func(s *Submission) { s.Outcome.FinalPaymentAmount = &negative },
			wantErr: "final payment amount",
		},
		{
			name:    "missing accuracy consent",
			mutate:  func(s *Submission) { s.Consent.AccuracyConfirmed = false },
			wantErr: "confirm the information is accurate",
		},
		{
			name:    "missing legal advice acknowledgement",
			mutate:  func(s *Submission) { s.Consent.NoLegalAdvice = false },
			wantErr: "not legal advice",
		},
		{
			name:    "missing terms acceptance",
			mutate:  func(s *Submission) { s.Consent.TermsAccepted = false },
			wantErr: "accept the terms",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := validSubmission()
			tt.mutate(&sub)
			err := sub.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestTextFieldsOrder(t *testing.T) {
	sub := validSubmission()
	fields := sub.TextFields()

	require.Len(t, fields, 4)
	assert.Same(t, &sub.Metadata.PropertyType, fields[0])
	assert.Same(t, &sub.Metadata.Occupancy, fields[1])
	assert.Same(t, &sub.Timeline[0].Notes, fields[2])
	assert.Same(t, &sub.Timeline[1].Notes, fields[3])
}

func TestTextFieldsWritesThrough(t *testing.T) {
	sub := validSubmission()
	for _, f := range sub.TextFields() {
		*f = "cleared"
	}
	assert.Equal(t, "cleared", sub.Metadata.PropertyType)
	assert.Equal(t, "cleared", sub.Metadata.Occupancy)
	assert.Equal(t, "cleared", sub.Timeline[0].Notes)
	assert.Equal(t, "cleared", sub.Timeline[1].Notes)
}
