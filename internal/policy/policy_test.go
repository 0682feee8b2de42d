package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgygrj9sjw-svg/Claims/internal/moderate"
)

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusPublished.Valid())
	assert.True(t, StatusPendingReview.Valid())
	assert.True(t, StatusRejected.Valid())
	assert.False(t, Status("DRAFT").Valid())
	assert.False(t, Status("").Valid())
}

func TestDecide(t *testing.T) {
	t.Run("clean verdict publishes with nil reason", func(t *testing.T) {
		d := Decide(moderate.Verdict{Clean: true, FlaggedTerms: []string{}})
		assert.Equal(t, StatusPublished, d.Status)
		assert.Nil(t, d.FlagReason)
	})

	t.Run("flagged but no review still publishes", func(t *testing.T) {
		d := Decide(moderate.Verdict{FlaggedTerms: []string{"crook"}})
		assert.Equal(t, StatusPublished, d.Status)
		assert.Nil(t, d.FlagReason)
	})

	t.Run("review verdict holds with reason", func(t *testing.T) {
		d := Decide(moderate.Verdict{
			FlaggedTerms:   []string{"scam"},
			FlagReason:     "Potentially defamatory language: scam",
			RequiresReview: true,
		})
		assert.Equal(t, StatusPendingReview, d.Status)
		require.NotNil(t, d.FlagReason)
		assert.Equal(t, "Potentially defamatory language: scam", *d.FlagReason)
	})
}

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		wantErr  bool
	}{
		{StatusPendingReview, StatusPublished, false},
		{StatusPendingReview, StatusRejected, false},
		{StatusPublished, StatusRejected, true},
		{StatusPublished, StatusPendingReview, true},
		{StatusRejected, StatusPublished, true},
		{StatusRejected, StatusPendingReview, true},
		{StatusPendingReview, StatusPendingReview, true},
	}

	for _, tt := range tests {
		err := ValidateTransition(tt.from, tt.to)
		if tt.wantErr {
			require.Error(t, err, "%s -> %s", tt.from, tt.to)
			assert.ErrorIs(t, err, ErrInvalidTransition)
		} else {
			assert.NoError(t, err, "%s -> %s", tt.from, tt.to)
		}
	}
}
