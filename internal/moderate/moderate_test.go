package moderate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModerate(t *testing.T) {
	mod := MustNewModerator()
	ctx := context.Background()

	tests := []struct {
		name       string
		text       string
		wantClean  bool
		wantReview bool
		wantTerms  []string
		wantReason string
	}{
		{
			name:      "empty text",
			text:      "",
			wantClean: true,
			wantTerms: []string{},
		},
		{
			name:      "whitespace only",
			text:      "   \n\t  ",
			wantClean: true,
			wantTerms: []string{},
		},
		{
			name:      "clean narrative",
			text:      "The claim took three months but the payout covered the roof repair.",
			wantClean: true,
		},
		{
			name:       "profanity with trailing punctuation",
			text:       "This whole process was bullshit!",
			wantReview: true,
			wantTerms:  []string{"bullshit"},
			wantReason: "Profanity detected: bullshit",
		},
		{
			name:       "profanity matches whole tokens only",
			text:       "The assessment and classic repairs went fine",
			wantClean:  true,
			wantReview: false,
		},
		{
			name:       "accusatory keyword",
			text:       "This company is a total scam",
			wantReview: true,
			wantTerms:  []string{"scam"},
			wantReason: "Potentially defamatory language: scam",
		},
		{
			name:       "accusatory with committed",
			text:       "They committed outright fraud on my claim",
			wantReview: true,
			wantReason: "Potentially defamatory language: fraud",
		},
		{
			name:       "single keyword without context is flagged but not held",
			text:       "That crook never called back.",
			wantClean:  false,
			wantReview: false,
			wantTerms:  []string{"crook"},
			wantReason: "",
		},
		{
			name:       "multiple keywords trigger review without context",
			text:       "They handled everything fraudulently.",
			wantReview: true,
			wantTerms:  []string{"fraud", "fraudulent"},
			wantReason: "Multiple sensitive keywords: fraud, fraudulent",
		},
		{
			name:       "profanity and accusatory reasons are joined",
			text:       "This shitty adjuster is a fraud",
			wantReview: true,
			wantTerms:  []string{"shitty", "fraud"},
			wantReason: "Profanity detected: shitty; Potentially defamatory language: fraud",
		},
		{
			name:       "keyword fallback is suppressed when profanity already holds",
			text:       "Damn them and their stealing everywhere",
			wantReview: true,
			wantTerms:  []string{"damn", "steal", "stealing"},
			wantReason: "Profanity detected: damn",
		},
		{
			name:       "context before keyword only counts in that order",
			text:       "The fraud unit is a department",
			wantClean:  false,
			wantReview: false,
			wantTerms:  []string{"fraud"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := mod.Moderate(ctx, tt.text)
			assert.Equal(t, tt.wantClean, v.Clean)
			assert.Equal(t, tt.wantReview, v.RequiresReview)
			if tt.wantTerms != nil {
				assert.Equal(t, tt.wantTerms, v.FlaggedTerms)
			}
			if tt.wantReason != "" || tt.wantReview == false {
				assert.Equal(t, tt.wantReason, v.FlagReason)
			}
		})
	}
}

func TestModerateRepeatedProfanityListedOnce(t *testing.T) {
	mod := MustNewModerator()

	v := mod.Moderate(context.Background(), "crap crap CRAP everywhere")
	assert.Equal(t, []string{"crap"}, v.FlaggedTerms)
	assert.Equal(t, "Profanity detected: crap", v.FlagReason)
}

func TestModerateThresholdOverride(t *testing.T) {
	mod := MustNewModerator(WithKeywordReviewThreshold(3))

	// Two distinct keywords, no accusatory context: below the raised bar.
	v := mod.Moderate(context.Background(), "They handled everything fraudulently.")
	assert.False(t, v.RequiresReview)
	assert.Equal(t, []string{"fraud", "fraudulent"}, v.FlaggedTerms)
	assert.Empty(t, v.FlagReason)
}

func TestModerateExtraWordLists(t *testing.T) {
	mod := MustNewModerator(
		WithExtraProfanity([]string{"dagnabbit"}),
		WithExtraKeywords([]string{"grifter"}),
	)
	ctx := context.Background()

	v := mod.Moderate(ctx, "Dagnabbit, the delays!")
	assert.True(t, v.RequiresReview)
	assert.Equal(t, []string{"dagnabbit"}, v.FlaggedTerms)

	v = mod.Moderate(ctx, "The agent is a grifter")
	assert.True(t, v.RequiresReview)
	assert.Equal(t, "Potentially defamatory language: grifter", v.FlagReason)
}

func TestFold(t *testing.T) {
	tests := []struct {
		name     string
		verdicts []Verdict
		want     Verdict
	}{
		{
			name:     "no verdicts",
			verdicts: nil,
			want:     Verdict{Clean: true, FlaggedTerms: []string{}},
		},
		{
			name: "all clean",
			verdicts: []Verdict{
				{Clean: true, FlaggedTerms: []string{}},
				{Clean: true, FlaggedTerms: []string{}},
			},
			want: Verdict{Clean: true, FlaggedTerms: []string{}},
		},
		{
			name: "union with dedupe and joined reasons",
			verdicts: []Verdict{
				{FlaggedTerms: []string{"scam"}, FlagReason: "Potentially defamatory language: scam", RequiresReview: true},
				{Clean: true, FlaggedTerms: []string{}},
				{FlaggedTerms: []string{"scam", "damn"}, FlagReason: "Profanity detected: damn", RequiresReview: true},
			},
			want: Verdict{
				FlaggedTerms:   []string{"scam", "damn"},
				FlagReason:     "Potentially defamatory language: scam; Profanity detected: damn",
				RequiresReview: true,
			},
		},
		{
			name: "flagged terms survive clean neighbors",
			verdicts: []Verdict{
				{Clean: true, FlaggedTerms: []string{}},
				{FlaggedTerms: []string{"crook"}},
			},
			want: Verdict{FlaggedTerms: []string{"crook"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fold(tt.verdicts...)
			assert.Equal(t, tt.want, got)
			require.NotNil(t, got.FlaggedTerms)
		})
	}
}

func TestKeywordReviewThreshold(t *testing.T) {
	assert.Equal(t, DefaultKeywordReviewThreshold, MustNewModerator().KeywordReviewThreshold())
	assert.Equal(t, 5, MustNewModerator(WithKeywordReviewThreshold(5)).KeywordReviewThreshold())
	// Out-of-range values fall back to the default.
	assert.Equal(t, DefaultKeywordReviewThreshold, MustNewModerator(WithKeywordReviewThreshold(0)).KeywordReviewThreshold())
}
