// Package moderate scans sanitized submission text for profanity and
// defamation risk and produces the structured verdict that gates automatic
// publication. It always runs on the redactor's output, never on raw text, so
// flagged terms surfaced to administrators can never carry raw PII.
//
// Three independent checks feed one verdict: exact-token profanity matching,
// substring defamation-keyword matching, and an accusatory-context classifier
// that decides whether a keyword hit reads as an assertion of wrongdoing
// rather than a neutral mention.
package moderate

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	claimsotel "github.com/rgygrj9sjw-svg/Claims/internal/otel"
)

var tracer = claimsotel.Tracer("github.com/rgygrj9sjw-svg/Claims/internal/moderate")

// DefaultKeywordReviewThreshold is the number of distinct non-accusatory
// defamation keywords that still triggers human review. Isolated mentions
// ("the contractor handled it fraudulently") are common false positives, but
// repeated sensitive vocabulary merits a look. Tunable via config; the value
// is a policy heuristic, not a correctness requirement.
const DefaultKeywordReviewThreshold = 2

// tokenCutset is trimmed from both ends of each whitespace token before
// profanity comparison, so "bullshit!" matches the word list.
const tokenCutset = ".,;:!?'\"()[]{}"

// Verdict is the structured result of moderating one text field, or the fold
// of several.
type Verdict struct {
	Clean          bool     `json:"clean"`
	FlaggedTerms   []string `json:"flagged_terms"`
	FlagReason     string   `json:"flag_reason,omitempty"`
	RequiresReview bool     `json:"requires_review"`
}

// Moderator holds the compiled word lists and context patterns. Read-only
// after construction and safe for concurrent use.
type Moderator struct {
	profanity  map[string]struct{}
	keywords   []string
	accusatory map[string][]*regexp.Regexp
	threshold  int
}

// Option configures a Moderator.
type Option func(*moderatorConfig)

type moderatorConfig struct {
	threshold      int
	extraKeywords  []string
	extraProfanity []string
}

// WithKeywordReviewThreshold overrides the non-accusatory keyword count that
// triggers the low-confidence review fallback. Values below 1 are ignored.
func WithKeywordReviewThreshold(n int) Option {
	return func(c *moderatorConfig) { c.threshold = n }
}

// WithExtraKeywords appends operator-supplied defamation keywords to the
// embedded list.
func WithExtraKeywords(words []string) Option {
	return func(c *moderatorConfig) { c.extraKeywords = words }
}

// WithExtraProfanity appends operator-supplied words to the embedded
// profanity list.
func WithExtraProfanity(words []string) Option {
	return func(c *moderatorConfig) { c.extraProfanity = words }
}

// NewModerator creates a Moderator from the embedded word lists, pre-compiling
// one proximity pattern per keyword/context pair.
func NewModerator(opts ...Option) (*Moderator, error) {
	var cfg moderatorConfig
	for _, o := range opts {
		o(&cfg)
	}

	profanityWords, err := DefaultProfanity()
	if err != nil {
		return nil, fmt.Errorf("loading profanity list: %w", err)
	}
	defamation, err := DefaultDefamation()
	if err != nil {
		return nil, fmt.Errorf("loading defamation list: %w", err)
	}

	profanity := make(map[string]struct{}, len(profanityWords)+len(cfg.extraProfanity))
	for _, w := range profanityWords {
		profanity[strings.ToLower(w)] = struct{}{}
	}
	for _, w := range cfg.extraProfanity {
		profanity[strings.ToLower(w)] = struct{}{}
	}

	keywords := append([]string{}, defamation.Keywords...)
	keywords = append(keywords, cfg.extraKeywords...)

	// One pattern per keyword/context pair: context phrase, up to three
	// intervening words, then the keyword.
	accusatory := make(map[string][]*regexp.Regexp, len(keywords))
	for _, kw := range keywords {
		for _, ctxPhrase := range defamation.Contexts {
			expr := `(?i)\b` + regexp.QuoteMeta(ctxPhrase) + `\s+(?:\w+\s+){0,3}` + regexp.QuoteMeta(kw)
			compiled, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("compiling context pattern for %q/%q: %w", ctxPhrase, kw, err)
			}
			accusatory[kw] = append(accusatory[kw], compiled)
		}
	}

	threshold := DefaultKeywordReviewThreshold
	if cfg.threshold >= 1 {
		threshold = cfg.threshold
	}

	return &Moderator{
		profanity:  profanity,
		keywords:   keywords,
		accusatory: accusatory,
		threshold:  threshold,
	}, nil
}

// MustNewModerator is like NewModerator but panics on error.
func MustNewModerator(opts ...Option) *Moderator {
	m, err := NewModerator(opts...)
	if err != nil {
		panic(fmt.Sprintf("moderate.NewModerator: %v", err))
	}
	return m
}

// KeywordReviewThreshold returns the active fallback threshold.
func (m *Moderator) KeywordReviewThreshold() int { return m.threshold }

// Moderate scans one text field and returns its verdict. Empty or
// whitespace-only text short-circuits to a clean verdict without running
// either check.
func (m *Moderator) Moderate(ctx context.Context, text string) Verdict {
	_, span := tracer.Start(ctx, "moderate.moderate")
	defer span.End()

	if strings.TrimSpace(text) == "" {
		return Verdict{Clean: true, FlaggedTerms: []string{}}
	}

	profane := m.checkProfanity(text)
	defamatory := m.checkDefamation(text)

	verdict := Verdict{
		FlaggedTerms: dedupe(append(append([]string{}, profane...), defamatory...)),
	}
	verdict.Clean = len(verdict.FlaggedTerms) == 0

	var reasons []string
	if len(profane) > 0 {
		verdict.RequiresReview = true
		reasons = append(reasons, "Profanity detected: "+strings.Join(profane, ", "))
	}

	if len(defamatory) > 0 {
		switch {
		case m.hasAccusatoryContext(text, defamatory):
			verdict.RequiresReview = true
			reasons = append(reasons, "Potentially defamatory language: "+strings.Join(defamatory, ", "))
		case !verdict.RequiresReview && len(defamatory) >= m.threshold:
			verdict.RequiresReview = true
			reasons = append(reasons, "Multiple sensitive keywords: "+strings.Join(defamatory, ", "))
		}
	}
	verdict.FlagReason = strings.Join(reasons, "; ")

	span.SetAttributes(
		attribute.Bool("moderation.requires_review", verdict.RequiresReview),
		attribute.Int("moderation.flagged_terms", len(verdict.FlaggedTerms)),
	)
	return verdict
}

// checkProfanity tokenizes on whitespace, lower-cases and trims punctuation,
// then tests each token against the word list. Returns distinct matches in
// order of first appearance.
func (m *Moderator) checkProfanity(text string) []string {
	var flagged []string
	seen := make(map[string]struct{})

	for _, tok := range strings.Fields(strings.ToLower(text)) {
		word := strings.Trim(tok, tokenCutset)
		if word == "" {
			continue
		}
		if _, profane := m.profanity[word]; !profane {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		flagged = append(flagged, word)
	}

	return flagged
}

// checkDefamation returns every defamation keyword contained in the
// lower-cased text, regardless of context, in list order.
func (m *Moderator) checkDefamation(text string) []string {
	lower := strings.ToLower(text)
	var flagged []string
	for _, kw := range m.keywords {
		if strings.Contains(lower, kw) {
			flagged = append(flagged, kw)
		}
	}
	return flagged
}

// hasAccusatoryContext reports whether any matched keyword appears in
// accusatory proximity to a context phrase ("is a", "committed", ...).
func (m *Moderator) hasAccusatoryContext(text string, matched []string) bool {
	for _, kw := range matched {
		for _, re := range m.accusatory[kw] {
			if re.MatchString(text) {
				return true
			}
		}
	}
	return false
}

// Fold combines per-field verdicts into one submission-level verdict: union
// of flagged terms, OR of review flags, and "; "-joined non-empty reasons in
// input order. Callers must pass verdicts in a deterministic field order so
// the combined reason is reproducible.
func Fold(verdicts ...Verdict) Verdict {
	var terms []string
	var reasons []string
	review := false

	for _, v := range verdicts {
		terms = append(terms, v.FlaggedTerms...)
		if v.FlagReason != "" {
			reasons = append(reasons, v.FlagReason)
		}
		review = review || v.RequiresReview
	}

	folded := Verdict{
		FlaggedTerms:   dedupe(terms),
		FlagReason:     strings.Join(reasons, "; "),
		RequiresReview: review,
	}
	if folded.FlaggedTerms == nil {
		folded.FlaggedTerms = []string{}
	}
	folded.Clean = len(folded.FlaggedTerms) == 0
	return folded
}

// dedupe removes duplicates preserving first-appearance order.
func dedupe(terms []string) []string {
	if len(terms) == 0 {
		return terms
	}
	seen := make(map[string]struct{}, len(terms))
	out := terms[:0]
	for _, t := range terms {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
