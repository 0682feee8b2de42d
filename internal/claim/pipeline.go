package claim

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	claimsotel "github.com/rgygrj9sjw-svg/Claims/internal/otel"
	"github.com/rgygrj9sjw-svg/Claims/internal/moderate"
	"github.com/rgygrj9sjw-svg/Claims/internal/policy"
	"github.com/rgygrj9sjw-svg/Claims/internal/sanitize"
)

var tracer = claimsotel.Tracer("github.com/rgygrj9sjw-svg/Claims/internal/claim")

// Pipeline runs the two-stage content-safety pass over a submission: redact
// every free-text field, then moderate the sanitized text and fold the
// per-field verdicts into one disposition. Stateless and safe for concurrent
// use; each submission is processed independently.
type Pipeline struct {
	scanner   *sanitize.Scanner
	moderator *moderate.Moderator
}

// NewPipeline assembles a pipeline from a configured scanner and moderator.
func NewPipeline(scanner *sanitize.Scanner, moderator *moderate.Moderator) *Pipeline {
	return &Pipeline{scanner: scanner, moderator: moderator}
}

// Decision is the pipeline's output for one submission: the publication
// disposition, the aggregate verdict behind it, and the PII categories that
// were detected (and redacted) across all fields, for the audit trail.
// Category names only, never raw values.
type Decision struct {
	policy.Disposition
	Verdict       moderate.Verdict `json:"verdict"`
	PIICategories []string         `json:"pii_categories,omitempty"`
}

// Process sanitizes sub in place and returns the publication decision.
// Redaction always runs first; the moderator only ever sees sanitized text,
// so flagged terms in the stored reason cannot leak raw PII. Field order is
// the fixed TextFields order, making the folded reason reproducible.
func (p *Pipeline) Process(ctx context.Context, sub *Submission) Decision {
	ctx, span := tracer.Start(ctx, "claim.process")
	defer span.End()

	fields := sub.TextFields()

	hit := make(map[string]bool)
	for _, field := range fields {
		if *field == "" {
			continue
		}
		if has, categories := p.scanner.ContainsPII(ctx, *field); has {
			for _, c := range categories {
				hit[c] = true
			}
		}
		*field = p.scanner.Redact(ctx, *field)
	}

	// Report categories in registry order regardless of which field hit them.
	var piiCategories []string
	for _, rule := range p.scanner.Rules() {
		if hit[rule.Name] {
			piiCategories = append(piiCategories, rule.Name)
		}
	}

	verdicts := make([]moderate.Verdict, 0, len(fields))
	for _, field := range fields {
		verdicts = append(verdicts, p.moderator.Moderate(ctx, *field))
	}

	aggregate := moderate.Fold(verdicts...)
	decision := Decision{
		Disposition:   policy.Decide(aggregate),
		Verdict:       aggregate,
		PIICategories: piiCategories,
	}

	span.SetAttributes(
		attribute.String("claim.status", string(decision.Status)),
		attribute.Bool("pii.detected", len(piiCategories) > 0),
		attribute.Int("moderation.flagged_terms", len(aggregate.FlaggedTerms)),
	)
	return decision
}
