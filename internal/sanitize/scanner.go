// Package sanitize detects and redacts personally identifying information in
// user-submitted free text. Detection is driven by an ordered list of named
// category rules compiled from embedded YAML definitions; each rule replaces
// its matches with a typed placeholder such as "[REDACTED EMAIL]".
//
// Redaction is a pure text transform: deterministic, total, and safe to share
// across goroutines since compiled rules are read-only and Go's regexp match
// API carries no per-call state.
package sanitize

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	claimsotel "github.com/rgygrj9sjw-svg/Claims/internal/otel"
)

var tracer = claimsotel.Tracer("github.com/rgygrj9sjw-svg/Claims/internal/sanitize")

// Rule is a single compiled PII category: a name, the placeholder its matches
// are replaced with, and one or more patterns. Rules are independently
// testable and evaluated in registry order by the Scanner.
type Rule struct {
	Name        string
	Placeholder string

	patterns []*regexp.Regexp
	// capture rules replace only the first submatch group, preserving the
	// surrounding keyword (e.g. "adjuster [REDACTED NAME]").
	capture bool
}

// Matches reports whether any of the rule's patterns match text.
func (r Rule) Matches(text string) bool {
	for _, re := range r.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Apply replaces every match of the rule in text with its placeholder and
// returns the result.
func (r Rule) Apply(text string) string {
	for _, re := range r.patterns {
		if r.capture {
			text = replaceGroup(re, text, r.Placeholder)
		} else {
			text = re.ReplaceAllString(text, r.Placeholder)
		}
	}
	return text
}

// replaceGroup substitutes placeholder for capture group 1 of every match,
// leaving the rest of the match intact.
func replaceGroup(re *regexp.Regexp, text, placeholder string) string {
	matches := re.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, m := range matches {
		if len(m) < 4 || m[2] < 0 {
			continue
		}
		b.WriteString(text[last:m[2]])
		b.WriteString(placeholder)
		last = m[3]
	}
	b.WriteString(text[last:])
	return b.String()
}

// Scanner redacts PII from free text using an ordered rule list.
type Scanner struct {
	rules []Rule
}

// Option configures a Scanner via the functional options pattern.
type Option func(*scannerConfig)

type scannerConfig struct {
	categoryFile       string
	disabledCategories []string
}

// WithCategoryFile loads operator category overrides from a YAML file layered
// on top of the embedded defaults. A missing file is silently skipped.
func WithCategoryFile(path string) Option {
	return func(c *scannerConfig) { c.categoryFile = path }
}

// WithDisabledCategories excludes the named categories from detection.
func WithDisabledCategories(names []string) Option {
	return func(c *scannerConfig) { c.disabledCategories = names }
}

// NewScanner creates a PII scanner. Without options it uses the embedded US
// defaults; options layer operator overrides on top.
func NewScanner(opts ...Option) (*Scanner, error) {
	var cfg scannerConfig
	for _, o := range opts {
		o(&cfg)
	}

	defaults, err := DefaultCategories()
	if err != nil {
		return nil, fmt.Errorf("loading default categories: %w", err)
	}

	var overrides []CategoryConfig
	if cfg.categoryFile != "" {
		cf, err := LoadCategoryFile(cfg.categoryFile)
		if err != nil {
			return nil, fmt.Errorf("loading category file: %w", err)
		}
		if cf != nil {
			overrides = cf.Categories
		}
	}

	merged := MergeCategories(defaults, overrides)

	if len(cfg.disabledCategories) > 0 {
		blocked := make(map[string]bool, len(cfg.disabledCategories))
		for _, name := range cfg.disabledCategories {
			blocked[name] = true
		}
		var kept []CategoryConfig
		for _, cat := range merged {
			if !blocked[cat.Name] {
				kept = append(kept, cat)
			}
		}
		merged = kept
	}

	rules, err := CompileRules(merged)
	if err != nil {
		return nil, fmt.Errorf("compiling rules: %w", err)
	}

	return &Scanner{rules: rules}, nil
}

// MustNewScanner is like NewScanner but panics on error. Useful for
// zero-config startup where the embedded defaults are expected to compile.
func MustNewScanner(opts ...Option) *Scanner {
	s, err := NewScanner(opts...)
	if err != nil {
		panic(fmt.Sprintf("sanitize.NewScanner: %v", err))
	}
	return s
}

// Rules returns the compiled rule list in application order.
func (s *Scanner) Rules() []Rule {
	return s.rules
}

// Redact replaces every PII match in text with its category placeholder.
// Rules run in registry order so specific categories (phone, SSN) consume
// digit runs before the generic long-number rule sees them. Placeholders
// contain nothing any category re-matches, so redacting already-redacted
// text is a no-op.
func (s *Scanner) Redact(ctx context.Context, text string) string {
	_, span := tracer.Start(ctx, "sanitize.redact")
	defer span.End()

	if text == "" {
		return text
	}

	redacted := text
	for _, rule := range s.rules {
		redacted = rule.Apply(redacted)
	}

	span.SetAttributes(attribute.Bool("pii.redacted", redacted != text))
	return redacted
}

// ContainsPII reports whether text matches any PII category, without
// substitution. Category names come back in registry order, each listed at
// most once regardless of match count. Intended for diagnostics and audit
// records, never as a substitute for Redact.
func (s *Scanner) ContainsPII(ctx context.Context, text string) (bool, []string) {
	_, span := tracer.Start(ctx, "sanitize.contains_pii")
	defer span.End()

	var types []string
	if text != "" {
		for _, rule := range s.rules {
			if rule.Matches(text) {
				types = append(types, rule.Name)
			}
		}
	}

	span.SetAttributes(
		attribute.Bool("pii.detected", len(types) > 0),
		attribute.Int("pii.category_count", len(types)),
	)
	return len(types) > 0, types
}
