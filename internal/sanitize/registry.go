package sanitize

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/rgygrj9sjw-svg/Claims/patterns"
)

// CategoryFile is the top-level YAML structure for a PII category definition
// file. Category order in the file is the order rules are applied in, so more
// specific categories (phone, SSN) must precede the generic long-number rule.
type CategoryFile struct {
	Categories []CategoryConfig `yaml:"categories"`
}

// CategoryConfig defines one PII category: the placeholder its matches are
// replaced with and either a list of regex patterns or, for keyword-driven
// categories, a keyword list from which capture patterns are generated.
type CategoryConfig struct {
	Name        string          `yaml:"name"`
	Placeholder string          `yaml:"placeholder"`
	Enabled     *bool           `yaml:"enabled,omitempty"`
	Patterns    []PatternConfig `yaml:"patterns,omitempty"`

	// KeywordCapture categories generate one pattern per keyword, matching the
	// keyword (case-insensitive) followed by one or two capitalized words.
	// Only the captured words are replaced; the keyword survives redaction.
	KeywordCapture bool     `yaml:"keyword_capture,omitempty"`
	Keywords       []string `yaml:"keywords,omitempty"`
}

// PatternConfig is a single regex pattern within a category.
type PatternConfig struct {
	Name  string `yaml:"name"`
	Regex string `yaml:"regex"`
}

func (c *CategoryConfig) isEnabled() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}

// DefaultCategories returns the built-in category definitions parsed from the
// embedded pii_us.yaml file.
func DefaultCategories() ([]CategoryConfig, error) {
	cf, err := ParseCategoryFile(patterns.PIIUSYAML())
	if err != nil {
		return nil, fmt.Errorf("parsing embedded PII categories: %w", err)
	}
	return cf.Categories, nil
}

// ParseCategoryFile parses category YAML bytes.
func ParseCategoryFile(data []byte) (*CategoryFile, error) {
	var cf CategoryFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parsing category YAML: %w", err)
	}
	return &cf, nil
}

// LoadCategoryFile reads and parses a category YAML file from disk. Returns
// nil (not an error) if the file does not exist, so callers can treat a
// missing operator override file as a no-op.
func LoadCategoryFile(path string) (*CategoryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading category file %s: %w", path, err)
	}
	return ParseCategoryFile(data)
}

// MergeCategories layers operator overrides on top of the embedded defaults.
// Later layers override earlier ones by category name, keeping the original
// position so application order is stable; new categories are appended.
func MergeCategories(layers ...[]CategoryConfig) []CategoryConfig {
	index := make(map[string]int)
	var merged []CategoryConfig

	for _, layer := range layers {
		for _, cc := range layer {
			if idx, exists := index[cc.Name]; exists {
				merged[idx] = cc
			} else {
				index[cc.Name] = len(merged)
				merged = append(merged, cc)
			}
		}
	}

	return merged
}

// nameCaptureGroup matches one or two capitalized words. The case-sensitive
// group sits inside otherwise case-insensitive keyword patterns so that
// "adjuster John Smith" redacts but "adjuster said nothing" does not.
const nameCaptureGroup = `\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`

// CompileRules converts category configs into the compiled rule list used by
// the Scanner. Disabled categories are skipped. Keyword-capture categories
// expand to one pattern per keyword.
func CompileRules(categories []CategoryConfig) ([]Rule, error) {
	var rules []Rule

	for _, cat := range categories {
		if !cat.isEnabled() {
			continue
		}

		rule := Rule{
			Name:        cat.Name,
			Placeholder: cat.Placeholder,
			capture:     cat.KeywordCapture,
		}

		if cat.KeywordCapture {
			for _, kw := range cat.Keywords {
				expr := `(?i:` + regexp.QuoteMeta(kw) + `)` + nameCaptureGroup
				compiled, err := regexp.Compile(expr)
				if err != nil {
					return nil, fmt.Errorf("compiling keyword %q in category %q: %w", kw, cat.Name, err)
				}
				rule.patterns = append(rule.patterns, compiled)
			}
		} else {
			for _, p := range cat.Patterns {
				compiled, err := regexp.Compile(p.Regex)
				if err != nil {
					return nil, fmt.Errorf("compiling pattern %q in category %q: %w", p.Name, cat.Name, err)
				}
				rule.patterns = append(rule.patterns, compiled)
			}
		}

		rules = append(rules, rule)
	}

	return rules, nil
}
