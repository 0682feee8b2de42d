// Package patterns provides the embedded default detection definitions for the
// content-safety pipeline: PII category recognizers and moderation word lists.
// YAML files in this directory use the category registry format documented in
// internal/sanitize.
package patterns

import _ "embed"

//go:embed pii_us.yaml
var piiUSYAML []byte

//go:embed profanity.yaml
var profanityYAML []byte

//go:embed defamation.yaml
var defamationYAML []byte

// PIIUSYAML returns the embedded default PII category definitions.
func PIIUSYAML() []byte { return piiUSYAML }

// ProfanityYAML returns the embedded profanity word list.
func ProfanityYAML() []byte { return profanityYAML }

// DefamationYAML returns the embedded defamation keyword and context definitions.
func DefamationYAML() []byte { return defamationYAML }
