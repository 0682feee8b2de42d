package moderate

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/rgygrj9sjw-svg/Claims/patterns"
)

// WordListFile is the YAML structure for a flat word list.
type WordListFile struct {
	Words []string `yaml:"words"`
}

// DefamationFile is the YAML structure for the defamation definitions:
// keywords checked by containment and the context phrases that mark a hit as
// accusatory.
type DefamationFile struct {
	Keywords []string `yaml:"keywords"`
	Contexts []string `yaml:"contexts"`
}

// DefaultProfanity returns the embedded profanity word list.
func DefaultProfanity() ([]string, error) {
	var wl WordListFile
	if err := yaml.Unmarshal(patterns.ProfanityYAML(), &wl); err != nil {
		return nil, fmt.Errorf("parsing embedded profanity list: %w", err)
	}
	return wl.Words, nil
}

// DefaultDefamation returns the embedded defamation definitions.
func DefaultDefamation() (*DefamationFile, error) {
	var df DefamationFile
	if err := yaml.Unmarshal(patterns.DefamationYAML(), &df); err != nil {
		return nil, fmt.Errorf("parsing embedded defamation list: %w", err)
	}
	return &df, nil
}
