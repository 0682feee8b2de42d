package sanitize

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCategories(t *testing.T) {
	cats, err := DefaultCategories()
	require.NoError(t, err)

	var names []string
	for _, c := range cats {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{
		"email", "phone", "ssn", "policy_number", "address", "dob", "name",
	}, names)

	for _, c := range cats {
		assert.NotEmpty(t, c.Placeholder, "category %s has no placeholder", c.Name)
		if c.KeywordCapture {
			assert.NotEmpty(t, c.Keywords, "capture category %s has no keywords", c.Name)
		} else {
			assert.NotEmpty(t, c.Patterns, "category %s has no patterns", c.Name)
		}
	}
}

func TestParseCategoryFile_Invalid(t *testing.T) {
	_, err := ParseCategoryFile([]byte("categories: {not: a list}"))
	assert.Error(t, err)
}

func TestLoadCategoryFile_Missing(t *testing.T) {
	cf, err := LoadCategoryFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Nil(t, cf)
}

func TestMergeCategories(t *testing.T) {
	disabled := false
	defaults := []CategoryConfig{
		{Name: "email", Placeholder: "[REDACTED EMAIL]"},
		{Name: "phone", Placeholder: "[REDACTED PHONE]"},
	}
	overrides := []CategoryConfig{
		{Name: "phone", Placeholder: "[REDACTED PHONE]", Enabled: &disabled},
		{Name: "iban", Placeholder: "[REDACTED IBAN]"},
	}

	merged := MergeCategories(defaults, overrides)
	require.Len(t, merged, 3)

	// Override replaces in place, new category appends.
	assert.Equal(t, "email", merged[0].Name)
	assert.Equal(t, "phone", merged[1].Name)
	assert.False(t, merged[1].isEnabled())
	assert.Equal(t, "iban", merged[2].Name)
}

func TestCompileRules(t *testing.T) {
	t.Run("skips disabled categories", func(t *testing.T) {
		off := false
		rules, err := CompileRules([]CategoryConfig{
			{Name: "a", Placeholder: "[A]", Patterns: []PatternConfig{{Name: "p", Regex: `x+`}}},
			{Name: "b", Placeholder: "[B]", Enabled: &off, Patterns: []PatternConfig{{Name: "p", Regex: `y+`}}},
		})
		require.NoError(t, err)
		require.Len(t, rules, 1)
		assert.Equal(t, "a", rules[0].Name)
	})

	t.Run("invalid regex fails with category context", func(t *testing.T) {
		_, err := CompileRules([]CategoryConfig{
			{Name: "bad", Placeholder: "[X]", Patterns: []PatternConfig{{Name: "p", Regex: `(`}}},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"bad"`)
	})

	t.Run("keyword capture expands per keyword", func(t *testing.T) {
		rules, err := CompileRules([]CategoryConfig{
			{
				Name:           "name",
				Placeholder:    "[REDACTED NAME]",
				KeywordCapture: true,
				Keywords:       []string{"adjuster", "mr."},
			},
		})
		require.NoError(t, err)
		require.Len(t, rules, 1)

		got := rules[0].Apply("Adjuster Jane Doe and Mr. Brown agreed")
		assert.Equal(t, "Adjuster [REDACTED NAME] and Mr. [REDACTED NAME] agreed", got)
	})
}

func TestScannerWithCategoryFile(t *testing.T) {
	// Disabling the name category via an operator override file must leave
	// the other categories intact.
	override := `categories:
  - name: name
    placeholder: "[REDACTED NAME]"
    enabled: false
    keyword_capture: true
    keywords: [adjuster]
`
	path := filepath.Join(t.TempDir(), "pii_override.yaml")
	require.NoError(t, os.WriteFile(path, []byte(override), 0o600))

	scanner, err := NewScanner(WithCategoryFile(path))
	require.NoError(t, err)

	got := scanner.Redact(context.Background(), "adjuster John Smith at a@b.co")
	assert.Contains(t, got, "John Smith")
	assert.Contains(t, got, "[REDACTED EMAIL]")
}

func TestScannerWithDisabledCategories(t *testing.T) {
	scanner, err := NewScanner(WithDisabledCategories([]string{"policy_number"}))
	require.NoError(t, err)

	got := scanner.Redact(context.Background(), "claim ref 12345678 from a@b.co")
	assert.Contains(t, got, "12345678")
	assert.Contains(t, got, "[REDACTED EMAIL]")

	_, types := scanner.ContainsPII(context.Background(), "ref 12345678")
	assert.NotContains(t, types, "policy_number")
}
