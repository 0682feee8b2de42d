package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetViper clears any ambient CLAIMS_* environment and restores the default
// viper state so tests don't bleed into each other.
func resetViper(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CLAIMS_DATA_DIR",
		"CLAIMS_PORT",
		"CLAIMS_SIGNING_KEY",
		"CLAIMS_ADMIN_API_KEYS",
		"CLAIMS_KEYWORD_REVIEW_THRESHOLD",
		"CLAIMS_RETENTION_DAYS",
		"CLAIMS_GLOBAL_SUBMIT_RPM",
		"CLAIMS_PER_CALLER_SUBMIT_RPM",
		"CLAIMS_PII_CATEGORY_FILE",
	} {
		t.Setenv(key, "")
	}
	viper.Reset()
	viper.SetEnvPrefix("CLAIMS")
	viper.AutomaticEnv()
	viper.SetDefault(KeyPort, DefaultPort)
	viper.SetDefault(KeyKeywordReviewThreshold, DefaultKeywordThreshold)
	viper.SetDefault(KeyRetentionDays, DefaultRetentionDays)
	viper.SetDefault(KeyGlobalSubmitRPM, DefaultGlobalSubmitRPM)
	viper.SetDefault(KeyPerCallerSubmitRPM, DefaultPerCallerSubmitRPM)
}

func TestLoad_Defaults(t *testing.T) {
	resetViper(t)
	t.Setenv("CLAIMS_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultKeywordThreshold, cfg.KeywordReviewThreshold)
	assert.Equal(t, DefaultRetentionDays, cfg.RetentionDays)
	assert.Equal(t, DefaultGlobalSubmitRPM, cfg.GlobalSubmitRPM)
	assert.Equal(t, DefaultPerCallerSubmitRPM, cfg.PerCallerSubmitRPM)
	assert.Empty(t, cfg.AdminAPIKeys)
	assert.Empty(t, cfg.PIICategoryFile)

	// With no explicit key a derived one is used, long enough to sign with.
	assert.True(t, cfg.UsingDefaultSigningKey())
	assert.GreaterOrEqual(t, len(cfg.SigningKey), 32)
}

func TestLoad_ExplicitValues(t *testing.T) {
	resetViper(t)
	dir := t.TempDir()
	t.Setenv("CLAIMS_DATA_DIR", dir)
	t.Setenv("CLAIMS_PORT", "9090")
	t.Setenv("CLAIMS_SIGNING_KEY", strings.Repeat("k", 32))
	t.Setenv("CLAIMS_ADMIN_API_KEYS", "k1:alice,k2")
	t.Setenv("CLAIMS_KEYWORD_REVIEW_THRESHOLD", "3")
	t.Setenv("CLAIMS_RETENTION_DAYS", "30")
	t.Setenv("CLAIMS_GLOBAL_SUBMIT_RPM", "60")
	t.Setenv("CLAIMS_PER_CALLER_SUBMIT_RPM", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, strings.Repeat("k", 32), cfg.SigningKey)
	assert.False(t, cfg.UsingDefaultSigningKey())
	assert.Equal(t, "k1:alice,k2", cfg.AdminAPIKeys)
	assert.Equal(t, 3, cfg.KeywordReviewThreshold)
	assert.Equal(t, 30, cfg.RetentionDays)
	assert.Equal(t, 60, cfg.GlobalSubmitRPM)
	assert.Equal(t, 5, cfg.PerCallerSubmitRPM)

	assert.Equal(t, filepath.Join(dir, "claims.db"), cfg.ClaimsDBPath())
	assert.Equal(t, filepath.Join(dir, "audit.db"), cfg.AuditDBPath())
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		envKey  string
		value   string
		wantErr string
	}{
		{name: "port too high", envKey: "CLAIMS_PORT", value: "70000", wantErr: "port"},
		{name: "port zero", envKey: "CLAIMS_PORT", value: "0", wantErr: "port"},
		{name: "short signing key", envKey: "CLAIMS_SIGNING_KEY", value: "short", wantErr: "signing_key"},
		{name: "zero threshold", envKey: "CLAIMS_KEYWORD_REVIEW_THRESHOLD", value: "0", wantErr: "keyword_review_threshold"},
		{name: "zero retention", envKey: "CLAIMS_RETENTION_DAYS", value: "0", wantErr: "retention_days"},
		{name: "zero rate limit", envKey: "CLAIMS_GLOBAL_SUBMIT_RPM", value: "0", wantErr: "rate limits"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper(t)
			t.Setenv("CLAIMS_DATA_DIR", t.TempDir())
			t.Setenv(tt.envKey, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDeriveDefaultKeyIsStablePerDataDir(t *testing.T) {
	a := deriveDefaultKey("/data/one", "moderation-audit-signing")
	b := deriveDefaultKey("/data/one", "moderation-audit-signing")
	c := deriveDefaultKey("/data/two", "moderation-audit-signing")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestEnsureDataDir(t *testing.T) {
	resetViper(t)
	dir := filepath.Join(t.TempDir(), "nested", "state")
	t.Setenv("CLAIMS_DATA_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.EnsureDataDir())
	assert.DirExists(t, dir)
}
