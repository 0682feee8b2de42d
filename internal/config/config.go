// Package config holds operator-level configuration for a claims service
// deployment: data directory, HTTP port, audit signing key, admin API keys,
// rate limits, and the tunable moderation threshold. Set via env vars
// (CLAIMS_*) or a claims.config.yaml file.
//
// The moderation word lists and PII categories are NOT configured here; they
// ship embedded (see the patterns package) with optional per-file overrides
// passed to the scanner directly.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Viper keys. Each maps to an env var with the CLAIMS_ prefix
// (e.g. "signing_key" becomes CLAIMS_SIGNING_KEY) and to a YAML field in
// claims.config.yaml.
const (
	KeyDataDir                 = "data_dir"
	KeyPort                    = "port"
	KeySigningKey              = "signing_key"
	KeyAdminAPIKeys            = "admin_api_keys"
	KeyKeywordReviewThreshold  = "keyword_review_threshold"
	KeyRetentionDays           = "retention_days"
	KeyGlobalSubmitRPM         = "global_submit_rpm"
	KeyPerCallerSubmitRPM      = "per_caller_submit_rpm"
	KeyPIICategoryOverrideFile = "pii_category_file"
)

// Defaults that do not involve crypto material. The signing key intentionally
// has no baked-in default; when unset we derive a per-machine fallback and
// warn loudly.
const (
	DefaultPort               = 8080
	DefaultKeywordThreshold   = 2
	DefaultRetentionDays      = 90
	DefaultGlobalSubmitRPM    = 120
	DefaultPerCallerSubmitRPM = 10
)

// Config holds resolved operator-level configuration for a claims process.
type Config struct {
	DataDir                string // Base directory for all state (~/.claims)
	Port                   int    // HTTP server port
	SigningKey             string // HMAC-SHA256 key for audit signing (≥32 bytes)
	AdminAPIKeys           string // Comma-separated admin keys (key or key:name)
	KeywordReviewThreshold int    // Non-accusatory keyword count that triggers review
	RetentionDays          int    // Rejected-claim retention window for the purge job
	GlobalSubmitRPM        int    // Total submissions/minute across all callers
	PerCallerSubmitRPM     int    // Submissions/minute per caller
	PIICategoryFile        string // Optional PII category override YAML

	usingDefaultSigningKey bool
}

// UsingDefaultSigningKey returns true if the signing key was derived rather
// than set explicitly.
func (c *Config) UsingDefaultSigningKey() bool {
	return c.usingDefaultSigningKey
}

// ClaimsDBPath returns the full path to the claims SQLite database.
func (c *Config) ClaimsDBPath() string {
	return filepath.Join(c.DataDir, "claims.db")
}

// AuditDBPath returns the full path to the moderation audit SQLite database.
func (c *Config) AuditDBPath() string {
	return filepath.Join(c.DataDir, "audit.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0o700)
}

// WarnIfDefaultKeys logs a warning when the signing key is not explicitly set.
func (c *Config) WarnIfDefaultKeys() {
	if c.usingDefaultSigningKey {
		log.Warn().Msg("Using generated default CLAIMS_SIGNING_KEY, set one explicitly for production")
	}
}

func init() {
	viper.SetEnvPrefix("CLAIMS")
	viper.AutomaticEnv()
	viper.SetDefault(KeyPort, DefaultPort)
	viper.SetDefault(KeyKeywordReviewThreshold, DefaultKeywordThreshold)
	viper.SetDefault(KeyRetentionDays, DefaultRetentionDays)
	viper.SetDefault(KeyGlobalSubmitRPM, DefaultGlobalSubmitRPM)
	viper.SetDefault(KeyPerCallerSubmitRPM, DefaultPerCallerSubmitRPM)
}

// Load reads configuration from Viper (which merges env vars, config file,
// and defaults) and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{
		DataDir:                resolveDataDir(),
		Port:                   viper.GetInt(KeyPort),
		SigningKey:             viper.GetString(KeySigningKey),
		AdminAPIKeys:           viper.GetString(KeyAdminAPIKeys),
		KeywordReviewThreshold: viper.GetInt(KeyKeywordReviewThreshold),
		RetentionDays:          viper.GetInt(KeyRetentionDays),
		GlobalSubmitRPM:        viper.GetInt(KeyGlobalSubmitRPM),
		PerCallerSubmitRPM:     viper.GetInt(KeyPerCallerSubmitRPM),
		PIICategoryFile:        viper.GetString(KeyPIICategoryOverrideFile),
	}

	if cfg.SigningKey == "" {
		cfg.SigningKey = deriveDefaultKey(cfg.DataDir, "moderation-audit-signing")
		cfg.usingDefaultSigningKey = true
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func resolveDataDir() string {
	if dir := viper.GetString(KeyDataDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".claims"
	}
	return filepath.Join(home, ".claims")
}

// deriveDefaultKey produces a deterministic 32-byte fallback key from the
// data directory path and a salt. Not cryptographically strong; it exists so
// the service runs out of the box while still signing audit records with a
// per-machine-unique key.
func deriveDefaultKey(dataDir, salt string) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("claims:%s:%s", dataDir, salt)))
	return hex.EncodeToString(h[:])
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", c.Port)
	}
	if len(c.SigningKey) < 32 {
		return fmt.Errorf("signing_key must be at least 32 bytes")
	}
	if c.KeywordReviewThreshold < 1 {
		return fmt.Errorf("keyword_review_threshold must be at least 1")
	}
	if c.RetentionDays < 1 {
		return fmt.Errorf("retention_days must be at least 1")
	}
	if c.GlobalSubmitRPM < 1 || c.PerCallerSubmitRPM < 1 {
		return fmt.Errorf("submission rate limits must be positive")
	}
	return nil
}
