// Package doctor provides preflight health checks for a claims service
// deployment. Used by `claimsd doctor` before first serve and when debugging
// a misbehaving install.
package doctor

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/rgygrj9sjw-svg/Claims/internal/audit"
	"github.com/rgygrj9sjw-svg/Claims/internal/config"
	"github.com/rgygrj9sjw-svg/Claims/internal/moderate"
	"github.com/rgygrj9sjw-svg/Claims/internal/sanitize"
	"github.com/rgygrj9sjw-svg/Claims/internal/server"
	"github.com/rgygrj9sjw-svg/Claims/internal/store"
)

// CheckResult is a single doctor check outcome.
type CheckResult struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Status   string `json:"status"` // pass, warn, fail
	Message  string `json:"message"`
	Fix      string `json:"fix,omitempty"`
}

// Summary tallies pass/warn/fail counts.
type Summary struct {
	Pass int `json:"pass"`
	Warn int `json:"warn"`
	Fail int `json:"fail"`
}

// Report is the complete doctor output.
type Report struct {
	Status  string        `json:"status"` // worst of all checks
	Checks  []CheckResult `json:"checks"`
	Summary Summary       `json:"summary"`
}

// Options controls optional checks.
type Options struct {
	SkipPortProbe bool // Skip the listen probe (when a server is already running)
}

// Run executes all doctor checks and returns a report.
func Run(ctx context.Context, opts Options) *Report {
	report := &Report{}

	cfg, err := config.Load()
	if err != nil {
		report.Checks = append(report.Checks, CheckResult{
			Name: "config_load", Category: "config", Status: "fail",
			Message: fmt.Sprintf("Cannot load config: %v", err),
			Fix:     "Check CLAIMS_* env vars and claims.config.yaml",
		})
	} else {
		report.Checks = append(report.Checks, checkConfig(ctx, cfg)...)
		report.Checks = append(report.Checks, checkPatterns(cfg)...)
		if !opts.SkipPortProbe {
			report.Checks = append(report.Checks, checkPort(cfg))
		}
	}

	for _, c := range report.Checks {
		switch c.Status {
		case "pass":
			report.Summary.Pass++
		case "warn":
			report.Summary.Warn++
		case "fail":
			report.Summary.Fail++
		}
	}

	report.Status = "pass"
	if report.Summary.Warn > 0 {
		report.Status = "warn"
	}
	if report.Summary.Fail > 0 {
		report.Status = "fail"
	}
	return report
}

func checkConfig(ctx context.Context, cfg *config.Config) []CheckResult {
	var results []CheckResult
	results = append(results, checkDataDir(cfg))
	results = append(results, checkSigningKey(cfg))
	results = append(results, checkAdminKeys(cfg))
	results = append(results, checkClaimsDB(ctx, cfg))
	results = append(results, checkAuditDB(cfg))
	return results
}

func checkDataDir(cfg *config.Config) CheckResult {
	if err := cfg.EnsureDataDir(); err != nil {
		return CheckResult{
			Name: "data_dir_writable", Category: "config", Status: "fail",
			Message: fmt.Sprintf("%s: %v", cfg.DataDir, err),
			Fix:     "Ensure directory exists and is writable",
		}
	}
	testFile := filepath.Join(cfg.DataDir, ".doctor-write-test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return CheckResult{
			Name: "data_dir_writable", Category: "config", Status: "fail",
			Message: fmt.Sprintf("%s not writable: %v", cfg.DataDir, err),
		}
	}
	_ = os.Remove(testFile)
	return CheckResult{
		Name: "data_dir_writable", Category: "config", Status: "pass",
		Message: fmt.Sprintf("%s (writable)", cfg.DataDir),
	}
}

func checkSigningKey(cfg *config.Config) CheckResult {
	if cfg.UsingDefaultSigningKey() {
		return CheckResult{
			Name: "signing_key", Category: "config", Status: "warn",
			Message: "Using generated default", Fix: "Set CLAIMS_SIGNING_KEY for production",
		}
	}
	return CheckResult{
		Name: "signing_key", Category: "config", Status: "pass", Message: "Configured",
	}
}

func checkAdminKeys(cfg *config.Config) CheckResult {
	keys := server.ParseAPIKeys(cfg.AdminAPIKeys)
	if len(keys) == 0 {
		return CheckResult{
			Name: "admin_api_keys", Category: "config", Status: "warn",
			Message: "No admin API keys configured; the review queue is unreachable",
			Fix:     "Set CLAIMS_ADMIN_API_KEYS (key or key:name, comma separated)",
		}
	}
	return CheckResult{
		Name: "admin_api_keys", Category: "config", Status: "pass",
		Message: fmt.Sprintf("%d key(s) configured", len(keys)),
	}
}

func checkClaimsDB(ctx context.Context, cfg *config.Config) CheckResult {
	st, err := store.NewStore(cfg.ClaimsDBPath())
	if err != nil {
		return CheckResult{
			Name: "claims_db", Category: "config", Status: "fail",
			Message: fmt.Sprintf("%s: %v", cfg.ClaimsDBPath(), err),
		}
	}
	defer st.Close()

	if _, err := st.ListPendingReview(ctx); err != nil {
		return CheckResult{
			Name: "claims_db", Category: "config", Status: "fail",
			Message: fmt.Sprintf("query failed: %v", err),
		}
	}
	return CheckResult{
		Name: "claims_db", Category: "config", Status: "pass",
		Message: cfg.ClaimsDBPath(),
	}
}

func checkAuditDB(cfg *config.Config) CheckResult {
	st, err := audit.NewStore(cfg.AuditDBPath(), cfg.SigningKey)
	if err != nil {
		return CheckResult{
			Name: "audit_db", Category: "config", Status: "fail",
			Message: fmt.Sprintf("%s: %v", cfg.AuditDBPath(), err),
		}
	}
	_ = st.Close()
	return CheckResult{
		Name: "audit_db", Category: "config", Status: "pass",
		Message: cfg.AuditDBPath(),
	}
}

func checkPatterns(cfg *config.Config) []CheckResult {
	var results []CheckResult

	var opts []sanitize.Option
	if cfg.PIICategoryFile != "" {
		opts = append(opts, sanitize.WithCategoryFile(cfg.PIICategoryFile))
	}
	scanner, err := sanitize.NewScanner(opts...)
	if err != nil {
		results = append(results, CheckResult{
			Name: "pii_categories", Category: "patterns", Status: "fail",
			Message: fmt.Sprintf("compile failed: %v", err),
			Fix:     "Check CLAIMS_PII_CATEGORY_FILE syntax",
		})
	} else {
		results = append(results, CheckResult{
			Name: "pii_categories", Category: "patterns", Status: "pass",
			Message: fmt.Sprintf("%d categories compiled", len(scanner.Rules())),
		})
	}

	if _, err := moderate.NewModerator(
		moderate.WithKeywordReviewThreshold(cfg.KeywordReviewThreshold),
	); err != nil {
		results = append(results, CheckResult{
			Name: "word_lists", Category: "patterns", Status: "fail",
			Message: fmt.Sprintf("load failed: %v", err),
		})
	} else {
		results = append(results, CheckResult{
			Name: "word_lists", Category: "patterns", Status: "pass",
			Message: fmt.Sprintf("loaded (review threshold %d)", cfg.KeywordReviewThreshold),
		})
	}

	return results
}

func checkPort(cfg *config.Config) CheckResult {
	addr := fmt.Sprintf(":%d", cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return CheckResult{
			Name: "port_free", Category: "system", Status: "warn",
			Message: fmt.Sprintf("port %d is busy: %v", cfg.Port, err),
			Fix:     "Stop the other process or set CLAIMS_PORT",
		}
	}
	_ = ln.Close()
	return CheckResult{
		Name: "port_free", Category: "system", Status: "pass",
		Message: fmt.Sprintf("port %d available", cfg.Port),
	}
}
