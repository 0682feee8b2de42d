package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rgygrj9sjw-svg/Claims/internal/audit"
	"github.com/rgygrj9sjw-svg/Claims/internal/claim"
	"github.com/rgygrj9sjw-svg/Claims/internal/config"
	"github.com/rgygrj9sjw-svg/Claims/internal/moderate"
	"github.com/rgygrj9sjw-svg/Claims/internal/sanitize"
	"github.com/rgygrj9sjw-svg/Claims/internal/server"
	"github.com/rgygrj9sjw-svg/Claims/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the claims HTTP API with the retention sweep",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP server port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	cfg.WarnIfDefaultKeys()
	if servePort > 0 {
		cfg.Port = servePort
	}

	var scannerOpts []sanitize.Option
	if cfg.PIICategoryFile != "" {
		scannerOpts = append(scannerOpts, sanitize.WithCategoryFile(cfg.PIICategoryFile))
	}
	scanner, err := sanitize.NewScanner(scannerOpts...)
	if err != nil {
		return fmt.Errorf("building PII scanner: %w", err)
	}

	moderator, err := moderate.NewModerator(
		moderate.WithKeywordReviewThreshold(cfg.KeywordReviewThreshold),
	)
	if err != nil {
		return fmt.Errorf("building moderator: %w", err)
	}
	pipeline := claim.NewPipeline(scanner, moderator)

	claimStore, err := store.NewStore(cfg.ClaimsDBPath())
	if err != nil {
		return fmt.Errorf("initializing claim store: %w", err)
	}
	defer claimStore.Close()

	auditStore, err := audit.NewStore(cfg.AuditDBPath(), cfg.SigningKey)
	if err != nil {
		return fmt.Errorf("initializing audit store: %w", err)
	}
	defer auditStore.Close()

	adminKeys := server.ParseAPIKeys(cfg.AdminAPIKeys)
	if len(adminKeys) == 0 {
		log.Warn().Msg("CLAIMS_ADMIN_API_KEYS not set, admin endpoints will return 401")
	}

	srv := server.New(claimStore, pipeline, scanner,
		server.WithAuditStore(auditStore),
		server.WithAdminKeys(adminKeys),
		server.WithRateLimiter(server.NewRateLimiter(cfg.GlobalSubmitRPM, cfg.PerCallerSubmitRPM)),
	)

	// Daily retention sweep: rejected claims past the window are removed.
	scheduler := cron.New()
	retention := time.Duration(cfg.RetentionDays) * 24 * time.Hour
	_, err = scheduler.AddFunc("@daily", func() {
		purged, err := claimStore.PurgeRejectedBefore(context.Background(), time.Now().UTC().Add(-retention))
		if err != nil {
			log.Error().Err(err).Msg("retention sweep failed")
			return
		}
		log.Info().Int64("purged", purged).Msg("retention sweep completed")
	})
	if err != nil {
		return fmt.Errorf("registering retention sweep: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	addr := fmt.Sprintf(":%d", cfg.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info().
		Str("addr", addr).
		Int("keyword_review_threshold", moderator.KeywordReviewThreshold()).
		Int("retention_days", cfg.RetentionDays).
		Msg("claimsd_serve_started")

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown_signal_received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("server_stopped")
	return nil
}
