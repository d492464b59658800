package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clientdash/internal/router"
	"github.com/clientdash/internal/seed"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var (
	syncWebsiteID string
	syncSource    string

	rootCmd = &cobra.Command{
		Use:           "clientdash",
		Short:         "Client reporting dashboard: SEO and LLM visibility metrics",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE:  runServe,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		RunE:  runMigrate,
	}

	syncCmd = &cobra.Command{
		Use:   "sync",
		Short: "Sync one data source of a website now",
		RunE:  runSync,
	}

	seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "Create a demo tenant with simulated LLM data",
		RunE:  runSeed,
	}
)

func init() {
	syncCmd.Flags().StringVar(&syncWebsiteID, "website", "", "website ID")
	syncCmd.Flags().StringVar(&syncSource, "source", "", "source type (default google_search_console)")
	_ = syncCmd.MarkFlagRequired("website")

	rootCmd.AddCommand(serveCmd, migrateCmd, syncCmd, seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gin.SetMode(a.cfg.GinMode)
	r := router.SetupRouter(a.api(), router.Options{
		SessionSecret: a.cfg.SessionSecret,
		Logger:        a.logger,
		Metrics:       a.metrics,
	})

	if a.cfg.SchedulerEnabled {
		sched := a.scheduler()
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer func() { <-sched.Stop().Done() }()
	}

	srv := &http.Server{
		Addr:              a.cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("run server: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runMigrate(*cobra.Command, []string) error {
	a, err := loadApp(true)
	if err != nil {
		return err
	}
	defer a.close()
	a.logger.Info("database migrated", "driver", a.cfg.DatabaseDriver)
	return nil
}

func runSync(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.syncs.Sync(cmd.Context(), syncWebsiteID, syncSource)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s synced: %d metric rows, %d query rows, %d page rows (%s..%s)\n",
		result.SourceType.DisplayName(), result.MetricRows, result.QueryRows, result.PageRows,
		result.Window.Start, result.Window.End)
	return nil
}

func runSeed(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	result, err := seed.Run(cmd.Context(), a.db, a.box, a.logger)
	if err != nil {
		return err
	}
	if result.Skipped {
		fmt.Fprintf(cmd.OutOrStdout(), "demo tenant already exists (website %s)\n", result.WebsiteID)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "demo website %s: %d sources, %d keywords, %d recommendations\n",
		result.WebsiteID, result.Sources, result.Keywords, result.Recommendations)
	return nil
}
