package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/stormwater-tools/stormstats/api"
	"github.com/stormwater-tools/stormstats/internal/config"
	"github.com/stormwater-tools/stormstats/internal/db"
	"github.com/stormwater-tools/stormstats/internal/hydro"
	"github.com/stormwater-tools/stormstats/internal/logging"
	"github.com/stormwater-tools/stormstats/internal/mcpserver"
	"github.com/stormwater-tools/stormstats/internal/web"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "stormstats",
		Short:        "Rain event and runoff statistics service for stormwater BMP monitoring",
		SilenceUsage: true,
		RunE:         runServe,
	}

	f := rootCmd.PersistentFlags()
	f.Int("port", 8080, "HTTP port")
	f.String("state-dir", "/state", "directory for the analysis database")
	f.String("spec-url", "/api/openapi.yaml", "OpenAPI document URL the docs page loads")
	f.Float64("drain-interval-hours", hydro.DefaultDrainInterval.Hours(), "dry gap in hours that separates rain events")
	f.Bool("persist", false, "store analysis requests and results")
	f.String("log-level", "info", "log level (debug, info, warn, error)")
	f.Bool("dev", false, "human readable console logs")

	// Viper keys use underscores so they match the env var suffix after
	// stripping the STORMSTATS_ prefix.
	bindFlag := func(viperKey, flagName string) {
		_ = viper.BindPFlag(viperKey, f.Lookup(flagName))
	}
	bindFlag("port", "port")
	bindFlag("state_dir", "state-dir")
	bindFlag("spec_url", "spec-url")
	bindFlag("drain_interval_hours", "drain-interval-hours")
	bindFlag("persist", "persist")
	bindFlag("log_level", "log-level")
	bindFlag("dev", "dev")

	viper.SetEnvPrefix("STORMSTATS")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	rootCmd.AddCommand(&cobra.Command{
		Use:   "mcp",
		Short: "Serve the statistics tools over MCP stdio",
		RunE:  runMCP,
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.Version)
		},
	})

	return rootCmd
}

func loadConfig(logOut io.Writer) (config.Config, *zap.SugaredLogger, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}
	log, err := logging.New(logOut, cfg.LogLevel, cfg.Dev)
	if err != nil {
		return cfg, nil, err
	}
	zap.ReplaceGlobals(log.Desugar())
	return cfg, log, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(os.Stdout)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	log.Infow("stormstats starting",
		"version", config.Version,
		"port", cfg.Port,
		"state_dir", cfg.StateDir,
		"spec_url", cfg.SpecURL,
		"drain_interval", cfg.DrainInterval(),
		"persist", cfg.Persist,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	doc, err := api.Load(ctx)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	database, err := db.Open(filepath.Join(cfg.StateDir, "stormstats.db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close() //nolint:errcheck

	webServer := web.New(&cfg, log, database, doc)
	if _, err := webServer.LoadDocs(); err != nil {
		return fmt.Errorf("docs widget: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- webServer.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("web server: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Infow("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := webServer.Shutdown(shutdownCtx); err != nil {
		log.Warnw("web server shutdown", "error", err)
	}
	return nil
}

func runMCP(cmd *cobra.Command, args []string) error {
	// stdout carries the protocol.
	cfg, log, err := loadConfig(os.Stderr)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	s := mcpserver.NewServer(hydro.NewAnalyzer(cfg.DrainInterval()), log)
	return s.Serve(ctx, os.Stdin, os.Stdout)
}
