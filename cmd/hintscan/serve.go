package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/hintscan/internal/api"
	"github.com/gyaneshwarpardhi/hintscan/internal/builtin"
	"github.com/gyaneshwarpardhi/hintscan/internal/config"
	"github.com/gyaneshwarpardhi/hintscan/internal/engine"
)

var serveCmd = &cobra.Command{
	Use:   "serve [flags]",
	Short: "Serve the scan API over HTTP",
	Long:  `Serve runs scans submitted over HTTP on a bounded worker pool and hot-reloads the config file when it changes.`,
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "HTTP listen address")
}

func runServe(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	logger := slog.Default()

	// ── Load config ──────────────────────────────────────────────────────────
	path := configPath(cmd)
	if path == "" {
		return fmt.Errorf("serve needs a config file: pass --config or create ./%s", defaultConfigFile)
	}
	loader, err := config.NewLoader(path, logger)
	if err != nil {
		return err
	}

	// ── Engine ───────────────────────────────────────────────────────────────
	set := builtin.New()
	build := func(cfg *config.Config) (*engine.Engine, error) { return set.Engine(cfg, logger, nil) }
	e, err := build(loader.Config())
	if err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	logger.Info("engine built", "connector", e.Config().Connector.Name, "hints", len(e.Hints()))

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	sched := engine.NewScheduler(ctx, e)

	// ── Hot-reload watcher ───────────────────────────────────────────────────
	loader.OnChange(func(newCfg *config.Config) {
		next, err := build(newCfg)
		if err != nil {
			logger.Warn("hot-reload skipped: config invalid", "err", err)
			return
		}
		sched.SwapEngine(next)
		logger.Info("engine hot-reloaded", "hints", len(next.Hints()))
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		logger.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── HTTP server ──────────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:         addr,
		Handler:      api.New(sched, loader, build, set.Hints, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: time.Duration(e.Config().Engine.ScanTimeoutMs)*time.Millisecond + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errC := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errC <- err
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	select {
	case <-sigCtx.Done():
	case err := <-errC:
		return fmt.Errorf("server: %w", err)
	}
	logger.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	cancel() // stop scan workers
	sched.Shutdown()
	logger.Info("goodbye")
	return nil
}
