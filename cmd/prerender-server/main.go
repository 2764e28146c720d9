package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/prerender/api"
	"github.com/use-agent/prerender/app"
	"github.com/use-agent/prerender/config"
	"github.com/use-agent/prerender/jobs"
	"github.com/use-agent/prerender/webhook"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	logger := app.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)
	logger.Info("prerender-server starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"output", cfg.Output.Dir,
		"queue", cfg.Server.QueueSize,
	)

	// ── 3. Render pipeline (browser launches per job) ───────────────
	p := app.NewPipeline(cfg, logger)

	// ── 4. Job queue with a single worker ───────────────────────────
	notifier := webhook.New(cfg.Webhook, logger)
	queue := jobs.New(jobs.Options{
		Runner:   p.Runner,
		Notifier: notifier,
		Size:     cfg.Server.QueueSize,
		Logger:   logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx)

	// ── 5. Setup router ─────────────────────────────────────────────
	router := api.NewRouter(ctx, queue, p.Metrics, cfg, time.Now())

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("shutdown signal received", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server forced shutdown", "error", err)
	} else {
		logger.Info("HTTP server drained gracefully")
	}

	// A running batch stops after its current page and closes its browser.
	cancel()
	queue.Wait()
	notifier.Wait()
	logger.Info("prerender-server stopped")
}
