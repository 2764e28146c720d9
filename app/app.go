// Package app assembles the render pipeline from configuration. Both the
// CLI and the HTTP server start here.
package app

import (
	"io"
	"log/slog"
	"strings"

	"github.com/use-agent/prerender/config"
	"github.com/use-agent/prerender/export"
	"github.com/use-agent/prerender/fetch"
	"github.com/use-agent/prerender/pipeline"
	"github.com/use-agent/prerender/scraper"
	"github.com/use-agent/prerender/sitemap"
	"github.com/use-agent/prerender/telemetry"
)

// NewLogger builds the slog logger described by cfg, writing to w.
func NewLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Pipeline is the wired render stack.
type Pipeline struct {
	Runner  *pipeline.Runner
	Metrics *telemetry.Metrics
}

// NewPipeline wires fetcher, sitemap resolver, browser driver, exporters
// and metrics from cfg.
func NewPipeline(cfg *config.Config, logger *slog.Logger) *Pipeline {
	fetcher := fetch.New(fetch.Options{
		Proxy:   cfg.Browser.Proxy,
		Timeout: cfg.Capture.NavigationTimeout,
	})
	metrics := telemetry.NewMetrics()

	runner := pipeline.New(pipeline.Options{
		Resolver: sitemap.NewResolver(fetcher),
		Driver:   scraper.NewDriver(cfg.Browser, cfg.Capture, logger),
		Exporter: export.New(export.Options{
			Fetcher:        fetcher,
			ImageTimeout:   cfg.Capture.ImageFetchTimeout,
			ImageCacheSize: cfg.Cache.MaxEntries,
			ImageCacheTTL:  cfg.Cache.TTL,
			Logger:         logger,
		}),
		Metrics: metrics,
		Logger:  logger,
	})

	return &Pipeline{Runner: runner, Metrics: metrics}
}
