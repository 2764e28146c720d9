// Package pipeline drives a render batch: resolve the URL set, capture each
// page in one shared browser tab, export the requested artifacts and write
// the run telemetry.
package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/use-agent/prerender/engine"
	"github.com/use-agent/prerender/export"
	"github.com/use-agent/prerender/models"
	"github.com/use-agent/prerender/telemetry"
)

// Resolver expands the run URL into the pages to render.
type Resolver interface {
	Resolve(ctx context.Context, url string) ([]string, error)
}

// Options configures a Runner. Resolver, Driver and Exporter are required.
type Options struct {
	Resolver Resolver
	Driver   engine.Driver
	Exporter *export.Exporter

	// Metrics may be nil.
	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// Runner executes render batches. A Runner may be reused for several
// batches but runs them one at a time; each Run owns its browser.
type Runner struct {
	resolver Resolver
	driver   engine.Driver
	exporter *export.Exporter
	metrics  *telemetry.Metrics
	logger   *slog.Logger
}

// New creates a Runner.
func New(opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Runner{
		resolver: opts.Resolver,
		driver:   opts.Driver,
		exporter: opts.Exporter,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}
}

// Run renders every page of req.
//
// An invalid request, an unusable output directory, a resolution failure
// or a browser that cannot start aborts the run with an error and no
// report. Once pages are being rendered, failures are recorded per page
// and the batch continues. Cancelling ctx stops the batch between pages;
// the report then covers the pages attempted so far.
func (r *Runner) Run(ctx context.Context, req *models.CaptureRequest) (*models.BatchReport, error) {
	req.Defaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return nil, models.NewError(models.ErrCodeWrite, "cannot create output directory "+req.OutputDir, err)
	}

	urls, err := r.resolver.Resolve(ctx, req.URL)
	if err != nil {
		r.metrics.IncError(models.CodeOf(err))
		r.logger.Error("url resolution failed", "url", req.URL, "error", err)
		return nil, err
	}
	r.logger.Info("render started",
		"url", req.URL,
		"pages", len(urls),
		"formats", req.Formats,
		"output", req.OutputDir,
	)

	session, err := r.driver.Open(ctx, req)
	if err != nil {
		r.metrics.IncError(models.CodeOf(err))
		return nil, err
	}
	defer func() {
		if err := session.Close(); err != nil {
			r.logger.Warn("browser close failed", "error", err)
		}
	}()

	batch := r.exporter.NewBatch()
	report := models.NewBatchReport()
	for i, u := range urls {
		if ctx.Err() != nil {
			r.logger.Warn("render interrupted", "attempted", i, "remaining", len(urls)-i)
			break
		}

		res := r.renderPage(ctx, session, batch, req, u)
		report.Append(res)
		r.metrics.ObservePage(&res)

		if res.Succeeded {
			r.logger.Debug("page rendered", "url", u, "artifacts", len(res.Artifacts), "duration_ms", res.DurationMs)
		} else {
			r.logger.Error("page failed", "url", u, "error", res.ErrorMessage())
		}
	}
	report.FinishedAt = time.Now()

	if err := telemetry.Write(report, req.OutputDir, req.CSV); err != nil {
		r.logger.Error("telemetry write failed", "error", err)
	}
	r.metrics.ObserveBatch(report)

	r.logger.Info("render completed",
		"succeeded", report.Succeeded(),
		"failed", report.Failed(),
		"elapsed", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond),
	)
	return report, nil
}

// renderPage captures, exports and writes one URL. It never returns an
// error: every failure is folded into the result.
func (r *Runner) renderPage(ctx context.Context, session engine.Session, batch *export.Batch, req *models.CaptureRequest, url string) models.PageResult {
	start := time.Now()
	fail := func(err error) models.PageResult {
		return models.PageResult{
			URL:        url,
			DurationMs: time.Since(start).Milliseconds(),
			Error:      &models.ErrorDetail{Code: models.CodeOf(err), Message: err.Error()},
		}
	}

	snap, err := session.Capture(ctx, url)
	if err != nil {
		return fail(err)
	}

	artifacts := batch.Run(ctx, snap, req)
	for i, a := range artifacts {
		path := filepath.Join(req.OutputDir, a.Filename)
		if err := os.WriteFile(path, a.Data, 0o644); err != nil {
			return fail(models.NewError(models.ErrCodeWrite, "cannot write "+path, err))
		}
		artifacts[i].Data = nil
	}

	return models.PageResult{
		URL:        url,
		Succeeded:  true,
		DurationMs: time.Since(start).Milliseconds(),
		Artifacts:  artifacts,
		Metadata:   snap.Metadata,
	}
}
