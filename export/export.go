// Package export turns a captured page into artifacts: HTML snapshots,
// screenshots, PDFs and plain text.
package export

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/prerender/cache"
	"github.com/use-agent/prerender/engine"
	"github.com/use-agent/prerender/fetch"
	"github.com/use-agent/prerender/models"
	"github.com/use-agent/prerender/naming"
)

// Processor produces one artifact format from a captured page.
type Processor interface {
	Format() models.FormatKind
	Process(ctx context.Context, st *State) ([]byte, error)
}

// State is shared by the processors of one page. Processors run in
// models.AllFormats order: markup and text are read before the image
// inliner mutates the DOM, screenshot and PDF after it.
type State struct {
	Snapshot *engine.Snapshot
	Request  *models.CaptureRequest

	now    func() time.Time
	markup string
	images *cache.Cache
}

// Markup returns the timestamped outer HTML of the page as first
// serialized for this page. Later calls reuse it.
func (st *State) Markup(ctx context.Context) (string, error) {
	if st.markup != "" {
		return st.markup, nil
	}
	raw, err := st.Snapshot.Page.HTML(ctx)
	if err != nil {
		return "", err
	}
	st.markup = stamp(st.now()) + raw
	return st.markup, nil
}

// stamp is the comment prepended to every saved HTML document.
func stamp(t time.Time) string {
	return "<!-- Page saved offline on " + t.UTC().Format("2006-01-02 15:04:05") + " -->\n"
}

// Options configures an Exporter.
type Options struct {
	// Fetcher downloads images for the html-embedded format.
	Fetcher *fetch.Client

	// ImageCacheSize and ImageCacheTTL size the image cache each batch
	// gets from NewBatch. Defaults: 512 entries, one hour.
	ImageCacheSize int
	ImageCacheTTL  time.Duration

	// ImageTimeout bounds each image download.
	ImageTimeout time.Duration

	Logger *slog.Logger

	// Now stamps saved HTML. Defaults to time.Now.
	Now func() time.Time
}

// Exporter runs the processors requested for a page.
type Exporter struct {
	processors map[models.FormatKind]Processor
	logger     *slog.Logger
	now        func() time.Time

	cacheSize int
	cacheTTL  time.Duration
}

// New creates an Exporter with every built-in processor.
func New(opts Options) *Exporter {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ImageTimeout <= 0 {
		opts.ImageTimeout = 15 * time.Second
	}
	if opts.ImageCacheTTL <= 0 {
		opts.ImageCacheTTL = time.Hour
	}

	e := &Exporter{
		processors: make(map[models.FormatKind]Processor),
		logger:     opts.Logger,
		now:        opts.Now,
		cacheSize:  opts.ImageCacheSize,
		cacheTTL:   opts.ImageCacheTTL,
	}
	e.Register(htmlProcessor{})
	e.Register(minifiedProcessor{minify: minifyHTML, logger: opts.Logger})
	e.Register(textProcessor{})
	e.Register(&embeddedProcessor{
		fetcher: opts.Fetcher,
		timeout: opts.ImageTimeout,
		logger:  opts.Logger,
	})
	e.Register(screenshotProcessor{})
	e.Register(pdfProcessor{logger: opts.Logger})
	return e
}

// Register adds or replaces the processor for p.Format().
func (e *Exporter) Register(p Processor) {
	e.processors[p.Format()] = p
}

// Batch exports the pages of one render batch. Inlined images are cached
// for the lifetime of the Batch and never shared with another one.
type Batch struct {
	exporter *Exporter
	images   *cache.Cache
}

// NewBatch starts a batch with an empty image cache.
func (e *Exporter) NewBatch() *Batch {
	return &Batch{exporter: e, images: cache.New(e.cacheSize, e.cacheTTL)}
}

// Run exports snap, reusing images inlined for earlier pages of the batch.
func (b *Batch) Run(ctx context.Context, snap *engine.Snapshot, req *models.CaptureRequest) []models.Artifact {
	return b.exporter.run(ctx, snap, req, b.images)
}

// Run exports a single page outside any batch. Nothing is cached.
func (e *Exporter) Run(ctx context.Context, snap *engine.Snapshot, req *models.CaptureRequest) []models.Artifact {
	return e.run(ctx, snap, req, nil)
}

// run produces the artifacts requested by req for snap. A processor that
// fails is logged and its artifact omitted; the page still counts as
// rendered. Each artifact's size is recorded in snap.Metadata.
func (e *Exporter) run(ctx context.Context, snap *engine.Snapshot, req *models.CaptureRequest, images *cache.Cache) []models.Artifact {
	if snap.Metadata == nil {
		snap.Metadata = &models.PageMetadata{}
	}
	st := &State{Snapshot: snap, Request: req, now: e.now, images: images}

	artifacts := make([]models.Artifact, 0, len(req.Formats))
	for _, f := range models.AllFormats {
		if !req.Wants(f) {
			continue
		}
		p, ok := e.processors[f]
		if !ok {
			continue
		}

		data, err := p.Process(ctx, st)
		if err != nil {
			perr := models.NewError(models.ErrCodePostProcess, string(f)+" export failed", err)
			e.logger.Warn("artifact skipped", "url", snap.URL, "format", f, "error", perr)
			continue
		}

		snap.Metadata.RecordSize(f, len(data))
		artifacts = append(artifacts, models.Artifact{
			Format:   f,
			Data:     data,
			Filename: naming.FileName(snap.URL, f, req.ViewportWidth),
			Size:     len(data),
		})
	}
	return artifacts
}
