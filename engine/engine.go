// Package engine defines the browser capability the capture pipeline drives.
// The rod implementation lives in package scraper; tests use fakes.
package engine

import (
	"context"

	"github.com/use-agent/prerender/models"
)

// Driver starts browser sessions.
type Driver interface {
	// Open launches the browser and prepares the single tab used for every
	// page of a batch: viewport, cookies, emulation. The caller must Close
	// the session on every exit path.
	Open(ctx context.Context, req *models.CaptureRequest) (Session, error)
}

// Session owns one browser tab that is reused sequentially across URLs.
// It is not safe for concurrent use.
type Session interface {
	// Capture navigates to url, waits for the page to settle and returns a
	// snapshot. An error fails this URL only; the session stays usable.
	Capture(ctx context.Context, url string) (*Snapshot, error)

	// Close releases the tab and the browser process.
	Close() error
}

// Page is the live handle of a captured page used by the post-processors.
// Calls operate on the current DOM, so mutations (image inlining) are seen
// by every later call.
type Page interface {
	// HTML serializes the current document's outer markup.
	HTML(ctx context.Context) (string, error)

	// Text returns the user-visible text of the document body.
	Text(ctx context.Context) (string, error)

	// ImageSources lists the resolved src of every <img>, in document order.
	ImageSources(ctx context.Context) ([]string, error)

	// ReplaceImageSources rewrites the src of every <img> whose resolved src
	// is a key of replacements. It returns the number of elements changed.
	ReplaceImageSources(ctx context.Context, replacements map[string]string) (int, error)

	// Screenshot captures the whole scrolled page as PNG.
	Screenshot(ctx context.Context) ([]byte, error)

	// PDF prints the page onto A4 sheets with backgrounds.
	PDF(ctx context.Context) ([]byte, error)
}

// Snapshot is a page brought to a stable state.
type Snapshot struct {
	URL      string
	HTML     string
	Page     Page
	Metadata *models.PageMetadata
}
