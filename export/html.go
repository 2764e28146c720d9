package export

import (
	"context"
	"log/slog"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/svg"
	"github.com/use-agent/prerender/models"
)

type htmlProcessor struct{}

func (htmlProcessor) Format() models.FormatKind { return models.FormatHTML }

func (htmlProcessor) Process(ctx context.Context, st *State) ([]byte, error) {
	markup, err := st.Markup(ctx)
	if err != nil {
		return nil, err
	}
	return []byte(markup), nil
}

// newMinifier collapses whitespace and drops comments in markup and
// minifies inline CSS and SVG. Scripts are left untouched.
func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("image/svg+xml", svg.Minify)
	m.Add("text/html", &html.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
		KeepQuotes:       true,
	})
	return m
}

func minifyHTML(markup string) (string, error) {
	return newMinifier().String("text/html", markup)
}

type minifiedProcessor struct {
	minify func(markup string) (string, error)
	logger *slog.Logger
}

func (minifiedProcessor) Format() models.FormatKind { return models.FormatHTMLMinified }

// Process falls back to the unminified markup when minification fails so
// the artifact is never dropped for that reason.
func (p minifiedProcessor) Process(ctx context.Context, st *State) ([]byte, error) {
	markup, err := st.Markup(ctx)
	if err != nil {
		return nil, err
	}
	out, err := p.minify(markup)
	if err != nil {
		p.logger.Warn("minification failed, saving unminified markup",
			"url", st.Snapshot.URL, "error", err)
		return []byte(markup), nil
	}
	return []byte(out), nil
}
