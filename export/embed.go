package export

import (
	"context"
	"encoding/base64"
	"log/slog"
	"maps"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/use-agent/prerender/cache"
	"github.com/use-agent/prerender/fetch"
	"github.com/use-agent/prerender/models"
)

// embeddedProcessor inlines every <img> of the live page as a data URI and
// then serializes the document. It mutates the DOM, so it runs after the
// plain HTML and text formats.
type embeddedProcessor struct {
	fetcher *fetch.Client
	timeout time.Duration
	logger  *slog.Logger
}

func (*embeddedProcessor) Format() models.FormatKind { return models.FormatHTMLEmbedded }

func (p *embeddedProcessor) Process(ctx context.Context, st *State) ([]byte, error) {
	page := st.Snapshot.Page

	srcs, err := page.ImageSources(ctx)
	if err != nil {
		return nil, err
	}

	replacements := make(map[string]string)
	for _, src := range srcs {
		if _, done := replacements[src]; done || !isRemote(src) {
			continue
		}
		if dataURI := p.inline(ctx, st.images, src, st.Request); dataURI != "" {
			replacements[src] = dataURI
		}
	}

	n, err := page.ReplaceImageSources(ctx, replacements)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("images inlined", "url", st.Snapshot.URL, "images", len(srcs), "replaced", n)

	raw, err := page.HTML(ctx)
	if err != nil {
		return nil, err
	}
	return []byte(stamp(st.now()) + raw), nil
}

// inline returns the data URI for src, or "" when it cannot be fetched.
// Failures leave the original reference in place. images may be nil.
func (p *embeddedProcessor) inline(ctx context.Context, images *cache.Cache, src string, req *models.CaptureRequest) string {
	cookies := cookiesFor(src, req)
	key := imageKey(src, cookies)
	if dataURI, ok := images.Get(key); ok {
		return dataURI
	}
	if p.fetcher == nil {
		return ""
	}

	fctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.fetcher.Get(fctx, src, cookies)
	if err != nil {
		p.logger.Debug("image fetch failed", "src", src, "error", err)
		if ctx.Err() == nil {
			images.SetFailed(key)
		}
		return ""
	}

	dataURI := DataURI(resp.Body, resp.ContentType)
	images.Set(key, dataURI)
	return dataURI
}

// imageKey scopes a cached image to the cookies it was requested with.
func imageKey(src string, cookies map[string]string) string {
	if len(cookies) == 0 {
		return src
	}
	var b strings.Builder
	b.WriteString(src)
	for _, name := range slices.Sorted(maps.Keys(cookies)) {
		b.WriteString("\x00" + name + "=" + cookies[name])
	}
	return b.String()
}

// DataURI encodes body as a base64 data URI. The declared content type is
// used when it names an image; otherwise the type is sniffed.
func DataURI(body []byte, contentType string) string {
	mime := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	if !strings.HasPrefix(mime, "image/") {
		mime = mimetype.Detect(body).String()
		mime = strings.SplitN(mime, ";", 2)[0]
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(body)
}

func isRemote(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// cookiesFor forwards the run's cookies only to the host they were set on.
func cookiesFor(src string, req *models.CaptureRequest) map[string]string {
	if req == nil || len(req.Cookies) == 0 {
		return nil
	}
	u, err := url.Parse(src)
	if err != nil || u.Hostname() != req.CookieDomain() {
		return nil
	}
	return req.Cookies
}
