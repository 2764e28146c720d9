package sitemap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/use-agent/prerender/fetch"
	"github.com/use-agent/prerender/models"
)

const threePages = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://x.test/</loc><lastmod>2024-01-01</lastmod></url>
  <url><loc>
    https://x.test/about/
  </loc></url>
  <url><loc>https://x.test/</loc></url>
</urlset>`

func newResolver(t *testing.T, url string, responder httpmock.Responder) *Resolver {
	t.Helper()
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", url, responder)
	return NewResolver(fetch.New(fetch.Options{Transport: transport}))
}

func TestResolvePlainURL(t *testing.T) {
	r := NewResolver(fetch.New(fetch.Options{Transport: httpmock.NewMockTransport()}))

	for _, in := range []string{"https://x.test/", "https://x.test/page?q=1", "https://x.test/feed.xml?v=2"} {
		got, err := r.Resolve(context.Background(), in)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", in, err)
		}
		if !reflect.DeepEqual(got, []string{in}) {
			t.Errorf("Resolve(%q) = %v, want [%s]", in, got, in)
		}
	}
}

func TestResolveSitemapKeepsOrderAndDuplicates(t *testing.T) {
	r := newResolver(t, "https://x.test/sitemap.xml", httpmock.NewStringResponder(http.StatusOK, threePages))

	got, err := r.Resolve(context.Background(), "https://x.test/sitemap.xml")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []string{"https://x.test/", "https://x.test/about/", "https://x.test/"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Resolve = %v, want %v", got, want)
	}
}

func TestResolveSitemapErrors(t *testing.T) {
	tests := []struct {
		name      string
		responder httpmock.Responder
		wantCode  string
	}{
		{"http error", httpmock.NewStringResponder(http.StatusInternalServerError, "boom"), models.ErrCodeFetch},
		{"transport error", httpmock.NewErrorResponder(errors.New("dial tcp: refused")), models.ErrCodeFetch},
		{"not xml", httpmock.NewStringResponder(http.StatusOK, "<html><body>hi</body></html>"), models.ErrCodeMalformedSitemap},
		{"sitemap index", httpmock.NewStringResponder(http.StatusOK, `<sitemapindex><sitemap><loc>https://x.test/a.xml</loc></sitemap></sitemapindex>`), models.ErrCodeMalformedSitemap},
		{"empty urlset", httpmock.NewStringResponder(http.StatusOK, `<urlset></urlset>`), models.ErrCodeMalformedSitemap},
		{"missing loc", httpmock.NewStringResponder(http.StatusOK, `<urlset><url><lastmod>2024</lastmod></url></urlset>`), models.ErrCodeMalformedSitemap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newResolver(t, "https://x.test/sitemap.xml", tt.responder)
			_, err := r.Resolve(context.Background(), "https://x.test/sitemap.xml")
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if code := models.CodeOf(err); code != tt.wantCode {
				t.Errorf("code = %s, want %s (err: %v)", code, tt.wantCode, err)
			}
			if !models.IsResolutionError(err) {
				t.Errorf("IsResolutionError(%v) = false", err)
			}
		})
	}
}

func TestResolveLargeSitemap(t *testing.T) {
	const pages = 260000
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">` + "\n")
	for i := range pages {
		fmt.Fprintf(&b, "  <url><loc>https://x.test/articles/%09d/</loc><lastmod>2024-01-01</lastmod></url>\n", i)
	}
	b.WriteString("</urlset>\n")
	doc := b.String()
	if len(doc) <= 20<<20 {
		t.Fatalf("fixture is only %d bytes", len(doc))
	}

	r := newResolver(t, "https://x.test/sitemap.xml", httpmock.NewStringResponder(http.StatusOK, doc))
	got, err := r.Resolve(context.Background(), "https://x.test/sitemap.xml")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(got) != pages {
		t.Fatalf("got %d urls, want %d", len(got), pages)
	}
	if got[pages-1] != fmt.Sprintf("https://x.test/articles/%09d/", pages-1) {
		t.Errorf("last url = %q", got[pages-1])
	}
}

func TestResolveOversizedSitemapIsFetchFailure(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://x.test/sitemap.xml",
		httpmock.NewStringResponder(http.StatusOK, threePages))
	r := NewResolver(fetch.New(fetch.Options{Transport: transport, MaxBody: 64}))

	_, err := r.Resolve(context.Background(), "https://x.test/sitemap.xml")
	if code := models.CodeOf(err); code != models.ErrCodeFetch {
		t.Fatalf("code = %s, want %s (err: %v)", code, models.ErrCodeFetch, err)
	}
	if !errors.Is(err, fetch.ErrBodyTooLarge) {
		t.Errorf("expected ErrBodyTooLarge in chain, got %v", err)
	}
}
