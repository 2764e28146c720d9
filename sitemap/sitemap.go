// Package sitemap expands a run's start URL into the ordered list of pages
// to render.
package sitemap

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/use-agent/prerender/fetch"
	"github.com/use-agent/prerender/models"
)

// Getter fetches bytes given a URL. *fetch.Client satisfies it.
type Getter interface {
	Get(ctx context.Context, url string, cookies map[string]string) (*fetch.Response, error)
}

// urlset mirrors <urlset><url><loc>…</loc></url>…</urlset>.
type urlset struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc *string `xml:"loc"`
	} `xml:"url"`
}

// Resolver turns a start URL into the ordered page list.
type Resolver struct {
	getter Getter
}

// NewResolver creates a Resolver that downloads sitemaps through g.
func NewResolver(g Getter) *Resolver {
	return &Resolver{getter: g}
}

// IsSitemap reports whether rawURL is treated as a sitemap.
func IsSitemap(rawURL string) bool {
	return strings.HasSuffix(rawURL, ".xml")
}

// Resolve returns [rawURL] for ordinary pages. For sitemaps it downloads the
// document once and returns every <loc> in document order, duplicates
// included. Reachability of the pages themselves is not checked here.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) ([]string, error) {
	if !IsSitemap(rawURL) {
		return []string{rawURL}, nil
	}

	resp, err := r.getter.Get(ctx, rawURL, nil)
	if err != nil {
		return nil, models.NewError(models.ErrCodeFetch, "failed to download sitemap "+rawURL, err)
	}
	return Parse(resp.Body)
}

// Parse decodes a sitemap document into its <loc> values.
func Parse(doc []byte) ([]string, error) {
	var set urlset
	dec := xml.NewDecoder(bytes.NewReader(doc))
	if err := dec.Decode(&set); err != nil {
		return nil, models.NewError(models.ErrCodeMalformedSitemap, "sitemap is not a <urlset> document", err)
	}
	if len(set.URLs) == 0 {
		return nil, models.NewError(models.ErrCodeMalformedSitemap, "sitemap has no <url> entries", nil)
	}

	urls := make([]string, 0, len(set.URLs))
	for i, u := range set.URLs {
		if u.Loc == nil {
			return nil, models.NewError(models.ErrCodeMalformedSitemap,
				fmt.Sprintf("sitemap <url> entry %d has no <loc>", i), nil)
		}
		urls = append(urls, strings.TrimSpace(*u.Loc))
	}
	return urls, nil
}
