package scraper

import (
	"log/slog"
	nurl "net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	readability "github.com/go-shiori/go-readability"
	"github.com/use-agent/prerender/fingerprint"
	"github.com/use-agent/prerender/models"
)

// Fixed metadata selectors. A missing element yields "".
var (
	titleSel       = cascadia.MustCompile("head > title, title")
	descriptionSel = cascadia.MustCompile(`meta[name="description"], meta[name="Description"]`)
	canonicalSel   = cascadia.MustCompile(`link[rel="canonical"]`)
	headingSel     = cascadia.MustCompile("h1")
)

// ExtractMetadata reads page metadata from rendered markup. It never fails:
// unparseable markup or absent elements give empty fields.
func ExtractMetadata(rawHTML, pageURL string, logger *slog.Logger) *models.PageMetadata {
	meta := &models.PageMetadata{
		FileSizes: make(map[models.FormatKind]int),
		DOMHash:   fingerprint.Hex(fingerprint.DOM(rawHTML)),
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		logger.Debug("metadata: markup not parseable", "url", pageURL, "error", err)
		return meta
	}

	meta.Title = collapse(doc.FindMatcher(titleSel).First().Text())
	meta.Description = strings.TrimSpace(doc.FindMatcher(descriptionSel).First().AttrOr("content", ""))
	meta.Canonical = strings.TrimSpace(doc.FindMatcher(canonicalSel).First().AttrOr("href", ""))
	meta.Heading = collapse(doc.FindMatcher(headingSel).First().Text())

	enrichFromReadability(meta, rawHTML, pageURL, logger)
	return meta
}

// enrichFromReadability adds article-level fields when the page has a
// readable main body. Failures only cost the optional fields.
func enrichFromReadability(meta *models.PageMetadata, rawHTML, pageURL string, logger *slog.Logger) {
	parsedURL, err := nurl.Parse(pageURL)
	if err != nil {
		return
	}
	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		logger.Debug("metadata: readability failed", "url", pageURL, "error", err)
		return
	}

	meta.Byline = strings.TrimSpace(article.Byline)
	meta.SiteName = strings.TrimSpace(article.SiteName)
	meta.Excerpt = strings.TrimSpace(article.Excerpt)
	meta.Language = strings.TrimSpace(article.Language)

	if text := strings.TrimSpace(article.TextContent); text != "" {
		meta.WordCount = len(strings.Fields(text))
		meta.TextHash = fingerprint.Hex(fingerprint.Text(text))
	}
}

// collapse trims s and folds internal whitespace runs into single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
