// Package naming maps page URLs to artifact file names.
//
// The mapping is deliberately lossy: query strings and fragments are
// ignored and nothing is percent-decoded, so two URLs that differ only in
// their query collide and the later one overwrites the earlier artifacts.
package naming

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/use-agent/prerender/models"
)

// BaseName derives the file base name of a page: the URL path without its
// leading and trailing slash, with inner slashes replaced by underscores.
// The site root maps to "index".
func BaseName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "index"
	}
	p := u.EscapedPath()
	if p == "" || p == "/" {
		return "index"
	}
	p = strings.TrimSuffix(p, "/")
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return "index"
	}
	return strings.ReplaceAll(p, "/", "_")
}

// Suffix returns the file suffix of an artifact format. width is only used
// by screenshots, so captures at different viewports do not overwrite each
// other.
func Suffix(f models.FormatKind, width int) string {
	switch f {
	case models.FormatHTML:
		return ".html"
	case models.FormatHTMLMinified:
		return "_minified.html"
	case models.FormatHTMLEmbedded:
		return "_embedded.html"
	case models.FormatScreenshot:
		return "_" + strconv.Itoa(width) + "px.png"
	case models.FormatPDF:
		return ".pdf"
	case models.FormatText:
		return ".txt"
	}
	return ""
}

// FileName is BaseName(rawURL) + Suffix(f, width).
func FileName(rawURL string, f models.FormatKind, width int) string {
	return BaseName(rawURL) + Suffix(f, width)
}
