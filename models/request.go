package models

import (
	"fmt"
	"net/url"
	"strings"
)

// FormatKind names one export format of a captured page.
type FormatKind string

const (
	FormatHTML         FormatKind = "html"
	FormatHTMLMinified FormatKind = "html-minified"
	FormatHTMLEmbedded FormatKind = "html-embedded"
	FormatScreenshot   FormatKind = "screenshot"
	FormatPDF          FormatKind = "pdf"
	FormatText         FormatKind = "text"
)

// AllFormats lists every supported format in export order.
var AllFormats = []FormatKind{
	FormatHTML,
	FormatHTMLMinified,
	FormatText,
	FormatHTMLEmbedded,
	FormatScreenshot,
	FormatPDF,
}

// Valid reports whether f is one of the known formats.
func (f FormatKind) Valid() bool {
	for _, k := range AllFormats {
		if f == k {
			return true
		}
	}
	return false
}

// ParseFormats converts raw format names into FormatKinds. Unknown names are
// dropped and returned separately so the caller can log them; duplicates
// keep their first position.
func ParseFormats(raw []string) (formats []FormatKind, unknown []string) {
	seen := make(map[FormatKind]struct{}, len(raw))
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			name := strings.ToLower(strings.TrimSpace(part))
			if name == "" {
				continue
			}
			f := FormatKind(name)
			if !f.Valid() {
				unknown = append(unknown, name)
				continue
			}
			if _, dup := seen[f]; dup {
				continue
			}
			seen[f] = struct{}{}
			formats = append(formats, f)
		}
	}
	return formats, unknown
}

// Default values applied by CaptureRequest.Defaults.
const (
	DefaultViewportWidth  = 1024
	DefaultViewportHeight = 1000
	DefaultOutputDir      = "./output"
)

// CaptureRequest describes one rendering run. It is built once per run by
// the CLI, config file or API layer and shared by every URL in the batch.
type CaptureRequest struct {
	// URL is a single page or a sitemap (suffix ".xml"). Required.
	URL string `json:"url" binding:"required,url"`

	// Formats is the set of artifacts to export for each page. Required.
	Formats []FormatKind `json:"formats" binding:"required,min=1"`

	// OutputDir receives artifacts and telemetry files.
	// Default: "./output".
	OutputDir string `json:"output,omitempty"`

	// ViewportWidth is the browser viewport width in CSS pixels.
	// It also appears in screenshot file names. Default: 1024.
	ViewportWidth int `json:"width,omitempty" binding:"omitempty,min=1,max=7680"`

	// ViewportHeight is the browser viewport height. Default: 1000.
	ViewportHeight int `json:"height,omitempty" binding:"omitempty,min=1,max=7680"`

	// Cookies are set on the hostname of URL before the first navigation.
	Cookies map[string]string `json:"cookies,omitempty"`

	// CSV enables the timing.csv log.
	CSV bool `json:"csv,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *CaptureRequest) Defaults() {
	if r.OutputDir == "" {
		r.OutputDir = DefaultOutputDir
	}
	if r.ViewportWidth == 0 {
		r.ViewportWidth = DefaultViewportWidth
	}
	if r.ViewportHeight == 0 {
		r.ViewportHeight = DefaultViewportHeight
	}
}

// Validate checks the request invariants: an absolute http(s) URL, at least
// one known format and a positive viewport.
func (r *CaptureRequest) Validate() error {
	u, err := url.Parse(r.URL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return NewError(ErrCodeInvalidInput, fmt.Sprintf("url %q is not an absolute URL", r.URL), err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return NewError(ErrCodeInvalidInput, fmt.Sprintf("unsupported url scheme %q", u.Scheme), nil)
	}

	valid := 0
	for _, f := range r.Formats {
		if f.Valid() {
			valid++
		}
	}
	if valid == 0 {
		return NewError(ErrCodeInvalidInput, "at least one output format is required", nil)
	}
	if r.ViewportWidth <= 0 || r.ViewportHeight <= 0 {
		return NewError(ErrCodeInvalidInput, "viewport dimensions must be positive", nil)
	}
	return nil
}

// Wants reports whether format f was requested.
func (r *CaptureRequest) Wants(f FormatKind) bool {
	for _, k := range r.Formats {
		if k == f {
			return true
		}
	}
	return false
}

// CookieDomain returns the hostname that configured cookies are scoped to:
// the host of the original top-level URL, never the individual page.
func (r *CaptureRequest) CookieDomain() string {
	u, err := url.Parse(r.URL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
