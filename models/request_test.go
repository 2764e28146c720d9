package models

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name    string
		raw     []string
		want    []FormatKind
		unknown []string
	}{
		{"single", []string{"html"}, []FormatKind{FormatHTML}, nil},
		{"comma list", []string{"pdf, Screenshot"}, []FormatKind{FormatPDF, FormatScreenshot}, nil},
		{"duplicates keep first", []string{"text", "html", "text"}, []FormatKind{FormatText, FormatHTML}, nil},
		{"unknown dropped", []string{"html", "markdown"}, []FormatKind{FormatHTML}, []string{"markdown"}},
		{"empty", []string{"", " "}, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, unknown := ParseFormats(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("formats = %v, want %v", got, tt.want)
			}
			if !reflect.DeepEqual(unknown, tt.unknown) {
				t.Errorf("unknown = %v, want %v", unknown, tt.unknown)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  CaptureRequest
		ok   bool
	}{
		{"valid", CaptureRequest{URL: "https://x.test/", Formats: []FormatKind{FormatHTML}}, true},
		{"relative url", CaptureRequest{URL: "/docs", Formats: []FormatKind{FormatHTML}}, false},
		{"ftp scheme", CaptureRequest{URL: "ftp://x.test/a", Formats: []FormatKind{FormatHTML}}, false},
		{"no formats", CaptureRequest{URL: "https://x.test/"}, false},
		{"only unknown formats", CaptureRequest{URL: "https://x.test/", Formats: []FormatKind{"gif"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Defaults()
			err := tt.req.Validate()
			if tt.ok {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if CodeOf(err) != ErrCodeInvalidInput {
				t.Fatalf("code = %q, want %q", CodeOf(err), ErrCodeInvalidInput)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	r := CaptureRequest{URL: "https://x.test/"}
	r.Defaults()
	if r.OutputDir != DefaultOutputDir || r.ViewportWidth != 1024 || r.ViewportHeight != 1000 {
		t.Errorf("defaults not applied: %+v", r)
	}

	r = CaptureRequest{ViewportWidth: 375, OutputDir: "out"}
	r.Defaults()
	if r.ViewportWidth != 375 || r.OutputDir != "out" {
		t.Errorf("explicit values overwritten: %+v", r)
	}
}

func TestCookieDomain(t *testing.T) {
	r := CaptureRequest{URL: "https://docs.x.test:8443/sitemap.xml"}
	if got := r.CookieDomain(); got != "docs.x.test" {
		t.Errorf("CookieDomain = %q", got)
	}
}

func TestErrorClassification(t *testing.T) {
	wrapped := fmt.Errorf("resolve: %w", NewError(ErrCodeMalformedSitemap, "no urls", nil))
	if !IsResolutionError(wrapped) {
		t.Error("malformed sitemap should be a resolution error")
	}
	if IsPageError(wrapped) {
		t.Error("malformed sitemap is not a page error")
	}
	if !IsPageError(NewError(ErrCodeNavigation, "boom", nil)) {
		t.Error("navigation failure should be a page error")
	}
	if CodeOf(errors.New("plain")) != ErrCodeInternal {
		t.Error("plain errors map to INTERNAL_ERROR")
	}

	cause := errors.New("dial tcp")
	pe := NewError(ErrCodeFetch, "sitemap unreachable", cause)
	if !errors.Is(pe, cause) {
		t.Error("PrerenderError must unwrap to its cause")
	}
}
