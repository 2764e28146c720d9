package naming

import (
	"testing"

	"github.com/use-agent/prerender/models"
)

func TestBaseName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://x.test/", "index"},
		{"https://x.test", "index"},
		{"https://x.test/a/b/", "a_b"},
		{"https://x.test/a/b", "a_b"},
		{"https://x.test/about", "about"},
		{"https://x.test/blog/2024/post.html", "blog_2024_post.html"},
		{"https://x.test/a?page=1", "a"},
		{"https://x.test/a?page=2#top", "a"},
		{"https://x.test/caf%C3%A9/", "caf%C3%A9"},
		{"://broken", "index"},
	}

	for _, tt := range tests {
		if got := BaseName(tt.url); got != tt.want {
			t.Errorf("BaseName(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestBaseNameQueryCollision(t *testing.T) {
	a := BaseName("https://x.test/list?page=1")
	b := BaseName("https://x.test/list?page=2")
	if a != b {
		t.Fatalf("expected query-only variants to collide, got %q and %q", a, b)
	}
}

func TestSuffix(t *testing.T) {
	tests := []struct {
		format models.FormatKind
		width  int
		want   string
	}{
		{models.FormatHTML, 1024, ".html"},
		{models.FormatHTMLMinified, 1024, "_minified.html"},
		{models.FormatHTMLEmbedded, 1024, "_embedded.html"},
		{models.FormatScreenshot, 1024, "_1024px.png"},
		{models.FormatScreenshot, 375, "_375px.png"},
		{models.FormatPDF, 1024, ".pdf"},
		{models.FormatText, 1024, ".txt"},
		{models.FormatKind("markdown"), 1024, ""},
	}

	for _, tt := range tests {
		if got := Suffix(tt.format, tt.width); got != tt.want {
			t.Errorf("Suffix(%s, %d) = %q, want %q", tt.format, tt.width, got, tt.want)
		}
	}
}

func TestFileName(t *testing.T) {
	if got := FileName("https://x.test/a/b/", models.FormatScreenshot, 800); got != "a_b_800px.png" {
		t.Errorf("FileName = %q, want a_b_800px.png", got)
	}
}
