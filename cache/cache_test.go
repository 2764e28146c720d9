package cache

import (
	"testing"
	"time"
)

func TestSetGet(t *testing.T) {
	c := New(2, time.Hour)

	c.Set("https://x.test/a.png", "data:image/png;base64,AAA")
	got, ok := c.Get("https://x.test/a.png")
	if !ok || got != "data:image/png;base64,AAA" {
		t.Fatalf("Get = %q, %v", got, ok)
	}
	if _, ok := c.Get("https://x.test/missing.png"); ok {
		t.Fatal("unexpected hit")
	}
}

func TestFailedEntries(t *testing.T) {
	c := New(4, time.Hour)
	c.SetFailed("https://x.test/broken.png")

	got, ok := c.Get("https://x.test/broken.png")
	if !ok || got != "" {
		t.Fatalf("Get = %q, %v; want empty hit", got, ok)
	}
}

func TestEviction(t *testing.T) {
	c := New(2, time.Hour)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("c", "3")

	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("oldest entry should have been evicted")
	}
}

func TestExpiry(t *testing.T) {
	c := New(2, 20*time.Millisecond)
	c.Set("a", "1")
	time.Sleep(60 * time.Millisecond)
	if _, ok := c.Get("a"); ok {
		t.Error("entry should have expired")
	}
}

func TestNilCache(t *testing.T) {
	var c *Cache
	c.Set("a", "1")
	if _, ok := c.Get("a"); ok {
		t.Error("nil cache must always miss")
	}
	if c.Len() != 0 {
		t.Error("nil cache Len must be 0")
	}
}
