// Package cache memoises inlined images so a sitemap whose pages share a
// logo or hero image downloads it once per run.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache maps a resolved image URL to its data URI. Failed downloads are
// cached too, as an empty value, so a broken image is not retried on every
// page. It is safe for concurrent use.
type Cache struct {
	lru *expirable.LRU[string, string]
}

// New creates a Cache holding at most maxEntries images for ttl each.
func New(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = 512
	}
	return &Cache{lru: expirable.NewLRU[string, string](maxEntries, nil, ttl)}
}

// Get returns the cached data URI for src. ok is false on a miss; a hit
// with an empty value means the image is known to be unfetchable.
func (c *Cache) Get(src string) (dataURI string, ok bool) {
	if c == nil {
		return "", false
	}
	return c.lru.Get(src)
}

// Set stores the data URI for src.
func (c *Cache) Set(src, dataURI string) {
	if c == nil {
		return
	}
	c.lru.Add(src, dataURI)
}

// SetFailed remembers that src could not be fetched.
func (c *Cache) SetFailed(src string) {
	c.Set(src, "")
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
