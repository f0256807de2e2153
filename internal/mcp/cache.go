package mcp

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/maypok86/otter"
	"github.com/mvp-joe/dsconv/internal/scanner"
)

// DefaultCacheCapacity bounds the number of cached scans.
const DefaultCacheCapacity = 256

// ScanCache memoizes scan results by content hash. Scanning is pure, so identical
// text always yields identical results.
type ScanCache struct {
	cache otter.Cache[string, []scanner.Result]
}

// NewScanCache creates a cache holding up to capacity scans.
func NewScanCache(capacity int) (*ScanCache, error) {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	c, err := otter.MustBuilder[string, []scanner.Result](capacity).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build scan cache: %w", err)
	}
	return &ScanCache{cache: c}, nil
}

// Results returns the scan of text, scanning only on a cache miss.
// The returned slice is shared and must not be modified.
func (c *ScanCache) Results(text string) []scanner.Result {
	key := contentKey(text)
	if results, ok := c.cache.Get(key); ok {
		return results
	}
	results := scanner.ScanAll(text)
	c.cache.Set(key, results)
	return results
}

// Len reports the number of cached scans.
func (c *ScanCache) Len() int {
	return c.cache.Size()
}

// Close stops the cache's background maintenance.
func (c *ScanCache) Close() {
	c.cache.Close()
}

func contentKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
