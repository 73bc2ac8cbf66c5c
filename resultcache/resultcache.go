// Package resultcache is an LRU keyed by (search string, style)
// mapping to the full matched line list for that query, with
// pagination applied after retrieval. It wraps jellydator/ttlcache/v3
// with its capacity-bounded LRU eviction but no TTL: entries live
// until evicted by capacity, since shard files never change once
// written.
package resultcache

import (
	"fmt"

	"github.com/jellydator/ttlcache/v3"

	"github.com/subsetgrep/subsetgrep/keyconfig"
)

// DefaultCapacity is the default number of distinct (search string,
// style) entries retained.
const DefaultCapacity = 512

// ErrEndOfResults is returned by Page when offset is at or past the
// length of the cached result list.
var ErrEndOfResults = fmt.Errorf("resultcache: offset past end of results")

type entryKey struct {
	searchString string
	style        keyconfig.SearchStyle
}

func (k entryKey) String() string {
	return string(k.style) + "\x00" + k.searchString
}

// Cache is a thread-safe LRU mapping (search string, style) to matched
// line lists.
type Cache struct {
	inner *ttlcache.Cache[string, []string]
}

// New creates a Cache with the given capacity (0 uses DefaultCapacity).
func New(capacity uint64) *Cache {
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	inner := ttlcache.New[string, []string](
		ttlcache.WithCapacity[string, []string](capacity),
		ttlcache.WithDisableTouchOnHit[string, []string](),
	)
	return &Cache{inner: inner}
}

// Get returns the cached line list for (searchString, style), and
// whether it was present.
func (c *Cache) Get(searchString string, style keyconfig.SearchStyle) ([]string, bool) {
	item := c.inner.Get(entryKey{searchString, style}.String())
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

// Set inserts or replaces the cached line list for (searchString,
// style), evicting the least-recently-used entry if the cache is at
// capacity.
func (c *Cache) Set(searchString string, style keyconfig.SearchStyle, lines []string) {
	c.inner.Set(entryKey{searchString, style}.String(), lines, ttlcache.NoTTL)
}

// Len reports the number of entries currently cached.
func (c *Cache) Len() int {
	return c.inner.Len()
}

// Page applies offset/limit pagination to lines: returns
// lines[offset:min(offset+limit, len(lines))]. If offset is at or past
// len(lines), returns ErrEndOfResults (unless lines is empty and
// offset is 0, which is a plain empty result, not an error).
func Page(lines []string, offset, limit int) ([]string, error) {
	if offset == 0 && len(lines) == 0 {
		return nil, nil
	}
	if offset >= len(lines) {
		return nil, ErrEndOfResults
	}
	end := offset + limit
	if limit <= 0 || end > len(lines) {
		end = len(lines)
	}
	return lines[offset:end], nil
}
