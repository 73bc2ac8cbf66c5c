// Package search wires the query normalizer, shard scanner, and result
// cache into a single entry point: given an index directory, a query,
// and a search style, return the matched lines. A cache hit returns
// immediately; a cache miss reads through the scanner and populates
// the cache before returning.
package search

import (
	"context"
	"errors"

	"github.com/subsetgrep/subsetgrep/keyconfig"
	"github.com/subsetgrep/subsetgrep/querynorm"
	"github.com/subsetgrep/subsetgrep/resultcache"
	"github.com/subsetgrep/subsetgrep/scanner"

	"k8s.io/klog/v2"
)

// ErrEndOfResults is re-exported from resultcache so HTTP callers don't
// need to import that package directly.
var ErrEndOfResults = resultcache.ErrEndOfResults

// Engine is the core query-time entry point: Query Normalizer +
// Shard Scanner + Result Cache composed behind one method.
type Engine struct {
	scanner *scanner.Scanner
	cache   *resultcache.Cache
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	cacheCapacity  uint64
	scannerOptions []scanner.Option
}

// WithCacheCapacity overrides resultcache.DefaultCapacity.
func WithCacheCapacity(n uint64) Option {
	return func(o *engineOptions) { o.cacheCapacity = n }
}

// WithScannerOptions forwards options to the underlying scanner.Scanner.
func WithScannerOptions(opts ...scanner.Option) Option {
	return func(o *engineOptions) { o.scannerOptions = opts }
}

// New creates an Engine rooted at indexDir.
func New(indexDir string, opts ...Option) *Engine {
	o := &engineOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return &Engine{
		scanner: scanner.New(indexDir, o.scannerOptions...),
		cache:   resultcache.New(o.cacheCapacity),
	}
}

// FindLines normalizes the query, resolves its primary shard key,
// scans that shard (through the result cache), and returns the matched
// lines, plus whether the result cache served the answer (cacheHit).
// Every invalid-input or I/O failure returns an empty slice (with the
// cause logged), never an error — the only signal this method's caller
// propagates as an error is context cancellation/timeout.
func (e *Engine) FindLines(ctx context.Context, query string, style keyconfig.SearchStyle) (lines []string, cacheHit bool, err error) {
	if !keyconfig.ValidStyle(style) {
		klog.Warningf("search: unknown style %q, returning empty result", style)
		return nil, false, nil
	}

	searchString := querynorm.AsSearchString(query, style)

	key, ok := querynorm.PrimaryKey(query)
	if !ok {
		klog.V(4).Infof("search: query %q normalizes below index length, returning empty result", query)
		return nil, false, nil
	}

	if cached, hit := e.cache.Get(searchString, style); hit {
		return cached, true, nil
	}

	lines, err = e.scanner.Scan(ctx, key, searchString)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, false, err
		}
		klog.Errorf("search: scan failed for query %q: %v", query, err)
		return nil, false, nil
	}

	e.cache.Set(searchString, style, lines)
	return lines, false, nil
}

// Page applies offset/limit pagination to a FindLines result.
func (e *Engine) Page(lines []string, offset, limit int) ([]string, error) {
	return resultcache.Page(lines, offset, limit)
}

// Close releases the Engine's open shard handles.
func (e *Engine) Close() error {
	return e.scanner.Close()
}
