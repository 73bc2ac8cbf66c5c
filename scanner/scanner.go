// Package scanner opens a single shard file, builds a single-pattern
// Aho-Corasick automaton over the query's search string, scans for
// hits, and expands each hit to its enclosing line.
package scanner

import (
	"context"
	"fmt"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/exp/mmap"

	"github.com/coregx/ahocorasick"

	"github.com/subsetgrep/subsetgrep/telemetry"

	"k8s.io/klog/v2"
)

// DefaultDeadline bounds how long a single shard scan may run before
// it is abandoned.
const DefaultDeadline = 15 * time.Second

// handle wraps an open, mmap'd shard file for reuse across queries.
type handle struct {
	reader *mmap.ReaderAt
}

// Scanner scans shard files for a single pattern, keeping a bounded
// number of shard file handles warm via an LRU.
type Scanner struct {
	dir      string
	handles  *lru.Cache[string, *handle]
	deadline time.Duration
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithDeadline overrides DefaultDeadline.
func WithDeadline(d time.Duration) Option {
	return func(s *Scanner) {
		if d > 0 {
			s.deadline = d
		}
	}
}

// WithHandleCacheSize overrides the default open-shard handle cache
// capacity (128 shards).
func WithHandleCacheSize(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			cache, err := lru.NewWithEvict[string, *handle](n, func(_ string, h *handle) {
				if h.reader != nil {
					_ = h.reader.Close()
				}
			})
			if err == nil {
				s.handles = cache
			}
		}
	}
}

// New creates a Scanner rooted at dir, the index directory holding
// subset_<key>.csv shard files.
func New(dir string, opts ...Option) *Scanner {
	handles, _ := lru.NewWithEvict[string, *handle](128, func(_ string, h *handle) {
		if h.reader != nil {
			_ = h.reader.Close()
		}
	})
	s := &Scanner{
		dir:      dir,
		handles:  handles,
		deadline: DefaultDeadline,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// shardPath returns the on-disk path for key's shard file, mirroring
// shardwriter.Writer.ShardPath.
func (s *Scanner) shardPath(key string) string {
	return fmt.Sprintf("%s/subset_%s.csv", s.dir, key)
}

func (s *Scanner) openShard(ctx context.Context, key string) (*mmap.ReaderAt, bool, error) {
	if h, ok := s.handles.Get(key); ok {
		return h.reader, true, nil
	}

	_, span := telemetry.StartDiskIOSpan(ctx, "open_shard", map[string]string{"key": key})
	r, err := mmap.Open(s.shardPath(key))
	telemetry.RecordError(span, err, "shard open failed")
	span.End()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("scanner: failed to open shard %q: %w", key, err)
	}
	s.handles.Add(key, &handle{reader: r})
	return r, true, nil
}

// Scan opens the shard for key and returns every line containing
// pattern, in shard byte order, with consecutive identical lines
// collapsed to one. Returns (nil, nil) when the shard does not exist,
// cannot be opened or read, or the pattern is empty. When ctx is done
// (including the scanner's own deadline) it returns ctx.Err() together
// with any lines gathered so far; the search package passes that error
// up, and the HTTP layer maps it to a 408.
func (s *Scanner) Scan(ctx context.Context, key, pattern string) ([]string, error) {
	if pattern == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	r, found, err := s.openShard(ctx, key)
	if err != nil {
		klog.Errorf("scanner: %v", err)
		return nil, nil
	}
	if !found {
		return nil, nil
	}

	automaton, err := ahocorasick.NewAutomaton([]string{pattern})
	if err != nil {
		klog.Errorf("scanner: failed to build automaton for pattern %q: %v", pattern, err)
		return nil, nil
	}

	size := r.Len()
	data := make([]byte, size)

	_, readSpan := telemetry.StartDiskIOSpan(ctx, "scan_shard", map[string]string{"key": key})
	_, err = r.ReadAt(data, 0)
	telemetry.RecordError(readSpan, err, "shard read failed")
	readSpan.End()
	if err != nil {
		klog.Errorf("scanner: failed to read shard %q: %v", key, err)
		return nil, nil
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	matches := automaton.FindAll(data)

	var lines []string
	for _, m := range matches {
		select {
		case <-ctx.Done():
			return lines, ctx.Err()
		default:
		}

		start, end := expandToLine(data, m.Start(), m.End())
		line := string(data[start:end])
		if n := len(lines); n > 0 && lines[n-1] == line {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// expandToLine widens [hitStart, hitEnd) backward to the previous '\n'
// (or byte 0) and forward to the next '\n' (or EOF), returning the
// enclosing line's byte range exclusive of the newlines.
func expandToLine(data []byte, hitStart, hitEnd int) (int, int) {
	start := hitStart
	for start > 0 && data[start-1] != '\n' {
		start--
	}
	end := hitEnd
	for end < len(data) && data[end] != '\n' {
		end++
	}
	return start, end
}

// Close releases every open shard handle.
func (s *Scanner) Close() error {
	s.handles.Purge()
	return nil
}
