// Package shardwriter appends corpus lines to per-key, append-only
// subset_<key>.csv shard files through a bounded in-memory buffer. It
// is safe for concurrent use by multiple sharder workers: writes to a
// given key's file are serialized by a short-held per-key lock, and
// the buffer map itself is striped by a hash of the key so that
// workers appending to unrelated keys rarely contend on the same
// stripe lock.
package shardwriter

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/subsetgrep/subsetgrep/keyconfig"
	"github.com/subsetgrep/subsetgrep/telemetry"

	"k8s.io/klog/v2"
)

// numStripes is the number of independent buffer-map shards. A power
// of two keeps the modulo in stripeFor cheap.
const numStripes = 64

type keyBuf struct {
	mu   sync.Mutex
	wr   *bufio.Writer
	file *os.File
}

type stripe struct {
	mu      sync.Mutex
	buffers map[string]*keyBuf
}

// Writer appends lines to per-key CSV shard files, one subset_<key>.csv
// per key, bounding memory via keyconfig.MaxIndexBufferSize.
type Writer struct {
	dir        string
	maxBufSize int
	stripes    [numStripes]*stripe
	dryRun     bool
}

// Option configures a Writer.
type Option func(*Writer)

// WithMaxBufferSize overrides keyconfig.MaxIndexBufferSize.
func WithMaxBufferSize(n int) Option {
	return func(w *Writer) {
		if n > 0 {
			w.maxBufSize = n
		}
	}
}

// WithDryRun disables all writes, for dry-run corpus validation runs
// and tests.
func WithDryRun(dry bool) Option {
	return func(w *Writer) {
		w.dryRun = dry
	}
}

// New creates a Writer that appends shard files under dir.
func New(dir string, opts ...Option) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("shardwriter: failed to create output dir %q: %w", dir, err)
	}
	w := &Writer{
		dir:        dir,
		maxBufSize: keyconfig.MaxIndexBufferSize,
	}
	for i := range w.stripes {
		w.stripes[i] = &stripe{buffers: make(map[string]*keyBuf)}
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// ShardPath returns the on-disk path for key's shard file.
func (w *Writer) ShardPath(key string) string {
	return filepath.Join(w.dir, fmt.Sprintf("subset_%s.csv", key))
}

func (w *Writer) stripeFor(key string) *stripe {
	return w.stripes[xxhash.Sum64String(key)%numStripes]
}

// Append adds line to key's shard, flushing the buffer to disk if it
// would overflow keyconfig.MaxIndexBufferSize. A trailing newline is
// always appended; the corpus line itself is never mutated.
//
// An I/O error on one key's shard is logged and the write for that key
// is skipped; it does not abort the caller.
func (w *Writer) Append(key, line string) {
	if w.dryRun {
		return
	}

	kb := w.bufferFor(key)
	if kb == nil {
		return
	}

	kb.mu.Lock()
	defer kb.mu.Unlock()

	lineLen := len(line) + 1 // + newline
	if kb.wr.Buffered()+lineLen > w.maxBufSize {
		if err := kb.wr.Flush(); err != nil {
			klog.Errorf("shardwriter: failed to flush shard %q: %v", key, err)
			return
		}
	}
	if _, err := kb.wr.WriteString(line); err != nil {
		klog.Errorf("shardwriter: failed to write to shard %q: %v", key, err)
		return
	}
	if err := kb.wr.WriteByte('\n'); err != nil {
		klog.Errorf("shardwriter: failed to write newline to shard %q: %v", key, err)
		return
	}
}

// bufferFor returns the keyBuf owning key, opening its file (in append
// mode) on first use. Returns nil (and logs) on I/O failure, per
// section 4.B's per-shard failure isolation.
func (w *Writer) bufferFor(key string) *keyBuf {
	s := w.stripeFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if kb, ok := s.buffers[key]; ok {
		return kb
	}

	f, err := os.OpenFile(w.ShardPath(key), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		klog.Errorf("shardwriter: failed to open shard %q for append: %v", key, err)
		return nil
	}
	kb := &keyBuf{
		wr:   bufio.NewWriterSize(f, w.maxBufSize),
		file: f,
	}
	s.buffers[key] = kb
	return kb
}

// Flush drains every non-empty buffer to disk. It does not close the
// underlying files; call Close for that.
func (w *Writer) Flush(ctx context.Context) error {
	_, span := telemetry.StartDiskIOSpan(ctx, "flush", map[string]string{"dir": w.dir})
	defer span.End()

	var firstErr error
	for _, s := range w.stripes {
		s.mu.Lock()
		for key, kb := range s.buffers {
			kb.mu.Lock()
			if err := kb.wr.Flush(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("shardwriter: failed to flush shard %q: %w", key, err)
			}
			kb.mu.Unlock()
		}
		s.mu.Unlock()
	}
	telemetry.RecordError(span, firstErr, "flush failed")
	return firstErr
}

// Close flushes and closes every open shard file.
func (w *Writer) Close(ctx context.Context) error {
	if err := w.Flush(ctx); err != nil {
		klog.Errorf("shardwriter: flush error during close: %v", err)
	}

	var firstErr error
	for _, s := range w.stripes {
		s.mu.Lock()
		for key, kb := range s.buffers {
			if err := kb.file.Close(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("shardwriter: failed to close shard %q: %w", key, err)
			}
		}
		s.buffers = make(map[string]*keyBuf)
		s.mu.Unlock()
	}
	return firstErr
}

// OpenShards returns the number of distinct shard keys this writer has
// touched so far.
func (w *Writer) OpenShards() int {
	n := 0
	for _, s := range w.stripes {
		s.mu.Lock()
		n += len(s.buffers)
		s.mu.Unlock()
	}
	return n
}
