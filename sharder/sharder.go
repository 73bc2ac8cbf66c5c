// Package sharder memory-maps the corpus file, divides it into
// thread-aligned newline-respecting chunks, and fans a bounded worker
// pool out over them. Each worker derives shard keys per line via
// keyderive and forwards (key, line) pairs to a shardwriter.Writer.
package sharder

import (
	"bytes"
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/exp/mmap"
	"golang.org/x/sync/errgroup"

	"github.com/subsetgrep/subsetgrep/keyderive"
	"github.com/subsetgrep/subsetgrep/shardwriter"
	"github.com/subsetgrep/subsetgrep/telemetry"

	"k8s.io/klog/v2"
)

// defaultMaxChunkSize bounds how far expandToNewline will grow a chunk
// past its target size before truncating.
const defaultMaxChunkSize = 16 << 20 // 16MiB

// Stats summarizes a completed Run.
type Stats struct {
	Lines    int64
	Chunks   int
	KeysSeen int
}

// ProgressFunc is invoked after each chunk completes, reporting lines
// processed so far and bytes processed out of the corpus size. A nil
// ProgressFunc is a no-op; the CLI wires this to an mpb progress bar.
type ProgressFunc func(linesDone int64, bytesDone, totalBytes int64)

// Option configures a Run.
type Option func(*options)

type options struct {
	threads       int
	targetChunk   int64
	maxChunk      int64
	dryRun        bool
	progress      ProgressFunc
	maxBufferSize int
}

// WithThreads sets the worker pool size. Defaults to runtime.NumCPU().
func WithThreads(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.threads = n
		}
	}
}

// WithTargetChunkSize sets the approximate per-chunk byte size used to
// divide the corpus across workers. Defaults to corpus-size/threads.
func WithTargetChunkSize(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.targetChunk = n
		}
	}
}

// WithMaxChunkSize bounds newline-expansion overshoot per chunk.
func WithMaxChunkSize(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxChunk = n
		}
	}
}

// WithDryRun forwards to the underlying shardwriter.Writer, disabling
// all shard-file writes — useful for dry-run corpus validation runs.
func WithDryRun(dry bool) Option {
	return func(o *options) {
		o.dryRun = dry
	}
}

// WithProgress registers a callback invoked as chunks complete.
func WithProgress(fn ProgressFunc) Option {
	return func(o *options) {
		o.progress = fn
	}
}

// WithMaxIndexBufferSize forwards to shardwriter.WithMaxBufferSize.
func WithMaxIndexBufferSize(n int) Option {
	return func(o *options) {
		o.maxBufferSize = n
	}
}

// Run memory-maps corpusPath and indexes it into outDir, writing one
// subset_<key>.csv per shard key. It honors ctx cancellation at chunk
// granularity: chunks already in flight complete, but no new chunk
// work is started once ctx is done.
func Run(ctx context.Context, corpusPath, outDir string, opts ...Option) (Stats, error) {
	o := &options{
		threads: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.maxChunk <= 0 {
		o.maxChunk = defaultMaxChunkSize
	}

	_, mmapSpan := telemetry.StartDiskIOSpan(ctx, "mmap_open", map[string]string{"path": corpusPath})
	r, err := mmap.Open(corpusPath)
	telemetry.RecordError(mmapSpan, err, "mmap open failed")
	mmapSpan.End()
	if err != nil {
		return Stats{}, fmt.Errorf("sharder: failed to mmap corpus %q: %w", corpusPath, err)
	}
	defer r.Close()

	chunks, err := planChunks(r, o.threads, o.targetChunk, o.maxChunk)
	if err != nil {
		return Stats{}, err
	}
	if len(chunks) == 0 {
		return Stats{}, nil
	}

	var swOpts []shardwriter.Option
	if o.dryRun {
		swOpts = append(swOpts, shardwriter.WithDryRun(true))
	}
	if o.maxBufferSize > 0 {
		swOpts = append(swOpts, shardwriter.WithMaxBufferSize(o.maxBufferSize))
	}
	sw, err := shardwriter.New(outDir, swOpts...)
	if err != nil {
		return Stats{}, err
	}

	totalBytes := int64(r.Len())
	var linesDone atomic.Int64
	var bytesDone atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.threads)

	for _, c := range chunks {
		c := c
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			n, err := processChunk(gctx, c, r, sw)
			if err != nil {
				return fmt.Errorf("sharder: failed to process chunk [%d,%d): %w", c.Start, c.End, err)
			}
			lines := linesDone.Add(int64(n))
			doneBytes := bytesDone.Add(c.End - c.Start)
			if o.progress != nil {
				o.progress(lines, doneBytes, totalBytes)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		_ = sw.Close(ctx)
		return Stats{}, err
	}

	if err := sw.Close(ctx); err != nil {
		return Stats{}, fmt.Errorf("sharder: failed to finalize shard writer: %w", err)
	}

	return Stats{
		Lines:    linesDone.Load(),
		Chunks:   len(chunks),
		KeysSeen: sw.OpenShards(),
	}, nil
}

// processChunk reads a chunk's bytes, splits on newlines, derives shard
// keys per line, and forwards each (key, line) pair to sw. A read
// failure on the chunk aborts it; a derivation producing no keys
// (line too short, or no ASCII content) is silently skipped.
func processChunk(ctx context.Context, c chunk, r reader, sw *shardwriter.Writer) (int, error) {
	size := c.End - c.Start
	if size <= 0 {
		return 0, nil
	}
	buf := make([]byte, size)

	_, span := telemetry.StartDiskIOSpan(ctx, "read_chunk", map[string]string{
		"start": fmt.Sprintf("%d", c.Start),
		"end":   fmt.Sprintf("%d", c.End),
	})
	_, err := r.ReadAt(buf, c.Start)
	telemetry.RecordError(span, err, "chunk read failed")
	span.End()
	if err != nil {
		return 0, fmt.Errorf("read chunk: %w", err)
	}

	lines := 0
	for _, raw := range bytes.Split(buf, []byte("\n")) {
		if len(raw) == 0 {
			continue
		}
		line := string(bytes.TrimRight(raw, "\r"))
		lines++

		keys := keyderive.DeriveKeys(line)
		for _, key := range keys {
			sw.Append(key, line)
		}
		if len(keys) == 0 {
			klog.V(4).Infof("sharder: line produced no shard keys, skipping: %q", line)
		}
	}
	return lines, nil
}
