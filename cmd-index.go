package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v2"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"k8s.io/klog/v2"

	"github.com/subsetgrep/subsetgrep/sharder"
)

func newCmd_Index() *cli.Command {
	var threads int
	var targetChunkSize int64
	var maxChunkSize int64
	var dryRun bool
	var watch bool

	return &cli.Command{
		Name:        "index",
		Usage:       "Build trigram shard files from a corpus file.",
		Description: "Reads a corpus file line by line, derives shard keys for each line, and writes subset_<key>.csv shard files into the output directory.",
		ArgsUsage:   "<corpus-path> <output-dir>",
		Before: func(c *cli.Context) error {
			return nil
		},
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "threads",
				Usage:       "number of chunk workers (default: NumCPU)",
				Destination: &threads,
			},
			&cli.Int64Flag{
				Name:        "chunk-size",
				Usage:       "target bytes per chunk",
				Value:       16 << 20,
				Destination: &targetChunkSize,
			},
			&cli.Int64Flag{
				Name:        "max-chunk-size",
				Usage:       "cap, in bytes, on how far a chunk may grow past --chunk-size to reach a line end",
				Value:       256 << 20,
				Destination: &maxChunkSize,
			},
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "derive keys and report stats without writing shard files",
				Destination: &dryRun,
			},
			&cli.BoolFlag{
				Name:        "watch",
				Usage:       "after the build completes, watch the corpus file and re-index on replace",
				Destination: &watch,
			},
		},
		Action: func(c *cli.Context) error {
			corpusPath := c.Args().Get(0)
			outDir := c.Args().Get(1)
			if corpusPath == "" {
				return fmt.Errorf("missing corpus-path argument")
			}
			if outDir == "" {
				return fmt.Errorf("missing output-dir argument")
			}
			if threads <= 0 {
				threads = runtime.NumCPU()
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("failed to create output dir: %w", err)
			}

			if err := runIndexBuild(c.Context, corpusPath, outDir, threads, targetChunkSize, maxChunkSize, dryRun); err != nil {
				return err
			}

			if !watch {
				return nil
			}
			return watchAndReindex(c.Context, corpusPath, outDir, threads, targetChunkSize, maxChunkSize, dryRun)
		},
	}
}

func runIndexBuild(ctx context.Context, corpusPath, outDir string, threads int, targetChunkSize, maxChunkSize int64, dryRun bool) error {
	startedAt := time.Now()

	progress := mpb.New(mpb.WithWidth(64))
	var bar *mpb.Bar
	var total int64
	if info, err := os.Stat(corpusPath); err == nil {
		total = info.Size()
		text := "Indexing: "
		bar = progress.AddBar(total,
			mpb.PrependDecorators(
				decor.Name(text, decor.WC{W: len(text) + 2, C: decor.DSyncWidthR}),
				decor.CountersKibiByte("% .2f / % .2f"),
			),
			mpb.AppendDecorators(decor.Percentage()),
		)
	}

	stats, err := sharder.Run(ctx, corpusPath, outDir,
		sharder.WithThreads(threads),
		sharder.WithTargetChunkSize(targetChunkSize),
		sharder.WithMaxChunkSize(maxChunkSize),
		sharder.WithDryRun(dryRun),
		sharder.WithProgress(func(linesDone int64, bytesDone, totalBytes int64) {
			if bar != nil {
				bar.SetCurrent(bytesDone)
			}
		}),
	)
	if bar != nil {
		bar.SetCurrent(total)
	}
	progress.Wait()
	if err != nil {
		return fmt.Errorf("index build failed: %w", err)
	}

	klog.Infof("Indexed %s lines into %d chunks, %d distinct shard keys, in %s",
		humanize.Comma(stats.Lines), stats.Chunks, stats.KeysSeen, time.Since(startedAt))
	veryPlainSdumpConfig.Dump(stats)
	return nil
}

// watchAndReindex re-runs the build whenever the corpus file is
// replaced (rename or write), a convenience for operators who refresh
// the corpus with an external batch tool rather than restarting this
// process for each rebuild.
func watchAndReindex(ctx context.Context, corpusPath, outDir string, threads int, targetChunkSize, maxChunkSize int64, dryRun bool) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start corpus watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(corpusPath); err != nil {
		return fmt.Errorf("failed to watch %s: %w", corpusPath, err)
	}
	klog.Infof("Watching %s for changes; Ctrl-C to stop.", corpusPath)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			klog.Infof("Corpus file changed (%s), re-indexing", event.Op)
			if err := runIndexBuild(ctx, corpusPath, outDir, threads, targetChunkSize, maxChunkSize, dryRun); err != nil {
				klog.Errorf("re-index failed: %v", err)
			}
			// fsnotify drops the watch on some editors' rename-then-create
			// replace pattern; re-add defensively.
			_ = watcher.Add(corpusPath)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			klog.Errorf("watcher error: %v", err)
		}
	}
}

var veryPlainSdumpConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	DisableMethods:          true,
	DisablePointerMethods:   true,
	ContinueOnMethod:        true,
	SortKeys:                true,
}
