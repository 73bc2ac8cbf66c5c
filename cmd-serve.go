package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"github.com/valyala/fasthttp"
	"k8s.io/klog/v2"

	"github.com/subsetgrep/subsetgrep/httpapi"
	"github.com/subsetgrep/subsetgrep/metrics"
	"github.com/subsetgrep/subsetgrep/scanner"
	"github.com/subsetgrep/subsetgrep/search"
	"github.com/subsetgrep/subsetgrep/telemetry"
)

func newCmd_Serve() *cli.Command {
	var indexDir string
	var listenOn string
	var cacheCapacity int
	var handleCacheSize int

	return &cli.Command{
		Name:        "serve",
		Usage:       "Start the query HTTP server.",
		Description: "Serves GET /search and GET /metrics over fasthttp against a pre-built index directory.",
		Before: func(c *cli.Context) error {
			return nil
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "index",
				Usage:       "path to the index directory produced by 'subsetgrep index'",
				Required:    true,
				Destination: &indexDir,
			},
			&cli.StringFlag{
				Name:        "listen",
				Usage:       "address to listen on",
				Value:       ":8080",
				Destination: &listenOn,
			},
			&cli.IntFlag{
				Name:        "cache-capacity",
				Usage:       "result cache entry capacity",
				Destination: &cacheCapacity,
			},
			&cli.IntFlag{
				Name:        "handle-cache-size",
				Usage:       "open shard handle cache capacity",
				Destination: &handleCacheSize,
			},
		},
		Action: func(c *cli.Context) error {
			shutdownTelemetry, err := telemetry.InitTelemetry(c.Context, "subsetgrep")
			if err != nil {
				return fmt.Errorf("failed to init telemetry: %w", err)
			}
			defer shutdownTelemetry()

			metrics.RegisterDiskCollector(indexDir)

			var engineOpts []search.Option
			if cacheCapacity > 0 {
				engineOpts = append(engineOpts, search.WithCacheCapacity(uint64(cacheCapacity)))
			}
			if handleCacheSize > 0 {
				engineOpts = append(engineOpts, search.WithScannerOptions(scanner.WithHandleCacheSize(handleCacheSize)))
			}
			engine := search.New(indexDir, engineOpts...)
			defer engine.Close()

			server := httpapi.New(engine)
			h := server.Handler()

			klog.Infof("Query server listening on %s", listenOn)
			return fasthttp.ListenAndServe(listenOn, h)
		},
	}
}
