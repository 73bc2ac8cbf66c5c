// Package metrics registers the prometheus collectors exposed on
// GET /metrics: per-style query counts, cache hit/miss counts, and
// scan duration, plus a disk-throughput collector scoped to the index
// directory's device.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var QueriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "subsetgrep_queries_total",
		Help: "Search queries served, by style.",
	},
	[]string{"style"},
)

var CacheResult = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "subsetgrep_cache_result",
		Help: "Result cache lookups, by hit or miss.",
	},
	[]string{"result"},
)

var ScanDurationSeconds = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "subsetgrep_scan_duration_seconds",
		Help:    "Shard scan latency.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 12),
	},
)

// RegisterDiskCollector registers a diskCollector scoped to the device
// backing indexDir. Failure to resolve the device is non-fatal: metrics
// are additive instrumentation, not correctness-bearing.
func RegisterDiskCollector(indexDir string) {
	device, err := GetDeviceForDirectory(indexDir)
	if err != nil {
		return
	}
	prometheus.MustRegister(NewDiskCollector([]string{device}))
}
