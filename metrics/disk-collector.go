package metrics

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/disk"

	"k8s.io/klog/v2"
)

// GetDeviceForDirectory finds the block device name (e.g. "sda1") that
// backs a given directory, by matching the longest mount point prefix.
// Used to scope the disk collector to the device holding the index
// directory, since that is the disk the Shard Scanner actually drives.
func GetDeviceForDirectory(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for %s: %w", dir, err)
	}

	partitions, err := disk.Partitions(false)
	if err != nil {
		return "", fmt.Errorf("failed to get partitions: %w", err)
	}

	bestMatch := ""
	var bestPartition disk.PartitionStat
	for _, p := range partitions {
		if strings.HasPrefix(absDir, p.Mountpoint) {
			if len(p.Mountpoint) > len(bestMatch) {
				bestMatch = p.Mountpoint
				bestPartition = p
			}
		}
	}

	if bestMatch == "" {
		return "", fmt.Errorf("no mount point found for directory %s", absDir)
	}

	return filepath.Base(bestPartition.Device), nil
}

// diskCollector implements prometheus.Collector, reporting read/write
// throughput for the device backing the index directory — the disk
// the Shard Scanner is bandwidth-bound on during a scan.
type diskCollector struct {
	mutex     sync.Mutex
	lastStats map[string]lastStat
	devices   map[string]struct{}

	readBytesTotalDesc  *prometheus.Desc
	writeBytesTotalDesc *prometheus.Desc
	readRateDesc        *prometheus.Desc
	writeRateDesc       *prometheus.Desc
	errorDesc           *prometheus.Desc
}

type lastStat struct {
	readBytes  uint64
	writeBytes uint64
	time       time.Time
}

// NewDiskCollector creates a diskCollector scoped to devices. An empty
// list monitors every device gopsutil reports.
func NewDiskCollector(devices []string) *diskCollector {
	deviceMap := make(map[string]struct{}, len(devices))
	for _, device := range devices {
		deviceMap[device] = struct{}{}
	}

	return &diskCollector{
		lastStats: make(map[string]lastStat),
		devices:   deviceMap,
		readBytesTotalDesc: prometheus.NewDesc("subsetgrep_disk_read_bytes_total",
			"Total number of bytes read from this disk.",
			[]string{"device"}, nil),
		writeBytesTotalDesc: prometheus.NewDesc("subsetgrep_disk_write_bytes_total",
			"Total number of bytes written to this disk.",
			[]string{"device"}, nil),
		readRateDesc: prometheus.NewDesc("subsetgrep_disk_read_rate_bytes_per_second",
			"Current read rate for this disk.",
			[]string{"device"}, nil),
		writeRateDesc: prometheus.NewDesc("subsetgrep_disk_write_rate_bytes_per_second",
			"Current write rate for this disk.",
			[]string{"device"}, nil),
		errorDesc: prometheus.NewDesc("subsetgrep_disk_collector_error",
			"Indicates an error occurred during disk stats collection.",
			nil, nil),
	}
}

func (c *diskCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.readBytesTotalDesc
	ch <- c.writeBytesTotalDesc
	ch <- c.readRateDesc
	ch <- c.writeRateDesc
	ch <- c.errorDesc
}

func (c *diskCollector) Collect(ch chan<- prometheus.Metric) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	ioStats, err := disk.IOCounters()
	if err != nil {
		klog.Errorf("metrics: failed to get disk IO counters: %v", err)
		ch <- prometheus.NewInvalidMetric(c.errorDesc, err)
		return
	}
	if len(ioStats) == 0 {
		return
	}

	now := time.Now()
	for deviceName, stats := range ioStats {
		if len(c.devices) > 0 {
			if _, ok := c.devices[deviceName]; !ok {
				continue
			}
		}

		ch <- prometheus.MustNewConstMetric(c.readBytesTotalDesc, prometheus.CounterValue,
			float64(stats.ReadBytes), deviceName)
		ch <- prometheus.MustNewConstMetric(c.writeBytesTotalDesc, prometheus.CounterValue,
			float64(stats.WriteBytes), deviceName)

		if last, ok := c.lastStats[deviceName]; ok {
			duration := now.Sub(last.time).Seconds()
			if duration > 0 {
				readRate := (float64(stats.ReadBytes) - float64(last.readBytes)) / duration
				writeRate := (float64(stats.WriteBytes) - float64(last.writeBytes)) / duration
				if readRate < 0 {
					readRate = 0
				}
				if writeRate < 0 {
					writeRate = 0
				}
				ch <- prometheus.MustNewConstMetric(c.readRateDesc, prometheus.GaugeValue, readRate, deviceName)
				ch <- prometheus.MustNewConstMetric(c.writeRateDesc, prometheus.GaugeValue, writeRate, deviceName)
			}
		}

		c.lastStats[deviceName] = lastStat{
			readBytes:  stats.ReadBytes,
			writeBytes: stats.WriteBytes,
			time:       now,
		}
	}
}
