package stats

import (
	"bufio"
	"context"
	"os"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

const (
	BYTE = 1 << (10 * iota)
	KILOBYTE
	MEGABYTE
	GIGABYTE
)

// EnableMemoryStatistics starts a goroutine that periodically logs the memory
// usage and the number of goroutines of the process. Once ctx is done, the
// metrics of the given gatherer are dumped to dumpPath, if not empty.
func EnableMemoryStatistics(
	ctx context.Context,
	interval time.Duration,
	gatherer prometheus.Gatherer,
	dumpPath string,
) {
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				LogMemoryStatistics()
			case <-ctx.Done():
				if dumpPath == "" {
					return
				}
				if err := DumpMetrics(gatherer, dumpPath); err != nil {
					log.WithError(err).Warn("failed to dump metrics")
				}
				return
			}
		}
	}()
}

func toMegabytes(bytes uint64) float64 {
	return float64(bytes) / MEGABYTE
}

// LogMemoryStatistics logs memory statistics using go runtime library.
func LogMemoryStatistics() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	log.WithFields(log.Fields{
		"total_alloc_mb": toMegabytes(memStats.TotalAlloc),
		"heap_alloc_mb":  toMegabytes(memStats.HeapAlloc),
		"mallocs":        memStats.Mallocs,
		"frees":          memStats.Frees,
		"goroutines":     runtime.NumGoroutine(),
	}).Info("memory statistics")
}

// DumpMetrics appends the text representation of all the metrics of the
// gatherer to the given file.
func DumpMetrics(gatherer prometheus.Gatherer, path string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	metricFamilies, err := gatherer.Gather()
	if err != nil {
		return err
	}

	writer := bufio.NewWriter(file)
	for _, mf := range metricFamilies {
		if _, err := writer.WriteString(mf.String() + "\n"); err != nil {
			return err
		}
	}
	return writer.Flush()
}
