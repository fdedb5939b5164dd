package metrics

import (
	"time"

	"media-toolkit/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current statistics
type Stats struct {
	JobsByStatus   map[string]int
	DownloadFiles  int
	DownloadsBytes int64
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	for status, n := range stats.JobsByStatus {
		LedgerJobs.WithLabelValues(status).Set(float64(n))
	}
	DownloadsFiles.Set(float64(stats.DownloadFiles))
	DownloadsBytes.Set(float64(stats.DownloadsBytes))

	logging.Debug("Metrics collected: statuses=%d, downloads=%d files (%d bytes)",
		len(stats.JobsByStatus), stats.DownloadFiles, stats.DownloadsBytes)
}
