package database

import (
	"context"

	"media-toolkit/internal/filesystem"
	"media-toolkit/internal/logging"
	"media-toolkit/internal/metrics"
)

// SetDownloadsDir sets the directory whose contents GetStats reports.
func (d *Database) SetDownloadsDir(dir string) {
	d.dirMu.Lock()
	defer d.dirMu.Unlock()
	d.downloadsDir = dir
}

// GetStats implements metrics.StatsProvider.
func (d *Database) GetStats() metrics.Stats {
	stats := metrics.Stats{JobsByStatus: map[string]int{}}

	counts, err := d.CountByStatus(context.Background())
	if err != nil {
		logging.Warn("Failed to count jobs: %v", err)
	} else {
		stats.JobsByStatus = counts
	}

	d.dirMu.RLock()
	dir := d.downloadsDir
	d.dirMu.RUnlock()

	if dir != "" {
		files, size, err := filesystem.DirStats(dir)
		if err != nil {
			logging.Debug("Failed to stat downloads dir %s: %v", dir, err)
		}
		stats.DownloadFiles = files
		stats.DownloadsBytes = size
	}
	return stats
}
