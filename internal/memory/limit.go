package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"github.com/dustin/go-humanize"

	"media-toolkit/internal/logging"
)

// DefaultRatio is the share of the container limit given to the Go heap.
// The rest is left to ffmpeg and yt-dlp child processes.
const DefaultRatio = 0.75

// Limit describes how GOMEMLIMIT was set.
type Limit struct {
	Source         string // "GOMEMLIMIT", "MEMORY_LIMIT" or "none"
	ContainerBytes int64
	HeapBytes      int64
	Ratio          float64
}

// Configured reports whether a heap limit is in effect.
func (l Limit) Configured() bool {
	return l.HeapBytes > 0
}

// ConfigureFromEnv sets the runtime memory limit from MEMORY_LIMIT and
// MEMORY_RATIO unless GOMEMLIMIT is already set. Call it before the
// pipeline starts.
func ConfigureFromEnv() Limit {
	if env := os.Getenv("GOMEMLIMIT"); env != "" {
		l := Limit{Source: "GOMEMLIMIT"}
		if cur := debug.SetMemoryLimit(-1); cur > 0 && cur < math.MaxInt64 {
			l.HeapBytes = cur
		}
		logging.Info("GOMEMLIMIT set via environment: %s", env)
		return l
	}

	raw := os.Getenv("MEMORY_LIMIT")
	if raw == "" {
		logging.Debug("MEMORY_LIMIT not set, heap limit left to the runtime")
		return Limit{Source: "none"}
	}
	container, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || container <= 0 {
		logging.Warn("Ignoring MEMORY_LIMIT %q: not a positive byte count", raw)
		return Limit{Source: "none"}
	}

	l := Limit{Source: "MEMORY_LIMIT", ContainerBytes: container, Ratio: parseRatio(os.Getenv("MEMORY_RATIO"))}
	l.HeapBytes = int64(float64(container) * l.Ratio)
	debug.SetMemoryLimit(l.HeapBytes)

	logging.Info("Configured GOMEMLIMIT: %s (%.0f%% of %s)",
		humanize.IBytes(uint64(l.HeapBytes)), l.Ratio*100, humanize.IBytes(uint64(container)))
	return l
}

func parseRatio(s string) float64 {
	if s == "" {
		return DefaultRatio
	}
	r, err := strconv.ParseFloat(s, 64)
	if err != nil || r <= 0 || r > 1 {
		logging.Warn("MEMORY_RATIO %q must be in (0, 1], using %.2f", s, DefaultRatio)
		return DefaultRatio
	}
	return r
}
