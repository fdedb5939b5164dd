package memory

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"media-toolkit/internal/logging"
	"media-toolkit/internal/metrics"
)

// GateConfig holds the thresholds a Gate works with.
type GateConfig struct {
	// LimitBytes overrides the runtime limit; 0 reads GOMEMLIMIT.
	LimitBytes int64

	// Close at Critical, reopen once usage falls below Resume.
	Critical float64
	Resume   float64

	Interval time.Duration
}

// DefaultGateConfig returns the thresholds used by the server.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		Critical: 0.85,
		Resume:   0.7,
		Interval: 5 * time.Second,
	}
}

// Gate holds back new encoder runs while the heap is near its limit.
type Gate struct {
	cfg   GateConfig
	limit int64
	read  func() uint64

	mu     sync.Mutex
	closed bool
	open   chan struct{}

	stop     chan struct{}
	stopOnce sync.Once
}

// NewGate creates a gate. Without a limit the gate never closes.
func NewGate(cfg GateConfig) *Gate {
	limit := cfg.LimitBytes
	if limit == 0 {
		if cur := debug.SetMemoryLimit(-1); cur > 0 && cur < 1<<62 {
			limit = cur
		}
	}
	if limit == 0 {
		logging.Debug("Memory gate disabled: no limit configured")
	}
	return &Gate{
		cfg:   cfg,
		limit: limit,
		read:  heapAlloc,
		open:  make(chan struct{}),
		stop:  make(chan struct{}),
	}
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.Alloc
}

// Start samples memory every Interval until Stop.
func (g *Gate) Start() {
	if g.limit == 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(g.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				g.check()
			case <-g.stop:
				return
			}
		}
	}()
}

// Stop ends sampling and releases waiters.
func (g *Gate) Stop() {
	g.stopOnce.Do(func() { close(g.stop) })
}

func (g *Gate) check() {
	alloc := g.read()
	usage := float64(alloc) / float64(g.limit)
	metrics.MemoryUsageRatio.Set(usage)

	g.mu.Lock()
	defer g.mu.Unlock()

	switch {
	case !g.closed && usage >= g.cfg.Critical:
		g.closed = true
		metrics.MemoryPaused.Set(1)
		logging.Warn("Memory at %.1f%% of limit (%s), holding new encodes", usage*100, humanize.IBytes(alloc))
		go runtime.GC()
	case g.closed && usage < g.cfg.Resume:
		g.closed = false
		metrics.MemoryPaused.Set(0)
		close(g.open)
		g.open = make(chan struct{})
		logging.Info("Memory back to %.1f%% of limit, resuming encodes", usage*100)
	}
}

// Closed reports whether callers of Wait are currently held.
func (g *Gate) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

// Wait returns immediately while the gate is open. Otherwise it blocks
// until memory recovers, the gate stops, or ctx ends.
func (g *Gate) Wait(ctx context.Context) error {
	g.mu.Lock()
	if !g.closed {
		g.mu.Unlock()
		return nil
	}
	open := g.open
	g.mu.Unlock()

	metrics.MemoryWaits.Inc()
	select {
	case <-open:
		return nil
	case <-g.stop:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
