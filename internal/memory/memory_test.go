package memory

import (
	"context"
	"errors"
	"runtime/debug"
	"testing"
	"time"
)

func TestConfigureFromEnv(t *testing.T) {
	old := debug.SetMemoryLimit(-1)
	defer debug.SetMemoryLimit(old)

	tests := []struct {
		name       string
		env        map[string]string
		wantSource string
		wantHeap   int64
		wantRatio  float64
	}{
		{
			name:       "Nothing set",
			env:        map[string]string{},
			wantSource: "none",
		},
		{
			name:       "Container limit with default ratio",
			env:        map[string]string{"MEMORY_LIMIT": "1000000"},
			wantSource: "MEMORY_LIMIT",
			wantHeap:   750000,
			wantRatio:  DefaultRatio,
		},
		{
			name:       "Custom ratio",
			env:        map[string]string{"MEMORY_LIMIT": "1000000", "MEMORY_RATIO": "0.5"},
			wantSource: "MEMORY_LIMIT",
			wantHeap:   500000,
			wantRatio:  0.5,
		},
		{
			name:       "Ratio out of range",
			env:        map[string]string{"MEMORY_LIMIT": "1000000", "MEMORY_RATIO": "1.5"},
			wantSource: "MEMORY_LIMIT",
			wantHeap:   750000,
			wantRatio:  DefaultRatio,
		},
		{
			name:       "Unparseable limit",
			env:        map[string]string{"MEMORY_LIMIT": "512Mi"},
			wantSource: "none",
		},
		{
			name:       "Negative limit",
			env:        map[string]string{"MEMORY_LIMIT": "-1"},
			wantSource: "none",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GOMEMLIMIT", "")
			t.Setenv("MEMORY_LIMIT", "")
			t.Setenv("MEMORY_RATIO", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			got := ConfigureFromEnv()
			if got.Source != tt.wantSource {
				t.Errorf("Source = %q, want %q", got.Source, tt.wantSource)
			}
			if got.HeapBytes != tt.wantHeap {
				t.Errorf("HeapBytes = %d, want %d", got.HeapBytes, tt.wantHeap)
			}
			if got.Ratio != tt.wantRatio {
				t.Errorf("Ratio = %v, want %v", got.Ratio, tt.wantRatio)
			}
			if got.Configured() != (tt.wantHeap > 0) {
				t.Errorf("Configured() = %v", got.Configured())
			}
			if tt.wantHeap > 0 && debug.SetMemoryLimit(-1) != tt.wantHeap {
				t.Errorf("runtime limit = %d, want %d", debug.SetMemoryLimit(-1), tt.wantHeap)
			}
		})
	}
}

func TestConfigureFromEnvPrefersGOMEMLIMIT(t *testing.T) {
	old := debug.SetMemoryLimit(-1)
	defer debug.SetMemoryLimit(old)
	debug.SetMemoryLimit(123456)

	t.Setenv("GOMEMLIMIT", "123456")
	t.Setenv("MEMORY_LIMIT", "1000000")

	got := ConfigureFromEnv()
	if got.Source != "GOMEMLIMIT" {
		t.Errorf("Source = %q, want GOMEMLIMIT", got.Source)
	}
	if got.HeapBytes != 123456 {
		t.Errorf("HeapBytes = %d, want 123456", got.HeapBytes)
	}
}

func newTestGate(alloc *uint64) *Gate {
	g := NewGate(GateConfig{LimitBytes: 100, Critical: 0.85, Resume: 0.7, Interval: time.Hour})
	g.read = func() uint64 { return *alloc }
	return g
}

func TestGateThresholds(t *testing.T) {
	var alloc uint64
	g := newTestGate(&alloc)

	steps := []struct {
		alloc      uint64
		wantClosed bool
	}{
		{50, false},
		{85, true},
		{75, true}, // between thresholds keeps the current state
		{69, false},
		{80, false},
	}
	for _, s := range steps {
		alloc = s.alloc
		g.check()
		if g.Closed() != s.wantClosed {
			t.Errorf("alloc %d: Closed() = %v, want %v", s.alloc, g.Closed(), s.wantClosed)
		}
	}
}

func TestGateWaitReleasesOnRecovery(t *testing.T) {
	var alloc uint64 = 90
	g := newTestGate(&alloc)
	g.check()

	done := make(chan error, 1)
	go func() { done <- g.Wait(context.Background()) }()

	select {
	case <-done:
		t.Fatal("Wait returned while the gate was closed")
	case <-time.After(20 * time.Millisecond):
	}

	alloc = 10
	g.check()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Wait() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after recovery")
	}
}

func TestGateWaitHonorsContext(t *testing.T) {
	var alloc uint64 = 99
	g := newTestGate(&alloc)
	g.check()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := g.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() error = %v, want context.Canceled", err)
	}
}

func TestGateStopReleasesWaiters(t *testing.T) {
	var alloc uint64 = 99
	g := newTestGate(&alloc)
	g.check()
	g.Stop()
	g.Stop()

	if err := g.Wait(context.Background()); err != nil {
		t.Errorf("Wait() after Stop = %v", err)
	}
}

func TestGateWithoutLimitStaysOpen(t *testing.T) {
	old := debug.SetMemoryLimit(-1)
	defer debug.SetMemoryLimit(old)
	debug.SetMemoryLimit(1<<63 - 1)

	g := NewGate(DefaultGateConfig())
	g.Start()
	defer g.Stop()

	if g.Closed() {
		t.Error("gate without a limit should be open")
	}
	if err := g.Wait(context.Background()); err != nil {
		t.Errorf("Wait() = %v", err)
	}
}
