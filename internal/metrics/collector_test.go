package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type mockStatsProvider struct {
	stats Stats
}

func (m *mockStatsProvider) GetStats() Stats {
	return m.stats
}

func TestNewCollector(t *testing.T) {
	provider := &mockStatsProvider{}
	collector := NewCollector(provider, 5*time.Second)

	if collector == nil {
		t.Fatal("NewCollector returned nil")
	}
	if collector.interval != 5*time.Second {
		t.Errorf("interval = %v, want 5s", collector.interval)
	}
	if collector.stopChan == nil {
		t.Error("Expected stopChan to be initialized")
	}
}

func TestCollectUpdatesGauges(t *testing.T) {
	provider := &mockStatsProvider{
		stats: Stats{
			JobsByStatus:   map[string]int{"success": 7, "fallback": 2},
			DownloadFiles:  3,
			DownloadsBytes: 4096,
		},
	}

	NewCollector(provider, time.Minute).collect()

	if got := testutil.ToFloat64(LedgerJobs.WithLabelValues("success")); got != 7 {
		t.Errorf("ledger success = %v, want 7", got)
	}
	if got := testutil.ToFloat64(LedgerJobs.WithLabelValues("fallback")); got != 2 {
		t.Errorf("ledger fallback = %v, want 2", got)
	}
	if got := testutil.ToFloat64(DownloadsFiles); got != 3 {
		t.Errorf("downloads files = %v, want 3", got)
	}
	if got := testutil.ToFloat64(DownloadsBytes); got != 4096 {
		t.Errorf("downloads bytes = %v, want 4096", got)
	}
}

func TestCollectWithNilProvider(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("collect panicked with nil provider: %v", r)
		}
	}()
	NewCollector(nil, time.Minute).collect()
}

func TestCollectorStartStop(_ *testing.T) {
	collector := NewCollector(&mockStatsProvider{}, 10*time.Millisecond)
	collector.Start()
	time.Sleep(30 * time.Millisecond)
	collector.Stop()
}

func TestInitializeMetricsDoesNotPanic(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("InitializeMetrics panicked: %v", r)
		}
	}()
	InitializeMetrics("persist", "ytdlp")
	SetAppInfo("dev", "unknown", "go1.25", "local")
}
