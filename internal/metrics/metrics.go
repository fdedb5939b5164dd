package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_toolkit_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_toolkit_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_toolkit_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	HTTPRateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_toolkit_http_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"path"},
	)
)

// Pipeline metrics
var (
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_toolkit_jobs_total",
			Help: "Total number of processing jobs by final status",
		},
		[]string{"status"}, // "success", "fallback", "fetch_error", "transform_error", "finalize_error", "canceled"
	)

	JobsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_toolkit_jobs_in_progress",
			Help: "Number of processing jobs currently running",
		},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_toolkit_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"stage"},
	)

	TransformsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_toolkit_transforms_applied_total",
			Help: "Total number of transforms applied to artifacts",
		},
		[]string{"transform"}, // "segment", "dub"
	)

	TransformFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_toolkit_transform_fallbacks_total",
			Help: "Total number of jobs that fell back to the unmodified fetched file",
		},
	)

	CleanupErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_toolkit_cleanup_errors_total",
			Help: "Total number of temp files that could not be removed",
		},
	)
)

// Fetcher metrics
var (
	FetchOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_toolkit_fetch_operations_total",
			Help: "Total number of fetcher operations",
		},
		[]string{"backend", "operation", "status"},
	)

	FetchOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_toolkit_fetch_operation_duration_seconds",
			Help:    "Fetcher operation duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"backend", "operation"},
	)

	FetchedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_toolkit_fetched_bytes_total",
			Help: "Total number of bytes written by fetch operations",
		},
	)
)

// Retry metrics
var (
	RetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_toolkit_retry_attempts_total",
			Help: "Total number of retry attempts for transient failures",
		},
		[]string{"operation"},
	)

	RetryExhausted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_toolkit_retry_exhausted_total",
			Help: "Total number of operations that failed after all retries",
		},
		[]string{"operation"},
	)
)

// Speech synthesis and encoder metrics
var (
	TTSRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_toolkit_tts_requests_total",
			Help: "Total number of speech synthesis chunk requests",
		},
		[]string{"status"},
	)

	EncoderRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_toolkit_encoder_runs_total",
			Help: "Total number of encoder invocations",
		},
		[]string{"status"},
	)

	EncoderRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_toolkit_encoder_run_duration_seconds",
			Help:    "Encoder invocation duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)
)

// Delivery metrics
var (
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_toolkit_deliveries_total",
			Help: "Total number of artifact deliveries by strategy",
		},
		[]string{"strategy", "status"},
	)

	DeliveredBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_toolkit_delivered_bytes_total",
			Help: "Total bytes of delivered artifacts by strategy",
		},
		[]string{"strategy"},
	)

	FeedSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_toolkit_feed_subscribers",
			Help: "Number of connected job feed websocket subscribers",
		},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_toolkit_events_published_total",
			Help: "Total number of job events published",
		},
		[]string{"status"},
	)
)

// Ledger metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_toolkit_db_queries_total",
			Help: "Total number of job ledger queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_toolkit_db_query_duration_seconds",
			Help:    "Job ledger query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)
)

// Gauges refreshed by the Collector
var (
	LedgerJobs = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_toolkit_ledger_jobs",
			Help: "Number of jobs recorded in the ledger by status",
		},
		[]string{"status"},
	)

	DownloadsFiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_toolkit_downloads_files",
			Help: "Number of files in the downloads directory",
		},
	)

	DownloadsBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_toolkit_downloads_size_bytes",
			Help: "Total size of the downloads directory in bytes",
		},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_toolkit_memory_usage_ratio",
			Help: "Heap usage as a fraction of the configured memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_toolkit_memory_paused",
			Help: "Whether new encoder runs are held for memory (1 = held)",
		},
	)

	MemoryWaits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_toolkit_memory_waits_total",
			Help: "Total number of encoder runs that waited for memory to recover",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_toolkit_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version", "mode"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion, mode string) {
	AppInfo.WithLabelValues(version, commit, goVersion, mode).Set(1)
}
