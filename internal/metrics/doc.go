// Package metrics provides Prometheus instrumentation for the media toolkit.
//
// All metrics are prefixed with "media_toolkit_" and registered through promauto,
// so importing the package is enough to expose them on the metrics server.
//
// # Metric Categories
//
//   - HTTP: request counters, duration histograms, in-flight gauge, rate limiter rejections
//   - Pipeline: jobs by final status, per-stage durations, applied transforms, fallbacks
//   - Fetcher: inspect/fetch outcomes and durations per backend, bytes fetched
//   - Retry: attempts and exhausted retries per operation
//   - Speech/encoder: TTS chunk requests, ffmpeg runs and durations
//   - Delivery: deliveries and bytes per strategy, published job events
//   - Ledger: SQLite query counters and durations, job counts by status
//
// The Collector refreshes gauges that are cheaper to sample than to track
// (ledger counts, downloads directory size) on a fixed interval.
package metrics
