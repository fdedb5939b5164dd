// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig].
// A .env file in the working directory is read first when present.
// The following environment variables are supported:
//
//   - PORT: HTTP server port (default: 5000)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - CLOUD_MODE: Force cloud (true) or local (false) mode; autodetected when unset
//   - TEMP_DIR, DOWNLOAD_DIR: Override the per-mode working and output directories
//   - DATABASE_DIR: Directory for the job ledger (default: ~/.media-toolkit, /tmp/media-toolkit in cloud mode)
//   - STATIC_DIR: Directory served at / (default: ./static)
//   - DELIVERY_MODE: persist, relocate, stream or object (default depends on mode)
//   - FETCHER_BACKEND: ytdlp or youtube (default: ytdlp)
//   - YTDLP_PATH, FFMPEG_PATH, FFPROBE_PATH: External tool locations
//   - FETCH_RETRIES: Fetch retry count (default: 10)
//   - SOCKET_TIMEOUT: Fetch socket timeout (default: 30s)
//   - SEGMENT_SECONDS: Trim length for segmented output (default: 30)
//   - NARRATION_FIT: once or loop (default: once)
//   - TTS_LANG, TTS_TLD, TTS_BASE_URL: Narration voice and endpoint
//   - ENCODE_THREADS: FFmpeg thread count (default: automatic)
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST: Per-client limits for POST requests
//   - CORS_ORIGINS: Comma-separated allowed origins (default: * in cloud mode, none locally)
//   - MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY, MINIO_BUCKET, MINIO_USE_SSL, MINIO_URL_EXPIRY
//   - AMQP_URL, AMQP_QUEUE: Job completion events (disabled when AMQP_URL is empty)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_STATIC_FILES: Log static file requests (default: false)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Lifecycle Logging
//
//   - [LogEnvironment]: Resolved mode and directories
//   - [LogDatabaseInit]: Job ledger initialization timing
//   - [LogPipelineInit]: Fetcher, delivery and narration choices
//   - [LogHTTPRoutes]: Registered HTTP routes (debug level)
//   - [LogServerStarted]: Server endpoints and startup duration
//   - [LogShutdownInitiated], [LogShutdownComplete]: Graceful shutdown
package startup
