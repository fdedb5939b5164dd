package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"media-toolkit/internal/database"
	"media-toolkit/internal/delivery"
	"media-toolkit/internal/environment"
	"media-toolkit/internal/events"
	"media-toolkit/internal/feed"
	"media-toolkit/internal/fetcher"
	"media-toolkit/internal/handlers"
	"media-toolkit/internal/logging"
	"media-toolkit/internal/media"
	"media-toolkit/internal/memory"
	"media-toolkit/internal/metrics"
	"media-toolkit/internal/middleware"
	"media-toolkit/internal/narration"
	"media-toolkit/internal/pipeline"
	"media-toolkit/internal/startup"
	"media-toolkit/internal/streaming"

	"github.com/gorilla/mux"
)

func main() {
	startTime := time.Now()
	ctx := context.Background()

	// Size the Go heap before anything large is allocated
	memory.ConfigureFromEnv()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	// Resolve working and output directories
	wd, _ := os.Getwd()
	home, _ := os.UserHomeDir()
	env, err := environment.Resolve(environment.Options{
		Cloud:       config.CloudMode,
		ProjectDir:  wd,
		HomeDir:     home,
		TempDir:     config.TempDir,
		DownloadDir: config.DownloadDir,
	})
	if err != nil {
		startup.LogFatal("Environment error: %v", err)
	}
	startup.LogEnvironment(env)

	// Initialize job ledger
	dbStart := time.Now()
	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	db.SetDownloadsDir(env.FinalDir)
	startup.LogDatabaseInit(time.Since(dbStart))

	// Job completion events
	publisher, err := events.NewPublisher(config.AMQPURL, config.AMQPQueue)
	if err != nil {
		logging.Warn("Job events disabled: %v", err)
		publisher = nil
	}

	// Pipeline components
	fetch, err := fetcher.New(fetcher.Config{
		Backend:       fetcher.Backend(config.FetcherBackend),
		YTDLPPath:     config.YTDLPPath,
		Retries:       config.FetchRetries,
		SocketTimeout: config.SocketTimeout,
	})
	if err != nil {
		startup.LogFatal("Fetcher error: %v", err)
	}

	var encoder pipeline.Encoder
	if config.FFmpegAvailable {
		encoder = media.NewEncoder(media.EncoderConfig{
			FFmpegPath:  config.FFmpegPath,
			FFprobePath: config.FFprobePath,
			Threads:     config.EncodeThreads,
		})
	}

	fit := media.ParseAudioFit(config.NarrationFit)
	narrator := narration.NewNarrator(
		narration.NewGoogleTTS(nil, config.TTSBaseURL),
		narration.Voice{Lang: config.TTSLang, TLD: config.TTSTLD},
		fit,
	)

	mode, err := delivery.ParseMode(config.DeliveryMode, env.IsCloud())
	if err != nil {
		startup.LogFatal("Delivery error: %v", err)
	}
	streamConfig := streaming.DefaultConfig()
	strategy, err := delivery.New(ctx, delivery.Config{
		Mode:     mode,
		FinalDir: env.FinalDir,
		Stream:   streamConfig,
		Object: delivery.ObjectConfig{
			Endpoint:  config.MinioEndpoint,
			AccessKey: config.MinioAccessKey,
			SecretKey: config.MinioSecretKey,
			Bucket:    config.MinioBucket,
			UseSSL:    config.MinioUseSSL,
			URLExpiry: config.MinioURLExpiry,
		},
	})
	if err != nil {
		startup.LogFatal("Delivery error: %v", err)
	}

	corsOrigins := middleware.ParseOrigins(config.CORSOrigins)
	jobFeed := feed.NewHub(corsOrigins)

	observers := []pipeline.Observer{db, jobFeed}
	if publisher != nil {
		observers = append(observers, publisher)
	}

	gate := memory.NewGate(memory.DefaultGateConfig())
	gate.Start()

	orchestrator := pipeline.New(pipeline.Config{
		Workspace:    env,
		Fetcher:      fetch,
		Encoder:      encoder,
		Dubber:       narrator,
		Placer:       strategy,
		Memory:       gate,
		Observers:    observers,
		SegmentLimit: config.SegmentLimit,
	})

	startup.LogPipelineInit(startup.PipelineInfo{
		Fetcher:   string(fetch.Backend()),
		Delivery:  string(strategy.Name()),
		Narration: string(fit),
		Events:    publisher != nil,
	})

	metrics.InitializeMetrics(string(strategy.Name()), string(fetch.Backend()))
	buildInfo := startup.GetBuildInfo()
	metrics.SetAppInfo(buildInfo.Version, buildInfo.Commit, buildInfo.GoVersion, string(env.Mode))

	// Initialize handlers
	h := handlers.New(handlers.Config{
		Runner:    orchestrator,
		Inspector: fetch,
		Jobs:      db,
		Delivery:  strategy,
		FinalDir:  env.FinalDir,
		Stream:    streamConfig,
		Feed:      jobFeed,
	})

	// Setup router
	router := setupRouter(h, config.StaticDir)
	router.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	// Log routes dynamically
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	// Rate limit job submissions per client
	limiterConfig := middleware.DefaultRateLimitConfig()
	limiterConfig.RequestsPerSecond = config.RateLimitRPS
	limiterConfig.Burst = config.RateLimitBurst
	limiter := middleware.NewRateLimiter(limiterConfig)
	stopPruning := make(chan struct{})
	limiter.StartPruning(time.Minute, stopPruning)

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = corsOrigins

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks

	var handler http.Handler = limiter.Middleware(router)
	handler = middleware.CORS(corsConfig)(handler)
	handler = middleware.Logger(loggingConfig)(handler)
	handler = middleware.Recovery(handler)

	// Create server
	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // downloads stream for as long as they take
		IdleTimeout:  60 * time.Second,
	}

	var metricsSrv *http.Server
	var collector *metrics.Collector
	if config.MetricsEnabled {
		collector = metrics.NewCollector(db, time.Minute)
		collector.Start()

		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", h.MetricsHandler())
		metricsSrv = &http.Server{
			Addr:              ":" + config.MetricsPort,
			Handler:           metricsMux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	// Start graceful shutdown handler
	done := make(chan struct{})
	go handleShutdown(shutdownTargets{
		server:      srv,
		metrics:     metricsSrv,
		collector:   collector,
		gate:        gate,
		feed:        jobFeed,
		publisher:   publisher,
		db:          db,
		stopPruning: stopPruning,
	}, done)

	// Start server
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
	<-done
}

func setupRouter(h *handlers.Handlers, staticDir string) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET", "HEAD")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/video-info", h.VideoInfo).Methods("POST")
	api.HandleFunc("/process", h.Process).Methods("POST")
	api.HandleFunc("/download_file", h.DownloadFile).Methods("GET")
	api.HandleFunc("/jobs", h.ListJobs).Methods("GET")
	api.HandleFunc("/jobs/feed", h.JobFeed).Methods("GET")
	api.HandleFunc("/jobs/{id}", h.GetJob).Methods("GET")

	// Static files
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir)))

	return r
}

type shutdownTargets struct {
	server      *http.Server
	metrics     *http.Server
	collector   *metrics.Collector
	gate        *memory.Gate
	feed        *feed.Hub
	publisher   *events.Publisher
	db          *database.Database
	stopPruning chan struct{}
}

func handleShutdown(t shutdownTargets, done chan<- struct{}) {
	defer close(done)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := t.server.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	close(t.stopPruning)
	t.gate.Stop()
	t.feed.Close()

	if t.metrics != nil {
		startup.LogShutdownStep("Stopping metrics")
		t.collector.Stop()
		if err := t.metrics.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		}
		startup.LogShutdownStepComplete("Metrics stopped")
	}

	if t.publisher != nil {
		startup.LogShutdownStep("Closing event publisher")
		t.publisher.Close()
		startup.LogShutdownStepComplete("Event publisher closed")
	}

	startup.LogShutdownStep("Closing job ledger")
	if err := t.db.Close(); err != nil {
		logging.Warn("Database close error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Job ledger closed")
	}

	startup.LogShutdownComplete()
}
