package startup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"media-toolkit/internal/command"
	"media-toolkit/internal/environment"
	"media-toolkit/internal/logging"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	LogStaticFiles  bool
	LogHealthChecks bool
	StaticDir       string

	// Environment
	CloudMode   bool
	TempDir     string
	DownloadDir string
	DatabaseDir string

	// Pipeline
	FetcherBackend string
	YTDLPPath      string
	FFmpegPath     string
	FFprobePath    string
	FetchRetries   int
	SocketTimeout  time.Duration
	SegmentLimit   time.Duration
	NarrationFit   string
	TTSLang        string
	TTSTLD         string
	TTSBaseURL     string
	EncodeThreads  int

	// HTTP surface
	DeliveryMode   string
	RateLimitRPS   float64
	RateLimitBurst int
	CORSOrigins    string

	// Object storage
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioURLExpiry time.Duration

	// Events
	AMQPURL   string
	AMQPQueue string

	// Derived paths
	DatabasePath string

	// Tool availability
	FFmpegAvailable  bool
	FFprobeAvailable bool
	YTDLPAvailable   bool
}

// LoadConfig loads and validates configuration from environment variables.
// A .env file in the working directory is loaded first when present.
func LoadConfig() (*Config, error) {
	envFileErr := godotenv.Load()

	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	if envFileErr == nil {
		logging.Info("  Loaded .env file")
	} else if !errors.Is(envFileErr, fs.ErrNotExist) {
		logging.Warn("  Failed to load .env file: %v", envFileErr)
	}

	cloud := environment.DetectCloud(os.Getenv("CLOUD_MODE"))
	home, _ := os.UserHomeDir()

	defaultDBDir := filepath.Join(home, ".media-toolkit")
	// a local instance serves the user's Desktop, so other sites get no CORS access
	defaultCORS := ""
	if cloud {
		defaultDBDir = "/tmp/media-toolkit"
		defaultCORS = "*"
	}

	config := &Config{
		Port:            getEnv("PORT", "5000"),
		MetricsPort:     getEnv("METRICS_PORT", "9090"),
		MetricsEnabled:  getEnvBool("METRICS_ENABLED", true),
		LogStaticFiles:  getEnvBool("LOG_STATIC_FILES", false),
		LogHealthChecks: getEnvBool("LOG_HEALTH_CHECKS", true),
		StaticDir:       getEnv("STATIC_DIR", "./static"),

		CloudMode:   cloud,
		TempDir:     os.Getenv("TEMP_DIR"),
		DownloadDir: os.Getenv("DOWNLOAD_DIR"),
		DatabaseDir: getEnv("DATABASE_DIR", defaultDBDir),

		FetcherBackend: getEnv("FETCHER_BACKEND", "ytdlp"),
		YTDLPPath:      getEnv("YTDLP_PATH", "yt-dlp"),
		FFmpegPath:     getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:    getEnv("FFPROBE_PATH", "ffprobe"),
		FetchRetries:   getEnvInt("FETCH_RETRIES", 10),
		SocketTimeout:  getEnvDuration("SOCKET_TIMEOUT", 30*time.Second),
		SegmentLimit:   time.Duration(getEnvInt("SEGMENT_SECONDS", 30)) * time.Second,
		NarrationFit:   getEnv("NARRATION_FIT", "once"),
		TTSLang:        getEnv("TTS_LANG", "en"),
		TTSTLD:         getEnv("TTS_TLD", "co.uk"),
		TTSBaseURL:     os.Getenv("TTS_BASE_URL"),
		EncodeThreads:  getEnvInt("ENCODE_THREADS", 0),

		DeliveryMode:   os.Getenv("DELIVERY_MODE"),
		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 2),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 5),
		CORSOrigins:    getEnv("CORS_ORIGINS", defaultCORS),

		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "media-toolkit"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		MinioURLExpiry: getEnvDuration("MINIO_URL_EXPIRY", time.Hour),

		AMQPURL:   os.Getenv("AMQP_URL"),
		AMQPQueue: getEnv("AMQP_QUEUE", "media.jobs.completed"),
	}

	logging.Info("  PORT:                %s", config.Port)
	logging.Info("  METRICS_PORT:        %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:     %v", config.MetricsEnabled)
	logging.Info("  CLOUD_MODE:          %v", config.CloudMode)
	logging.Info("  DATABASE_DIR:        %s", config.DatabaseDir)
	logging.Info("  STATIC_DIR:          %s", config.StaticDir)
	logging.Info("  DELIVERY_MODE:       %s", orUnset(config.DeliveryMode))
	logging.Info("  FETCHER_BACKEND:     %s", config.FetcherBackend)
	logging.Info("  FETCH_RETRIES:       %d", config.FetchRetries)
	logging.Info("  SOCKET_TIMEOUT:      %v", config.SocketTimeout)
	logging.Info("  SEGMENT_SECONDS:     %d", int(config.SegmentLimit.Seconds()))
	logging.Info("  NARRATION_FIT:       %s", config.NarrationFit)
	logging.Info("  TTS_LANG/TLD:        %s / %s", config.TTSLang, config.TTSTLD)
	logging.Info("  RATE_LIMIT:          %.2f rps, burst %d", config.RateLimitRPS, config.RateLimitBurst)
	logging.Info("  CORS_ORIGINS:        %s", orSameOrigin(config.CORSOrigins))
	logging.Info("  MINIO_ENDPOINT:      %s", orUnset(config.MinioEndpoint))
	logging.Info("  MINIO_SECRET_KEY:    %s", redact(config.MinioSecretKey))
	logging.Info("  AMQP_URL:            %s", redact(config.AMQPURL))
	logging.Info("  LOG_STATIC_FILES:    %v", config.LogStaticFiles)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", config.LogHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	if config.SegmentLimit <= 0 {
		logging.Warn("  Invalid SEGMENT_SECONDS, using default: 30")
		config.SegmentLimit = 30 * time.Second
	}

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	databaseDir, err := filepath.Abs(config.DatabaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}
	config.DatabaseDir = databaseDir
	config.DatabasePath = filepath.Join(databaseDir, "ledger.db")
	logging.Info("  Database directory (absolute): %s", databaseDir)

	if err := ensureDirectory(databaseDir, "database"); err != nil {
		return nil, fmt.Errorf("database directory error: %w", err)
	}

	logging.Debug("  Testing database directory write access...")
	if err := testWriteAccess(databaseDir); err != nil {
		return nil, fmt.Errorf("database directory is not writable (required for the job ledger): %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("EXTERNAL TOOLS")
	logging.Info("------------------------------------------------------------")

	config.FFmpegAvailable = checkTool(config.FFmpegPath, "-version", "video transforms will fall back to the original download")
	config.FFprobeAvailable = checkTool(config.FFprobePath, "-version", "durations will come from the fetcher")
	if config.FetcherBackend == "ytdlp" {
		config.YTDLPAvailable = checkTool(config.YTDLPPath, "--version", "downloads will fail")
	}

	return config, nil
}

func checkTool(name, versionArg, consequence string) bool {
	version, err := command.Check(name, versionArg)
	if err != nil {
		logging.Warn("  %s check failed: %v", name, err)
		logging.Warn("  Without it %s", consequence)
		return false
	}
	logging.Info("  [OK] %s: %s", filepath.Base(name), version)
	return true
}

func orUnset(s string) string {
	if s == "" {
		return "(default)"
	}
	return s
}

func orSameOrigin(s string) string {
	if s == "" {
		return "(same origin only)"
	}
	return s
}

func redact(s string) string {
	if s == "" {
		return "(not set)"
	}
	return "(set)"
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// LogEnvironment logs the resolved runtime environment.
func LogEnvironment(env *environment.Environment) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("ENVIRONMENT")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Mode:            %s", env.Mode)
	logging.Info("  Temp directory:  %s", env.TempDir)
	logging.Info("  Final directory: %s", env.FinalDir)
	if env.IsCloud() {
		logging.Info("  Directories are created on first use")
	}
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DATABASE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Job ledger initialized in %v", duration)
}

// PipelineInfo summarizes the assembled pipeline for the startup log.
type PipelineInfo struct {
	Fetcher   string
	Delivery  string
	Narration string
	Events    bool
}

// LogPipelineInit logs the chosen pipeline components.
func LogPipelineInit(info PipelineInfo) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("PIPELINE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Fetcher backend:  %s", info.Fetcher)
	logging.Info("  Delivery:         %s", info.Delivery)
	logging.Info("  Narration fit:    %s", info.Narration)
	logging.Info("  Job events:       %s", enabledString(info.Events))
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			// PathPrefix-only routes (static files) have no template
			pathTemplate, err = route.GetPathRegexp()
			if err != nil {
				return nil
			}
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logStaticFiles, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}
			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
			logging.Debug("")
		}
	}

	logging.Info("  HTTP logging enabled")
	if logStaticFiles {
		logging.Info("    Static file logging: ON")
	} else {
		logging.Info("    Static file logging: OFF (set LOG_STATIC_FILES=true to enable)")
	}
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	first := parts[0]

	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs the listening addresses once both servers are up.
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED in %v", config.StartupDuration)
	logging.Info("------------------------------------------------------------")
	logging.Info("  UI and API:      http://localhost:%s", config.Port)
	logging.Info("  Job feed:        ws://localhost:%s/api/jobs/feed", config.Port)
	if config.MetricsEnabled {
		logging.Info("  Metrics:         http://localhost:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("  Metrics:         DISABLED")
	}
	logging.Info("  Listening on all interfaces; Ctrl+C stops the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
    __  ___         ___         ______            ____   _ __
   /  |/  /__  ____/ (_)___ _  /_  __/___  ____  / / /__(_) /_
  / /|_/ / _ \/ __  / / __ '/   / / / __ \/ __ \/ / //_/ / __/
 / /  / /  __/ /_/ / / /_/ /   / / / /_/ / /_/ / / ,< / / /_
/_/  /_/\___/\__,_/_/\__,_/   /_/  \____/\____/_/_/|_/_/\__/

------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		logging.Debug("    [OK] Created %s", path)
		return nil
	case err != nil:
		return fmt.Errorf("stat %s: %w", path, err)
	case !info.IsDir():
		return fmt.Errorf("%s exists but is not a directory", path)
	}
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		logging.Warn("Invalid number for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

// getEnvDuration accepts Go durations ("45s") and bare seconds ("45").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		logging.Warn("Invalid duration for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
