package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"media-toolkit/internal/logging"
)

// LoggingConfig selects which requests reach the access log.
type LoggingConfig struct {
	// SkipPaths are path prefixes that are never logged
	SkipPaths       []string
	SkipExtensions  []string
	LogStaticFiles  bool
	LogHealthChecks bool
}

// DefaultLoggingConfig logs API calls and health checks but not UI assets.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		SkipExtensions:  []string{".css", ".js", ".ico", ".png", ".jpg", ".jpeg", ".gif", ".svg", ".woff", ".woff2", ".ttf"},
		LogHealthChecks: true,
	}
}

var healthCheckPaths = map[string]bool{
	"/health": true,
	"/livez":  true,
}

func (c LoggingConfig) skip(path string) bool {
	for _, prefix := range c.SkipPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	if healthCheckPaths[path] {
		return !c.LogHealthChecks
	}
	if c.LogStaticFiles {
		return false
	}
	lower := strings.ToLower(path)
	for _, ext := range c.SkipExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Logger writes one W3C extended format line per request:
//
//	date time c-ip cs-method cs-uri-stem cs-uri-query sc-status sc-bytes time-taken sc(Content-Type) cs(User-Agent) cs(Referer)
func Logger(config LoggingConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.skip(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			logging.Printf("%s", accessLine(r, rec, time.Since(start)))
		})
	}
}

func accessLine(r *http.Request, rec *statusRecorder, took time.Duration) string {
	now := time.Now().UTC()
	fields := []string{
		now.Format("2006-01-02"),
		now.Format("15:04:05"),
		w3cField(getClientIP(r)),
		w3cField(r.Method),
		w3cField(r.URL.Path),
		w3cField(r.URL.RawQuery),
		strconv.Itoa(rec.statusCode),
		strconv.FormatInt(rec.bytesWritten, 10),
		strconv.FormatInt(took.Milliseconds(), 10),
		w3cField(rec.Header().Get("Content-Type")),
		w3cField(r.Header.Get("User-Agent")),
		w3cField(r.Header.Get("Referer")),
	}
	return strings.Join(fields, " ")
}

// w3cField sanitizes a user-controlled value, writes "-" for empty values
// and quotes values containing whitespace or quotes.
func w3cField(s string) string {
	s = sanitizeLogField(s)
	switch {
	case s == "":
		return "-"
	case strings.ContainsAny(s, " \t\""):
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	default:
		return s
	}
}

// sanitizeLogField turns CR and LF into spaces and drops every other
// control character except tab.
func sanitizeLogField(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r':
			return ' '
		case r == '\t':
			return r
		case r < 0x20 || r == 0x7f:
			return -1
		default:
			return r
		}
	}, s)
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
