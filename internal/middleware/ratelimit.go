package middleware

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"media-toolkit/internal/logging"
	"media-toolkit/internal/metrics"
)

// RateLimitConfig configures per-client rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per client IP. Zero disables limiting.
	RequestsPerSecond float64
	Burst             int
	// Methods lists the limited methods; other methods pass through.
	Methods []string
	// IdleTTL is how long an unused client limiter is kept.
	IdleTTL time.Duration
}

// DefaultRateLimitConfig limits POSTs, the routes that start downloads.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 2,
		Burst:             5,
		Methods:           []string{http.MethodPost},
		IdleTTL:           10 * time.Minute,
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter holds one token bucket per client IP.
type RateLimiter struct {
	config  RateLimitConfig
	methods map[string]bool

	mu      sync.Mutex
	clients map[string]*clientLimiter
	now     func() time.Time
}

// NewRateLimiter creates a limiter.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.Burst < 1 {
		config.Burst = 1
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = 10 * time.Minute
	}
	methods := make(map[string]bool, len(config.Methods))
	for _, m := range config.Methods {
		methods[m] = true
	}
	return &RateLimiter{
		config:  config,
		methods: methods,
		clients: make(map[string]*clientLimiter),
		now:     time.Now,
	}
}

// Allow reports whether ip may make another request now.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	c, ok := rl.clients[ip]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.Burst)}
		rl.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// Prune drops limiters idle for longer than IdleTTL and returns how many were dropped.
func (rl *RateLimiter) Prune() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.config.IdleTTL)
	dropped := 0
	for ip, c := range rl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(rl.clients, ip)
			dropped++
		}
	}
	return dropped
}

// Middleware rejects requests over the limit with 429 and a JSON envelope.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.config.RequestsPerSecond <= 0 || !rl.methods[r.Method] {
			next.ServeHTTP(w, r)
			return
		}

		ip := getClientIP(r)
		if !rl.Allow(ip) {
			metrics.HTTPRateLimited.WithLabelValues(routeLabel(r)).Inc()
			logging.Debug("Rate limit exceeded for %s on %s", sanitizeLogField(ip), sanitizeLogField(r.URL.Path))

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"error":   "Rate limit exceeded",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// StartPruning drops idle limiters every interval until stop is closed.
func (rl *RateLimiter) StartPruning(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := rl.Prune(); n > 0 {
					logging.Debug("Pruned %d idle rate limiters", n)
				}
			case <-stop:
				return
			}
		}
	}()
}
