// Package retry runs operations that can fail transiently with capped
// exponential backoff.
package retry

import (
	"context"
	"errors"
	"time"

	"media-toolkit/internal/logging"
	"media-toolkit/internal/metrics"
)

// Config configures retry behavior
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// Retryable reports whether err is worth another attempt. Nil means every error is.
	Retryable func(err error) bool
}

// DefaultConfig returns defaults suited to network fetches
func DefaultConfig() Config {
	return Config{
		MaxRetries:     3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     8 * time.Second,
	}
}

// permanent marks an error that must not be retried.
type permanent struct {
	err error
}

func (p *permanent) Error() string { return p.err.Error() }
func (p *permanent) Unwrap() error { return p.err }

// Permanent wraps err so Do returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanent{err: err}
}

// Do calls fn until it succeeds, returns a permanent error, the context ends,
// or MaxRetries additional attempts have failed. op labels logs and metrics.
func Do(ctx context.Context, op string, config Config, fn func(attempt int) error) error {
	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		err := fn(attempt)
		if err == nil {
			if attempt > 0 {
				logging.Info("%s succeeded on retry %d", op, attempt)
			}
			return nil
		}
		lastErr = err

		var p *permanent
		if errors.As(err, &p) {
			return p.err
		}
		if config.Retryable != nil && !config.Retryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return lastErr
		}

		// Don't sleep after the last attempt
		if attempt < config.MaxRetries {
			metrics.RetryAttempts.WithLabelValues(op).Inc()
			logging.Debug("%s failed: %v, retrying in %v (attempt %d/%d)",
				op, err, backoff, attempt+1, config.MaxRetries)

			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return lastErr
			case <-timer.C:
			}

			backoff *= 2
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}
	}

	logging.Warn("%s failed after %d retries: %v", op, config.MaxRetries, lastErr)
	metrics.RetryExhausted.WithLabelValues(op).Inc()
	return lastErr
}
