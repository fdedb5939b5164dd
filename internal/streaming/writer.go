package streaming

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"media-toolkit/internal/logging"
)

// Sentinel errors for streaming operations.
var (
	// ErrWriteTimeout indicates that a single write, or the whole transfer,
	// took longer than allowed. Usually a client reading too slowly.
	ErrWriteTimeout = errors.New("write timeout exceeded")

	// ErrClientGone indicates that the request context was canceled before
	// the transfer completed.
	ErrClientGone = errors.New("client disconnected")

	// ErrStreamCanceled indicates the writer was closed by the server.
	ErrStreamCanceled = errors.New("stream canceled")
)

// Config configures a TimeoutWriter.
type Config struct {
	// WriteTimeout bounds each chunk written to the connection.
	WriteTimeout time.Duration
	// MaxDuration bounds the whole transfer (0 = unlimited).
	MaxDuration time.Duration
	// ChunkSize splits large writes and flushes between chunks (0 = as received).
	ChunkSize int
	// OnProgress is called after every mebibyte written.
	OnProgress func(bytesWritten int64, elapsed time.Duration)
}

// DefaultConfig returns defaults suited to file downloads.
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 30 * time.Second,
		ChunkSize:    64 * 1024,
	}
}

const progressStep = 1 << 20

// TimeoutWriter wraps an http.ResponseWriter so that a stalled or vanished
// client fails the transfer instead of pinning the handler.
type TimeoutWriter struct {
	w      http.ResponseWriter
	rc     *http.ResponseController
	ctx    context.Context
	config Config
	start  time.Time

	mu      sync.Mutex
	written int64
	closed  bool
}

// NewTimeoutWriter wraps w. ctx is normally the request context.
func NewTimeoutWriter(ctx context.Context, w http.ResponseWriter, config Config) *TimeoutWriter {
	return &TimeoutWriter{
		w:      w,
		rc:     http.NewResponseController(w),
		ctx:    ctx,
		config: config,
		start:  time.Now(),
	}
}

// Write implements io.Writer.
func (tw *TimeoutWriter) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		if err := tw.check(); err != nil {
			return total, err
		}

		n := len(p)
		if tw.config.ChunkSize > 0 && n > tw.config.ChunkSize {
			n = tw.config.ChunkSize
		}

		written, err := tw.writeChunk(p[:n])
		total += written
		if err != nil {
			return total, err
		}
		p = p[n:]
	}
	return total, nil
}

func (tw *TimeoutWriter) check() error {
	tw.mu.Lock()
	closed := tw.closed
	tw.mu.Unlock()
	if closed {
		return ErrStreamCanceled
	}

	if err := tw.ctx.Err(); err != nil {
		if errors.Is(err, context.Canceled) {
			return ErrClientGone
		}
		return ErrWriteTimeout
	}

	if tw.config.MaxDuration > 0 && time.Since(tw.start) > tw.config.MaxDuration {
		return ErrWriteTimeout
	}
	return nil
}

func (tw *TimeoutWriter) writeChunk(p []byte) (int, error) {
	if tw.config.WriteTimeout > 0 {
		// recorders and some wrappers cannot set deadlines; the context
		// checks still apply to them
		if err := tw.rc.SetWriteDeadline(time.Now().Add(tw.config.WriteTimeout)); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return 0, err
		}
	}

	n, err := tw.w.Write(p)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return n, ErrWriteTimeout
		}
		return n, err
	}

	if err := tw.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		logging.Debug("flush failed: %v", err)
	}

	tw.mu.Lock()
	before := tw.written
	tw.written += int64(n)
	after := tw.written
	tw.mu.Unlock()

	if tw.config.OnProgress != nil && after/progressStep > before/progressStep {
		tw.config.OnProgress(after, time.Since(tw.start))
	}
	return n, nil
}

// Close stops further writes and clears the write deadline.
func (tw *TimeoutWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.closed {
		return nil
	}
	tw.closed = true

	if tw.config.WriteTimeout > 0 {
		if err := tw.rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return err
		}
	}
	return nil
}

// Stats returns the bytes written so far and the time since the writer was created.
func (tw *TimeoutWriter) Stats() (int64, time.Duration) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.written, time.Since(tw.start)
}

// Copy streams r to w with timeout protection and returns the bytes written.
// Headers must be set before calling.
func Copy(ctx context.Context, w http.ResponseWriter, r io.Reader, config Config) (int64, error) {
	tw := NewTimeoutWriter(ctx, w, config)
	defer func() {
		if err := tw.Close(); err != nil {
			logging.Warn("Failed to close timeout writer: %v", err)
		}
	}()

	w.Header().Set("X-Content-Type-Options", "nosniff")

	n, err := io.Copy(tw, r)
	_, elapsed := tw.Stats()
	logging.Debug("Stream completed: %d bytes in %v", n, elapsed)
	return n, err
}
