package delivery

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"media-toolkit/internal/logging"
	"media-toolkit/internal/media"
	"media-toolkit/internal/pipeline"
	"media-toolkit/internal/streaming"
)

// Stream sends the artifact as the response body. The artifact stays in the
// job directory and disappears with it once the response is done.
type Stream struct {
	config streaming.Config
}

// NewStream creates a stream strategy with the given write limits.
func NewStream(config streaming.Config) *Stream {
	return &Stream{config: config}
}

func (s *Stream) Name() Mode { return ModeStream }

// Dir keeps the artifact next to the job's intermediates.
func (s *Stream) Dir(workDir string) string { return workDir }

func (s *Stream) Deliver(w http.ResponseWriter, r *http.Request, res *pipeline.Result) error {
	f, err := os.Open(res.Artifact.Path)
	if err != nil {
		observe(ModeStream, err, 0)
		return fmt.Errorf("open artifact: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("failed to close %s: %v", res.Artifact.Path, err)
		}
	}()

	ServeHeaders(w, res.Artifact.Filename, res.Artifact.Size)
	w.WriteHeader(http.StatusOK)

	n, err := streaming.Copy(r.Context(), w, f, s.config)
	observe(ModeStream, err, n)
	if err != nil {
		if errors.Is(err, streaming.ErrClientGone) {
			logging.Info("Client left during download of %s after %d bytes", res.Artifact.Filename, n)
		} else {
			logging.Warn("Streaming %s failed after %d bytes: %v", res.Artifact.Filename, n, err)
		}
	}
	// headers are already sent
	return nil
}

// ServeHeaders sets the attachment headers for filename.
func ServeHeaders(w http.ResponseWriter, filename string, size int64) {
	w.Header().Set("Content-Type", media.GetMimeType(filename))
	w.Header().Set("Content-Disposition", ContentDisposition(filename))
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
}
