package delivery

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode"

	"media-toolkit/internal/logging"
	"media-toolkit/internal/metrics"
	"media-toolkit/internal/pipeline"
)

// Mode names a delivery strategy.
type Mode string

const (
	ModePersist  Mode = "persist"
	ModeRelocate Mode = "relocate"
	ModeStream   Mode = "stream"
	ModeObject   Mode = "object"
)

// DownloadRoute serves relocated artifacts.
const DownloadRoute = "/api/download_file"

// Strategy hands a finished artifact to the client. Dir tells the pipeline
// where to place the artifact during finalization.
//
// Deliver returns an error only when nothing has been written to w yet, so the
// caller can still answer with an error envelope.
type Strategy interface {
	pipeline.Placer
	Name() Mode
	Deliver(w http.ResponseWriter, r *http.Request, res *pipeline.Result) error
}

// DefaultMode returns the strategy used when DELIVERY_MODE is unset.
func DefaultMode(cloud bool) Mode {
	if cloud {
		return ModeRelocate
	}
	return ModePersist
}

// ParseMode validates a configured mode. An empty value selects the default.
func ParseMode(s string, cloud bool) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return DefaultMode(cloud), nil
	case ModePersist, ModeRelocate, ModeStream, ModeObject:
		return m, nil
	default:
		return "", fmt.Errorf("unknown delivery mode %q", s)
	}
}

// FileEntry names one delivered file.
type FileEntry struct {
	Filename string `json:"filename"`
}

// FilesResponse is returned when the artifact was saved on the server's disk.
type FilesResponse struct {
	Success bool        `json:"success"`
	Files   []FileEntry `json:"files"`
}

// LinkResponse is returned when the client must fetch the artifact separately.
type LinkResponse struct {
	Success     bool   `json:"success"`
	DownloadURL string `json:"download_url"`
	Filename    string `json:"filename"`
}

// ContentDisposition builds an attachment header for filename. Non-ASCII
// names get an RFC 5987 filename* parameter alongside an ASCII fallback.
func ContentDisposition(filename string) string {
	ascii := strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII || r == '"' || r == '\\' || unicode.IsControl(r) {
			return '_'
		}
		return r
	}, filename)

	header := fmt.Sprintf(`attachment; filename="%s"`, ascii)
	if ascii != filename {
		header += "; filename*=UTF-8''" + url.PathEscape(filename)
	}
	return header
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("failed to encode JSON response: %v", err)
	}
	return nil
}

func observe(mode Mode, err error, bytes int64) {
	if err != nil {
		metrics.DeliveriesTotal.WithLabelValues(string(mode), "error").Inc()
		return
	}
	metrics.DeliveriesTotal.WithLabelValues(string(mode), "success").Inc()
	if bytes > 0 {
		metrics.DeliveredBytes.WithLabelValues(string(mode)).Add(float64(bytes))
	}
}
