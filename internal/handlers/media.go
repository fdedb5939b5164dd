package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"media-toolkit/internal/fetcher"
	"media-toolkit/internal/logging"
	"media-toolkit/internal/pipeline"
)

// VideoInfoRequest is the body of POST /api/video-info.
type VideoInfoRequest struct {
	URL string `json:"url"`
}

// VideoInfoResponse flattens the inspected metadata next to the success flag.
type VideoInfoResponse struct {
	Success bool `json:"success"`
	*fetcher.Info
}

// ProcessRequest is the body of POST /api/process.
type ProcessRequest struct {
	URL             string      `json:"url"`
	Format          formatValue `json:"format"`
	EnableDubber    bool        `json:"enable_dubber"`
	EnableSegmenter bool        `json:"enable_segmenter"`
}

// formatValue accepts a quality as either a JSON string or number.
type formatValue string

func (f *formatValue) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
		*f = ""
	case string:
		*f = formatValue(x)
	case float64:
		*f = formatValue(strconv.FormatFloat(x, 'f', -1, 64))
	default:
		return fmt.Errorf("format must be a string or number")
	}
	return nil
}

// VideoInfo inspects a URL and returns its metadata and selectable formats.
func (h *Handlers) VideoInfo(w http.ResponseWriter, r *http.Request) {
	var req VideoInfoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	url := strings.TrimSpace(req.URL)
	if url == "" {
		writeJSONError(w, "No URL", http.StatusBadRequest)
		return
	}

	info, err := h.inspector.Inspect(r.Context(), url)
	if err != nil {
		logging.Warn("Reading info for %s failed: %v", url, err)
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if info.Formats == nil {
		info.Formats = []fetcher.Format{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, VideoInfoResponse{Success: true, Info: info})
}

// Process runs a download job and hands the result to the delivery strategy.
func (h *Handlers) Process(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	res, err := h.runner.Run(r.Context(), pipeline.Request{
		URL:     req.URL,
		Quality: string(req.Format),
		Dub:     req.EnableDubber,
		Segment: req.EnableSegmenter,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if pipeline.IsClientError(err) {
			status = http.StatusBadRequest
		}
		writeJSONError(w, pipeline.ClientMessage(err), status)
		return
	}
	defer res.Cleanup()

	log := res.Job.Log()
	if err := res.Job.Enter(pipeline.StageDelivering); err != nil {
		log.Warn("%v", err)
	}

	if err := h.delivery.Deliver(w, r, res); err != nil {
		log.Error("Delivery via %s failed: %v", h.delivery.Name(), err)
		writeJSONError(w, fmt.Sprintf("Delivery failed: %v", err), http.StatusInternalServerError)
		return
	}
	log.Info("Delivered %s via %s", res.Artifact.Filename, h.delivery.Name())
}
