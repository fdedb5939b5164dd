package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"media-toolkit/internal/filesystem"
	"media-toolkit/internal/logging"
	"media-toolkit/internal/pipeline"
)

// DownloadFile streams a finished file from the final directory as an
// attachment. The final directory may be the user's Desktop, so names no job
// produced are reported as missing.
func (h *Handlers) DownloadFile(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("file")
	if !filesystem.IsSafeName(name) {
		writeJSONError(w, "Invalid filename", http.StatusBadRequest)
		return
	}

	known := false
	if h.jobs != nil {
		var err error
		if known, err = h.jobs.HasArtifact(r.Context(), name); err != nil {
			logging.Error("Ledger lookup for %s failed: %v", name, err)
			writeJSONError(w, "Failed to read file", http.StatusInternalServerError)
			return
		}
	}
	if !known {
		writeJSONError(w, "File not found", http.StatusNotFound)
		return
	}

	path := filepath.Join(h.finalDir, name)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		if err != nil && !os.IsNotExist(err) {
			logging.Warn("Stat %s failed: %v", path, err)
		}
		writeJSONError(w, "File not found", http.StatusNotFound)
		return
	}

	res := &pipeline.Result{Artifact: pipeline.Artifact{
		Path:     path,
		Filename: name,
		Size:     info.Size(),
	}}
	if err := h.files.Deliver(w, r, res); err != nil {
		logging.Error("Serving %s failed: %v", name, err)
		writeJSONError(w, "Failed to read file", http.StatusInternalServerError)
	}
}
