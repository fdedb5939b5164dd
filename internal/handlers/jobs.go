package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"media-toolkit/internal/database"
	"media-toolkit/internal/logging"
	"media-toolkit/internal/pipeline"
)

// JobsResponse is a page of the job ledger.
type JobsResponse struct {
	Success bool              `json:"success"`
	Jobs    []pipeline.Record `json:"jobs"`
	Limit   int               `json:"limit"`
	Offset  int               `json:"offset"`
}

// JobResponse wraps a single ledger record.
type JobResponse struct {
	Success bool             `json:"success"`
	Job     *pipeline.Record `json:"job"`
}

// ListJobs returns recent jobs, newest first. Supports status, limit and offset query parameters.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := database.ListOptions{Status: pipeline.Status(q.Get("status"))}
	var err error
	if opts.Limit, err = queryInt(q.Get("limit"), database.DefaultListLimit); err != nil {
		writeJSONError(w, "Invalid limit", http.StatusBadRequest)
		return
	}
	if opts.Offset, err = queryInt(q.Get("offset"), 0); err != nil {
		writeJSONError(w, "Invalid offset", http.StatusBadRequest)
		return
	}
	if opts.Limit > database.MaxListLimit {
		opts.Limit = database.MaxListLimit
	}

	jobs, err := h.jobs.ListJobs(r.Context(), opts)
	if err != nil {
		logging.Error("Failed to list jobs: %v", err)
		writeJSONError(w, "Failed to list jobs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, JobsResponse{Success: true, Jobs: jobs, Limit: opts.Limit, Offset: opts.Offset})
}

// GetJob returns one job by id.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	job, err := h.jobs.GetJob(r.Context(), id)
	if errors.Is(err, database.ErrJobNotFound) {
		writeJSONError(w, "Job not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.Error("Failed to get job %s: %v", id, err)
		writeJSONError(w, "Failed to get job", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, JobResponse{Success: true, Job: job})
}

func queryInt(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New("invalid integer")
	}
	return n, nil
}

// JobFeed upgrades to a websocket that receives each job record as it finishes.
func (h *Handlers) JobFeed(w http.ResponseWriter, r *http.Request) {
	if h.feed == nil {
		writeJSONError(w, "Job feed unavailable", http.StatusServiceUnavailable)
		return
	}
	h.feed.ServeHTTP(w, r)
}
