package pipeline

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"media-toolkit/internal/logging"
	"media-toolkit/internal/metrics"
)

// Request is one accepted download.
type Request struct {
	URL     string
	Quality string
	Dub     bool
	Segment bool
}

// Job is the per-request context. WorkDir is unique to the job, so
// concurrent jobs never share intermediate files.
type Job struct {
	ID        string
	TS        string
	WorkDir   string
	Request   Request
	StartedAt time.Time

	mu         sync.Mutex
	stage      Stage
	stageStart time.Time
	cleaned    bool
	log        logging.Scope
}

func newJob(id string, now time.Time, tempDir string, req Request) *Job {
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	return &Job{
		ID:        id,
		TS:        now.Format("150405"),
		WorkDir:   filepath.Join(tempDir, id),
		Request:   req,
		StartedAt: now,
		log:       logging.For("job " + short),
	}
}

// Log returns the job-scoped logger.
func (j *Job) Log() logging.Scope {
	return j.log
}

// cleanup removes the working directory once. Failures are logged, never
// returned to the client.
func (j *Job) cleanup() {
	j.mu.Lock()
	done := j.cleaned
	j.cleaned = true
	j.mu.Unlock()
	if done {
		return
	}

	if err := j.Enter(StageCleanup); err != nil {
		j.log.Debug("%v", err)
	}
	if err := os.RemoveAll(j.WorkDir); err != nil {
		metrics.CleanupErrors.Inc()
		j.log.Warn("Cleanup of %s incomplete: %v", j.WorkDir, err)
		return
	}
	j.log.Debug("Removed %s", j.WorkDir)
}

// Artifact is the finished file handed to delivery.
type Artifact struct {
	Path     string
	Filename string
	Suffixes []string
	Fallback bool
	Size     int64
}

// Result is a finalized job awaiting delivery.
type Result struct {
	Job      *Job
	Artifact Artifact
	Title    string
	Uploader string
}

// Cleanup removes the job's working directory. Safe to call more than once.
func (r *Result) Cleanup() {
	if r == nil || r.Job == nil {
		return
	}
	r.Job.cleanup()
}
