package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"media-toolkit/internal/fetcher"
	"media-toolkit/internal/filesystem"
	"media-toolkit/internal/media"
	"media-toolkit/internal/metrics"
	"media-toolkit/internal/narration"
)

// DefaultSegmentLimit is the window kept by the segment transform.
const DefaultSegmentLimit = 30 * time.Second

// Encoder inspects and renders clips.
type Encoder interface {
	Inspect(ctx context.Context, path string) (*media.Info, error)
	Render(ctx context.Context, clip media.Clip, dest string) error
}

// Dubber replaces a clip's audio with spoken text.
type Dubber interface {
	Dub(ctx context.Context, clip media.Clip, text, workDir string) (media.Clip, error)
}

// Gate holds back encoder runs while resources are short.
type Gate interface {
	Wait(ctx context.Context) error
}

// Placer decides where a finished artifact is placed. Strategies that serve
// the file straight from the job directory return workDir.
type Placer interface {
	Dir(workDir string) string
}

// Workspace provides the scratch area jobs run in.
type Workspace interface {
	Prepare() error
	Temp() string
}

// Observer is notified once per job with its final record.
type Observer interface {
	JobFinished(ctx context.Context, rec Record)
}

// Record summarizes a finished job for the ledger and event consumers.
type Record struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	Quality    string    `json:"quality"`
	Dub        bool      `json:"dub"`
	Segment    bool      `json:"segment"`
	Status     Status    `json:"status"`
	Stage      Stage     `json:"stage"`
	Title      string    `json:"title"`
	Filename   string    `json:"filename"`
	Suffixes   []string  `json:"suffixes"`
	Fallback   bool      `json:"fallback"`
	Size       int64     `json:"size"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Config wires an Orchestrator.
type Config struct {
	Workspace    Workspace
	Fetcher      fetcher.Fetcher
	Encoder      Encoder
	Dubber       Dubber
	Placer       Placer
	Memory       Gate
	Observers    []Observer
	SegmentLimit time.Duration

	// Now and NewID are replaceable in tests.
	Now   func() time.Time
	NewID func() string
}

// Orchestrator runs jobs through fetching, optional transforms and
// finalization. Delivery is performed by the caller on the returned Result.
type Orchestrator struct {
	cfg Config
}

// New creates an orchestrator.
func New(cfg Config) *Orchestrator {
	if cfg.SegmentLimit <= 0 {
		cfg.SegmentLimit = DefaultSegmentLimit
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = func() string { return uuid.NewString() }
	}
	return &Orchestrator{cfg: cfg}
}

// Run executes one job. On success the caller owns the Result and must call
// Cleanup after delivery. On error the working directory is already removed.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		metrics.JobsTotal.WithLabelValues(string(StatusValidationError)).Inc()
		return nil, newValidationError("No URL provided")
	}

	metrics.JobsInProgress.Inc()
	defer metrics.JobsInProgress.Dec()

	job := newJob(o.cfg.NewID(), o.cfg.Now(), o.cfg.Workspace.Temp(), req)
	job.log.Info("Processing %s (format=%q dub=%v segment=%v)", req.URL, req.Quality, req.Dub, req.Segment)

	res, err := o.run(ctx, job)

	rec := Record{
		ID:         job.ID,
		URL:        req.URL,
		Quality:    req.Quality,
		Dub:        req.Dub,
		Segment:    req.Segment,
		Stage:      job.Stage(),
		StartedAt:  job.StartedAt,
		FinishedAt: o.cfg.Now(),
	}
	if err != nil {
		job.cleanup()
		rec.Status = errorStatus(err)
		if ctx.Err() != nil {
			rec.Status = StatusCanceled
		}
		rec.Error = ClientMessage(err)
		job.log.Error("Job failed in %s: %v", rec.Stage, err)
	} else {
		rec.Status = StatusSuccess
		if res.Artifact.Fallback {
			rec.Status = StatusFallback
		}
		rec.Title = res.Title
		rec.Filename = res.Artifact.Filename
		rec.Suffixes = res.Artifact.Suffixes
		rec.Fallback = res.Artifact.Fallback
		rec.Size = res.Artifact.Size
	}
	metrics.JobsTotal.WithLabelValues(string(rec.Status)).Inc()

	for _, obs := range o.cfg.Observers {
		obs.JobFinished(context.WithoutCancel(ctx), rec)
	}

	return res, err
}

func (o *Orchestrator) run(ctx context.Context, job *Job) (*Result, error) {
	if err := job.Enter(StageFetching); err != nil {
		return nil, newFetchError("Invalid job state", err)
	}
	if err := o.cfg.Workspace.Prepare(); err != nil {
		return nil, newFetchError("Working directory unavailable", err)
	}
	if err := filesystem.EnsureDir(job.WorkDir); err != nil {
		return nil, newFetchError("Working directory unavailable", err)
	}

	dl, err := o.cfg.Fetcher.Fetch(ctx, job.Request.URL, job.Request.Quality, filepath.Join(job.WorkDir, "source.mp4"))
	if err != nil {
		return nil, newFetchError("Download failed", err)
	}

	path := dl.Path
	var suffixes []string
	fallback := false

	if job.Request.Segment || job.Request.Dub {
		if err := job.Enter(StageTransforming); err != nil {
			return nil, newFinalizeError("Invalid job state", err)
		}
		out, applied, terr := o.transform(ctx, job, dl)
		switch {
		case terr == nil:
			path, suffixes = out, applied
		case ctx.Err() != nil:
			// nobody is waiting for the fallback
			return nil, terr
		default:
			fallback = true
			metrics.TransformFallbacks.Inc()
			job.log.Warn("Transform failed, delivering the original download: %v", terr)
		}
	}

	if err := job.Enter(StageFinalizing); err != nil {
		return nil, newFinalizeError("Invalid job state", err)
	}

	title := SanitizeTitle(dl.Title)
	dir := o.cfg.Placer.Dir(job.WorkDir)
	if err := filesystem.EnsureDir(dir); err != nil {
		return nil, newFinalizeError("Destination unavailable", err)
	}

	finalPath, err := reserveName(dir, title, job.TS, job.ID, suffixes)
	if err != nil {
		return nil, newFinalizeError("Could not name the output file", err)
	}
	if err := filesystem.Move(path, finalPath); err != nil {
		if rmErr := os.Remove(finalPath); rmErr != nil && !os.IsNotExist(rmErr) {
			job.log.Warn("failed to release reserved name %s: %v", finalPath, rmErr)
		}
		return nil, newFinalizeError("Could not place the output file", err)
	}

	artifact := Artifact{
		Path:     finalPath,
		Filename: filepath.Base(finalPath),
		Suffixes: suffixes,
		Fallback: fallback,
	}
	if fi, err := os.Stat(finalPath); err == nil {
		artifact.Size = fi.Size()
	}
	job.log.Info("Finalized %s (%s)", artifact.Filename, humanize.Bytes(uint64(artifact.Size)))

	return &Result{Job: job, Artifact: artifact, Title: dl.Title, Uploader: dl.Uploader}, nil
}

// transform applies the requested transforms in order (segment, then dub)
// and renders once. It returns the rendered path and the suffixes earned, or
// the fetched path with no suffixes when no transform changed anything.
func (o *Orchestrator) transform(ctx context.Context, job *Job, dl *fetcher.Download) (string, []string, error) {
	if o.cfg.Encoder == nil {
		return "", nil, newTransformError("Encoding unavailable", errors.New("no encoder configured"))
	}

	if o.cfg.Memory != nil {
		if err := o.cfg.Memory.Wait(ctx); err != nil {
			return "", nil, newTransformError("Interrupted while waiting for memory", err)
		}
	}

	duration := dl.Duration
	if info, err := o.cfg.Encoder.Inspect(ctx, dl.Path); err == nil {
		duration = info.Duration
	} else if duration <= 0 {
		return "", nil, newTransformError("Could not read media duration", err)
	} else {
		job.log.Debug("ffprobe failed, using reported duration %v: %v", duration, err)
	}

	clip := media.NewClip(dl.Path, duration)
	var suffixes []string

	if job.Request.Segment {
		var trimmed bool
		if clip, trimmed = media.Trim(clip, o.cfg.SegmentLimit); trimmed {
			suffixes = append(suffixes, SuffixSegmented)
			job.log.Debug("Trimmed %v to %v", duration, clip.Duration)
		} else {
			job.log.Debug("Clip is %v, no trim needed", duration)
		}
	}

	if job.Request.Dub {
		if o.cfg.Dubber == nil {
			return "", nil, newTransformError("Dubbing unavailable", errors.New("no narrator configured"))
		}
		text := narration.Script(dl.Title, dl.Uploader)
		dubbed, err := o.cfg.Dubber.Dub(ctx, clip, text, job.WorkDir)
		if err != nil {
			return "", nil, newTransformError("Dubbing failed", err)
		}
		clip = dubbed
		suffixes = append(suffixes, SuffixDubbed)
	}

	if len(suffixes) == 0 {
		return dl.Path, nil, nil
	}

	out := filepath.Join(job.WorkDir, "rendered.mp4")
	if err := o.cfg.Encoder.Render(ctx, clip, out); err != nil {
		return "", nil, newTransformError("Encoding failed", err)
	}

	for _, s := range suffixes {
		metrics.TransformsApplied.WithLabelValues(transformLabel(s)).Inc()
	}
	return out, suffixes, nil
}

func transformLabel(suffix string) string {
	if suffix == SuffixSegmented {
		return "segment"
	}
	return "dub"
}
