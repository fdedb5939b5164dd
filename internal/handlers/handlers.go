package handlers

import (
	"context"
	"net/http"
	"time"

	"media-toolkit/internal/database"
	"media-toolkit/internal/delivery"
	"media-toolkit/internal/fetcher"
	"media-toolkit/internal/pipeline"
	"media-toolkit/internal/streaming"
)

// Runner executes download jobs.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Inspector reads source metadata without downloading.
type Inspector interface {
	Inspect(ctx context.Context, url string) (*fetcher.Info, error)
}

// JobStore reads the job ledger.
type JobStore interface {
	GetJob(ctx context.Context, id string) (*pipeline.Record, error)
	ListJobs(ctx context.Context, opts database.ListOptions) ([]pipeline.Record, error)
	HasArtifact(ctx context.Context, filename string) (bool, error)
}

// Config wires Handlers.
type Config struct {
	Runner    Runner
	Inspector Inspector
	Jobs      JobStore
	Delivery  delivery.Strategy
	// FinalDir is where /api/download_file looks for files. Only names
	// recorded in Jobs are served.
	FinalDir string
	Stream   streaming.Config
	// Feed serves /api/jobs/feed; nil disables it.
	Feed http.Handler
}

type Handlers struct {
	runner    Runner
	inspector Inspector
	jobs      JobStore
	delivery  delivery.Strategy
	finalDir  string
	files     *delivery.Stream
	feed      http.Handler
	startTime time.Time
}

func New(config Config) *Handlers {
	return &Handlers{
		runner:    config.Runner,
		inspector: config.Inspector,
		jobs:      config.Jobs,
		delivery:  config.Delivery,
		finalDir:  config.FinalDir,
		files:     delivery.NewStream(config.Stream),
		feed:      config.Feed,
		startTime: time.Now(),
	}
}
