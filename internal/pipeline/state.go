package pipeline

import (
	"fmt"
	"time"

	"media-toolkit/internal/metrics"
)

// Stage is a step of the job state machine.
type Stage string

const (
	StageValidating   Stage = "validating"
	StageFetching     Stage = "fetching"
	StageTransforming Stage = "transforming"
	StageFinalizing   Stage = "finalizing"
	StageDelivering   Stage = "delivering"
	StageCleanup      Stage = "cleanup"
)

// Status is the outcome recorded for a job.
type Status string

const (
	StatusSuccess         Status = "success"
	StatusFallback        Status = "fallback"
	StatusFetchError      Status = "fetch_error"
	StatusTransformError  Status = "transform_error"
	StatusFinalizeError   Status = "finalize_error"
	StatusValidationError Status = "validation_error"

	// StatusCanceled is recorded when the client went away mid-job.
	StatusCanceled Status = "canceled"
)

// isValidTransition enforces the allowed job state machine edges. Cleanup is
// reachable from every stage so resources are released on any exit path.
func isValidTransition(from, to Stage) bool {
	if to == StageCleanup {
		return from != StageCleanup
	}
	switch from {
	case "":
		return to == StageFetching
	case StageFetching:
		return to == StageTransforming || to == StageFinalizing
	case StageTransforming:
		return to == StageFinalizing
	case StageFinalizing:
		return to == StageDelivering
	default:
		return false
	}
}

// Enter moves the job to stage, recording how long the previous stage took.
func (j *Job) Enter(stage Stage) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !isValidTransition(j.stage, stage) {
		return fmt.Errorf("invalid transition: %s -> %s", j.stage, stage)
	}

	now := time.Now()
	if j.stage != "" {
		metrics.StageDuration.WithLabelValues(string(j.stage)).Observe(now.Sub(j.stageStart).Seconds())
	}
	j.log.Debug("%s -> %s", stageName(j.stage), stage)
	j.stage = stage
	j.stageStart = now
	return nil
}

// Stage returns the current stage.
func (j *Job) Stage() Stage {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.stage
}

func stageName(s Stage) string {
	if s == "" {
		return "accepted"
	}
	return string(s)
}
