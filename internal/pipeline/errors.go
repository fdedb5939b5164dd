package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// stageError carries the stage a job failed in, a client-facing message and
// the underlying cause.
type stageError struct {
	stage   Stage
	message string
	err     error
}

func (e *stageError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("%s: %s", e.stage, e.message)
	}
	return fmt.Sprintf("%s: %s: %v", e.stage, e.message, e.err)
}

func (e *stageError) Unwrap() error { return e.err }

// Stage returns the stage the error occurred in.
func (e *stageError) Stage() Stage { return e.stage }

// Message returns the text shown to clients.
func (e *stageError) Message() string {
	if e.err == nil {
		return e.message
	}
	return fmt.Sprintf("%s: %v", e.message, e.err)
}

// ValidationError rejects a request before any work starts.
type ValidationError struct{ stageError }

// FetchError is terminal: nothing was downloaded.
type FetchError struct{ stageError }

// TransformError is recoverable: the job falls back to the fetched file.
type TransformError struct{ stageError }

// FinalizeError is terminal: the artifact could not be placed.
type FinalizeError struct{ stageError }

func newValidationError(msg string) *ValidationError {
	return &ValidationError{stageError{stage: StageValidating, message: msg}}
}

func newFetchError(msg string, err error) *FetchError {
	return &FetchError{stageError{stage: StageFetching, message: msg, err: err}}
}

func newTransformError(msg string, err error) *TransformError {
	return &TransformError{stageError{stage: StageTransforming, message: msg, err: err}}
}

func newFinalizeError(msg string, err error) *FinalizeError {
	return &FinalizeError{stageError{stage: StageFinalizing, message: msg, err: err}}
}

// staged is implemented by every pipeline error.
type staged interface {
	error
	Stage() Stage
	Message() string
}

// ClientMessage returns the message for err suitable for a JSON response.
func ClientMessage(err error) string {
	var s staged
	if errors.As(err, &s) {
		return s.Message()
	}
	return err.Error()
}

// IsClientError reports whether err was caused by the request itself.
func IsClientError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// errorStatus maps a terminal error to the status recorded for the job.
func errorStatus(err error) Status {
	var (
		v  *ValidationError
		f  *FetchError
		tr *TransformError
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return StatusCanceled
	case errors.As(err, &v):
		return StatusValidationError
	case errors.As(err, &f):
		return StatusFetchError
	case errors.As(err, &tr):
		return StatusTransformError
	default:
		return StatusFinalizeError
	}
}
