package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrValidation   = errors.New("invalid request")
	ErrTransport    = errors.New("transport failure")
	ErrJobFailed    = errors.New("job failed")
	ErrTimedOut     = errors.New("timed out waiting for job")
	ErrRetrieval    = errors.New("artifact retrieval failed")
	ErrHandleClosed = errors.New("job handle closed")
	ErrNotFound     = errors.New("not found")
)

// ValidationError reports a malformed request rejected before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Transport operations.
const (
	OpCreate = "create"
	OpPoll   = "poll"
	OpFetch  = "fetch"
)

// TransportError reports a connectivity or protocol failure against the
// remote service.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// JobFailedError carries the service-provided failure message verbatim.
type JobFailedError struct {
	Handle  JobHandle
	Message string
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("job %s failed: %s", e.Handle, e.Message)
}

func (e *JobFailedError) Is(target error) bool { return target == ErrJobFailed }

// RetrievalError reports a fetch failure after the job completed.
type RetrievalError struct {
	Handle JobHandle
	Err    error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieve artifact for job %s: %v", e.Handle, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

func (e *RetrievalError) Is(target error) bool { return target == ErrRetrieval }

// ClassifyError names the failure kind of err for logs, metrics and the run
// ledger. Retrieval is checked before transport since a RetrievalError wraps
// the underlying TransportError.
func ClassifyError(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrRetrieval):
		return "retrieval"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrJobFailed):
		return "job_failed"
	case errors.Is(err, ErrTimedOut):
		return "timed_out"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "unknown"
	}
}
