// Package queue hands job runs to an executor.
package queue

import (
	"context"
	"errors"
)

const TaskTypeDocumentAnalyze = "document:analyze"

var (
	// ErrQueueFull is returned when the pool backlog is at capacity.
	ErrQueueFull = errors.New("job queue is full")
	// ErrSchedulerClosed is returned after Shutdown.
	ErrSchedulerClosed = errors.New("scheduler is shut down")
)

// Work runs one job. ctx is cancelled when the scheduler is shut down.
type Work func(ctx context.Context) error

// Scheduler decides where and when a job's run executes.
type Scheduler interface {
	// Submit must not block on the work itself, except for the inline
	// scheduler which runs it before returning.
	Submit(ctx context.Context, jobID string, work Work) error
	Shutdown(ctx context.Context) error
}

// Canceller is implemented by schedulers that can drop queued work.
type Canceller interface {
	Cancel(ctx context.Context, jobID string) error
}

// TaskPayload is the serialized form of a job submission.
type TaskPayload struct {
	JobID string `json:"job_id"`
}
