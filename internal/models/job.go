package models

import (
	"errors"
	"fmt"
	"time"
)

type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// ErrJobTerminal is returned when a completed or failed job is mutated.
var ErrJobTerminal = errors.New("job is in a terminal state")

// IsTerminal reports whether no further transitions are possible.
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s JobStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// CanTransition enforces pending -> processing -> {completed, failed}.
// A pending job may fail directly when its run cannot start.
func CanTransition(from, to JobStatus) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing || to == StatusFailed
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	}
	return false
}

// Job is one document-analysis request and its lifecycle state.
type Job struct {
	ID             string       `json:"job_id"`
	Status         JobStatus    `json:"status"`
	Filename       string       `json:"filename"`
	FileKey        string       `json:"file_key"`
	FileSize       int64        `json:"file_size"`
	PageCount      int          `json:"page_count"`
	PagesProcessed int          `json:"pages_processed"`
	Results        []Extraction `json:"results,omitempty"`
	Error          string       `json:"error,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
	StartedAt      *time.Time   `json:"started_at,omitempty"`
	FinishedAt     *time.Time   `json:"finished_at,omitempty"`
}

// NewJob returns a pending job.
func NewJob(id, filename, fileKey string, size int64, now time.Time) *Job {
	return &Job{
		ID:        id,
		Status:    StatusPending,
		Filename:  filename,
		FileKey:   fileKey,
		FileSize:  size,
		Results:   []Extraction{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Transition moves the job to the given status.
func (j *Job) Transition(to JobStatus, now time.Time) error {
	if j.Status.IsTerminal() {
		return fmt.Errorf("%w: %s -> %s", ErrJobTerminal, j.Status, to)
	}
	if !CanTransition(j.Status, to) {
		return fmt.Errorf("invalid job transition %s -> %s", j.Status, to)
	}
	j.Status = to
	j.UpdatedAt = now
	switch {
	case to == StatusProcessing:
		j.StartedAt = &now
	case to.IsTerminal():
		j.FinishedAt = &now
	}
	return nil
}

// AppendResult adds the next page result in page order.
func (j *Job) AppendResult(result Extraction, now time.Time) error {
	if j.Status != StatusProcessing {
		if j.Status.IsTerminal() {
			return ErrJobTerminal
		}
		return fmt.Errorf("cannot append results to %s job", j.Status)
	}
	j.Results = append(j.Results, result)
	j.PagesProcessed = len(j.Results)
	j.UpdatedAt = now
	return nil
}

// Fail marks the job failed with the triggering message.
func (j *Job) Fail(msg string, now time.Time) error {
	if err := j.Transition(StatusFailed, now); err != nil {
		return err
	}
	j.Error = msg
	return nil
}

// Clone returns a copy that shares no mutable slices with j.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	if j.Results != nil {
		c.Results = make([]Extraction, len(j.Results))
		copy(c.Results, j.Results)
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}

// Summary is the list-jobs view of a job.
func (j *Job) Summary() JobSummary {
	return JobSummary{
		ID:        j.ID,
		Status:    j.Status,
		Filename:  j.Filename,
		CreatedAt: j.CreatedAt,
		PageCount: j.PageCount,
	}
}

type JobSummary struct {
	ID        string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"created_at"`
	PageCount int       `json:"page_count"`
}
