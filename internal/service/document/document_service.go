package document

import (
	"context"
	"time"

	"github.com/feichai0017/document-analyzer/internal/models"
)

// Upload is one document as received from a client.
type Upload struct {
	Filename string
	Data     []byte
}

type DocumentAnalyzer interface {
	// Submit validates and stores the upload, records a pending job and
	// schedules its run. It returns before the run finishes, except with an
	// inline scheduler.
	Submit(ctx context.Context, upload Upload) (*models.Job, error)
	// RunJob drives one pending job to completed or failed.
	RunJob(ctx context.Context, jobID string) error
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	// GetResults returns the job only once it has completed.
	GetResults(ctx context.Context, jobID string) (*models.Job, error)
	ListJobs(ctx context.Context) ([]models.JobSummary, error)
	DeleteJob(ctx context.Context, jobID string) error
	// CleanupJobs deletes terminal jobs last updated more than olderThan ago.
	CleanupJobs(ctx context.Context, olderThan time.Duration) (int, error)
	ExtractorName() string
}
