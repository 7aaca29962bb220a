// Package store persists job records.
package store

import (
	"context"
	"errors"

	"github.com/feichai0017/document-analyzer/internal/models"
)

// ErrJobExists is returned by Create for a duplicate id.
var ErrJobExists = errors.New("job already exists")

// Store holds job records. Implementations return copies from Get and List
// so callers never share state with the store.
type Store interface {
	Create(ctx context.Context, job *models.Job) error
	Get(ctx context.Context, id string) (*models.Job, error)
	// Update applies fn to the current record and saves the result
	// atomically. If fn returns an error nothing is written. A missing id
	// yields *models.NotFoundError.
	Update(ctx context.Context, id string, fn func(*models.Job) error) (*models.Job, error)
	Delete(ctx context.Context, id string) error
	// List returns every job, newest first.
	List(ctx context.Context) ([]*models.Job, error)
	Close() error
}
