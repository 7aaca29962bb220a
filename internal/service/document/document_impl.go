package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/feichai0017/document-analyzer/internal/agent/document"
	"github.com/feichai0017/document-analyzer/internal/models"
	"github.com/feichai0017/document-analyzer/internal/utils/validator"
	"github.com/feichai0017/document-analyzer/pkg/logger"
	"github.com/feichai0017/document-analyzer/pkg/queue"
	"github.com/feichai0017/document-analyzer/pkg/storage"
	"github.com/feichai0017/document-analyzer/pkg/store"
)

var (
	errNotPending = errors.New("job is not pending")
	errJobDeleted = errors.New("job was deleted")
)

// PagePreparer turns upload bytes into ordered page images.
type PagePreparer interface {
	Prepare(ctx context.Context, data []byte, ext string) ([]models.PageImage, error)
}

type ServiceConfig struct {
	// PageConcurrency bounds concurrent extractor calls within one job.
	PageConcurrency int
	// JobTimeout bounds one run; 0 disables it.
	JobTimeout time.Duration
}

type DocumentService struct {
	store     store.Store
	storage   storage.Storage
	preparer  PagePreparer
	extractor document.Extractor
	scheduler queue.Scheduler
	validator *validator.DocumentValidator
	logger    logger.Logger
	config    *ServiceConfig
	now       func() time.Time

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

func NewService(
	jobs store.Store,
	blobs storage.Storage,
	preparer PagePreparer,
	extractor document.Extractor,
	scheduler queue.Scheduler,
	v *validator.DocumentValidator,
	log logger.Logger,
	cfg *ServiceConfig,
) *DocumentService {
	if cfg == nil {
		cfg = &ServiceConfig{
			PageConcurrency: 1,
			JobTimeout:      30 * time.Minute,
		}
	}
	if cfg.PageConcurrency < 1 {
		cfg.PageConcurrency = 1
	}
	return &DocumentService{
		store:     jobs,
		storage:   blobs,
		preparer:  preparer,
		extractor: extractor,
		scheduler: scheduler,
		validator: v,
		logger:    log.Named("documents"),
		config:    cfg,
		now:       time.Now,
		running:   make(map[string]context.CancelFunc),
	}
}

func (s *DocumentService) ExtractorName() string {
	return s.extractor.Name()
}

func (s *DocumentService) Submit(ctx context.Context, upload Upload) (*models.Job, error) {
	info, err := s.validator.Validate(upload.Filename, upload.Data)
	if err != nil {
		s.logger.Info("Upload rejected",
			logger.String("filename", upload.Filename),
			logger.Error(err),
		)
		return nil, err
	}

	jobID := uuid.NewString()
	key, err := s.storage.Store(ctx, bytes.NewReader(upload.Data), storage.UploadKey(jobID, info.Filename))
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	job := models.NewJob(jobID, info.Filename, key, info.Size, s.now().UTC())
	if err := s.store.Create(ctx, job); err != nil {
		s.deleteUpload(ctx, jobID, key)
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	s.logger.Info("Job created",
		logger.JobID(jobID),
		logger.String("filename", info.Filename),
		logger.Int64("size", info.Size),
		logger.String("hash", info.Hash),
	)

	if err := s.scheduler.Submit(ctx, jobID, func(ctx context.Context) error {
		return s.RunJob(ctx, jobID)
	}); err != nil {
		s.logger.Error("Failed to schedule job", logger.JobID(jobID), logger.Error(err))
		s.fail(context.WithoutCancel(ctx), jobID, fmt.Errorf("failed to schedule job: %w", err))
		return nil, fmt.Errorf("failed to schedule job: %w", err)
	}

	return job, nil
}

// RunJob processes a pending job. Failures are recorded on the job; the
// returned error only reports problems recording the outcome.
func (s *DocumentService) RunJob(ctx context.Context, jobID string) (err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if s.config.JobTimeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, s.config.JobTimeout)
		defer cancelTimeout()
	}
	s.track(jobID, cancel)
	defer s.untrack(jobID)

	// Outcome writes must survive cancellation of the run itself.
	record := context.WithoutCancel(ctx)

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Job run panicked",
				logger.JobID(jobID),
				logger.Any("panic", r),
				logger.Stack(),
			)
			err = s.fail(record, jobID, fmt.Errorf("internal error: %v", r))
		}
	}()

	job, err := s.store.Update(ctx, jobID, func(j *models.Job) error {
		if j.Status != models.StatusPending {
			return errNotPending
		}
		return j.Transition(models.StatusProcessing, s.now().UTC())
	})
	var nf *models.NotFoundError
	switch {
	case errors.Is(err, errNotPending):
		s.logger.Info("Skipping job that is not pending", logger.JobID(jobID))
		return nil
	case errors.As(err, &nf):
		s.logger.Info("Skipping deleted job", logger.JobID(jobID))
		return nil
	case err != nil:
		return fmt.Errorf("failed to start job %s: %w", jobID, err)
	}

	start := s.now()
	s.logger.Info("Job started", logger.JobID(jobID), logger.String("filename", job.Filename))

	if err := s.process(ctx, job); err != nil {
		if errors.Is(err, errJobDeleted) {
			s.logger.Info("Job deleted during run", logger.JobID(jobID))
			return nil
		}
		return s.fail(record, jobID, err)
	}

	_, err = s.store.Update(record, jobID, func(j *models.Job) error {
		return j.Transition(models.StatusCompleted, s.now().UTC())
	})
	if errors.As(err, &nf) {
		s.logger.Info("Job deleted during run", logger.JobID(jobID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to complete job %s: %w", jobID, err)
	}

	s.logger.Info("Job completed",
		logger.JobID(jobID),
		logger.Duration("elapsed", s.now().Sub(start)),
	)
	return nil
}

func (s *DocumentService) process(ctx context.Context, job *models.Job) error {
	data, err := s.loadUpload(ctx, job.FileKey)
	if err != nil {
		return err
	}

	pages, err := s.preparer.Prepare(ctx, data, filepath.Ext(job.Filename))
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		return &models.ConversionError{Err: errors.New("document has no pages")}
	}

	if _, err := s.update(ctx, job.ID, func(j *models.Job) error {
		j.PageCount = len(pages)
		j.UpdatedAt = s.now().UTC()
		return nil
	}); err != nil {
		return err
	}
	s.logger.Info("Pages prepared", logger.JobID(job.ID), logger.Int("pages", len(pages)))

	if s.config.PageConcurrency > 1 && len(pages) > 1 {
		return s.extractConcurrent(ctx, job, pages)
	}
	return s.extractSequential(ctx, job, pages)
}

func (s *DocumentService) loadUpload(ctx context.Context, key string) ([]byte, error) {
	rc, err := s.storage.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load upload: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to load upload: %w", err)
	}
	return data, nil
}

func (s *DocumentService) extractSequential(ctx context.Context, job *models.Job, pages []models.PageImage) error {
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		result, err := s.extractPage(ctx, job, page, len(pages))
		if err != nil {
			return err
		}
		if err := s.appendResults(ctx, job.ID, result); err != nil {
			return err
		}
	}
	return nil
}

// extractConcurrent runs pages in parallel and flushes results in page
// order. A failed page is never flushed, so the job keeps only pages before
// the lowest failing one.
func (s *DocumentService) extractConcurrent(ctx context.Context, job *models.Job, pages []models.PageImage) error {
	var (
		mu      sync.Mutex
		results = make([]models.Extraction, len(pages))
		done    = make([]bool, len(pages))
		flushed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.PageConcurrency)

	for i, page := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, err := s.extractPage(gctx, job, page, len(pages))
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			results[i], done[i] = result, true

			var batch []models.Extraction
			for flushed < len(pages) && done[flushed] {
				batch = append(batch, results[flushed])
				results[flushed] = nil
				flushed++
			}
			if len(batch) == 0 {
				return nil
			}
			return s.appendResults(gctx, job.ID, batch...)
		})
	}
	return g.Wait()
}

func (s *DocumentService) extractPage(ctx context.Context, job *models.Job, page models.PageImage, total int) (result models.Extraction, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Extractor panicked",
				logger.JobID(job.ID),
				logger.Int("page", page.Number),
				logger.Any("panic", r),
			)
			result, err = nil, &models.ExtractionError{Page: page.Number, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	result, err = s.extractor.Extract(ctx, page)
	if err != nil {
		var extErr *models.ExtractionError
		if !errors.As(err, &extErr) {
			err = &models.ExtractionError{Page: page.Number, Err: err}
		}
		return nil, err
	}
	if result == nil {
		result = models.Extraction{}
	}

	meta := result.Metadata()
	meta["page_number"] = page.Number
	meta["total_pages"] = total
	meta["source_file"] = job.Filename
	meta["page_image"] = page.Source

	s.logger.Debug("Page extracted",
		logger.JobID(job.ID),
		logger.Int("page", page.Number),
		logger.Int("total", total),
	)
	return result, nil
}

func (s *DocumentService) appendResults(ctx context.Context, jobID string, results ...models.Extraction) error {
	_, err := s.update(ctx, jobID, func(j *models.Job) error {
		now := s.now().UTC()
		for _, r := range results {
			if err := j.AppendResult(r, now); err != nil {
				return err
			}
		}
		return nil
	})
	return err
}

// update maps a vanished record to errJobDeleted so runs stop quietly.
func (s *DocumentService) update(ctx context.Context, jobID string, fn func(*models.Job) error) (*models.Job, error) {
	job, err := s.store.Update(ctx, jobID, fn)
	var nf *models.NotFoundError
	if errors.As(err, &nf) {
		return nil, errJobDeleted
	}
	return job, err
}

// fail records cause on the job. A job that is already terminal or gone is
// left untouched.
func (s *DocumentService) fail(ctx context.Context, jobID string, cause error) error {
	s.logger.Error("Job failed", logger.JobID(jobID), logger.Error(cause))

	_, err := s.store.Update(ctx, jobID, func(j *models.Job) error {
		return j.Fail(cause.Error(), s.now().UTC())
	})
	var nf *models.NotFoundError
	switch {
	case err == nil, errors.As(err, &nf), errors.Is(err, models.ErrJobTerminal):
		return nil
	}
	return fmt.Errorf("failed to record failure of job %s: %w", jobID, err)
}

func (s *DocumentService) track(jobID string, cancel context.CancelFunc) {
	s.mu.Lock()
	s.running[jobID] = cancel
	s.mu.Unlock()
}

func (s *DocumentService) untrack(jobID string) {
	s.mu.Lock()
	delete(s.running, jobID)
	s.mu.Unlock()
}

func (s *DocumentService) cancelRun(jobID string) bool {
	s.mu.Lock()
	cancel, ok := s.running[jobID]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

func (s *DocumentService) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	return s.store.Get(ctx, jobID)
}

func (s *DocumentService) GetResults(ctx context.Context, jobID string) (*models.Job, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.StatusCompleted {
		return nil, &models.JobNotReadyError{JobID: job.ID, Status: job.Status, Reason: job.Error}
	}
	return job, nil
}

func (s *DocumentService) ListJobs(ctx context.Context) ([]models.JobSummary, error) {
	jobs, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]models.JobSummary, len(jobs))
	for i, j := range jobs {
		summaries[i] = j.Summary()
	}
	return summaries, nil
}

// DeleteJob removes the record and the upload. A run in progress in this
// process is cancelled; elsewhere it stops at its next store write.
func (s *DocumentService) DeleteJob(ctx context.Context, jobID string) error {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return err
	}

	if s.cancelRun(jobID) {
		s.logger.Info("Cancelled running job", logger.JobID(jobID))
	}
	if c, ok := s.scheduler.(queue.Canceller); ok {
		if err := c.Cancel(ctx, jobID); err != nil {
			s.logger.Warn("Failed to cancel queued job", logger.JobID(jobID), logger.Error(err))
		}
	}

	if err := s.store.Delete(ctx, jobID); err != nil {
		return err
	}
	s.deleteUpload(ctx, jobID, job.FileKey)

	s.logger.Info("Job deleted", logger.JobID(jobID))
	return nil
}

func (s *DocumentService) deleteUpload(ctx context.Context, jobID, key string) {
	if key == "" {
		return
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		s.logger.Warn("Failed to delete upload",
			logger.JobID(jobID),
			logger.String("key", key),
			logger.Error(err),
		)
	}
}

func (s *DocumentService) CleanupJobs(ctx context.Context, olderThan time.Duration) (int, error) {
	threshold := s.now().Add(-olderThan)

	jobs, err := s.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list jobs: %w", err)
	}

	removed := 0
	for _, job := range jobs {
		if !job.Status.IsTerminal() || !job.UpdatedAt.Before(threshold) {
			continue
		}
		var nf *models.NotFoundError
		if err := s.DeleteJob(ctx, job.ID); err != nil && !errors.As(err, &nf) {
			s.logger.Error("Failed to delete expired job", logger.JobID(job.ID), logger.Error(err))
			continue
		}
		removed++
	}

	// Uploads left behind by jobs that never reached the store.
	orphanThreshold := threshold.Add(-s.config.JobTimeout)
	if err := s.storage.CleanupBefore(ctx, orphanThreshold); err != nil {
		s.logger.Warn("Failed to clean up stale uploads", logger.Error(err))
	}

	s.logger.Info("Completed jobs cleanup",
		logger.Time("threshold", threshold),
		logger.Int("removed", removed),
	)
	return removed, nil
}
