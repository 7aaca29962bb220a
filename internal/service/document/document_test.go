package document

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/document-analyzer/config"
	"github.com/feichai0017/document-analyzer/internal/agent"
	agentdoc "github.com/feichai0017/document-analyzer/internal/agent/document"
	"github.com/feichai0017/document-analyzer/internal/models"
	"github.com/feichai0017/document-analyzer/internal/testutil"
	"github.com/feichai0017/document-analyzer/internal/utils/validator"
	"github.com/feichai0017/document-analyzer/pkg/logger"
	"github.com/feichai0017/document-analyzer/pkg/queue"
	"github.com/feichai0017/document-analyzer/pkg/storage/local"
	"github.com/feichai0017/document-analyzer/pkg/store"
)

type env struct {
	svc        *DocumentService
	store      *store.MemoryStore
	uploadRoot string
}

type option func(*options)

type options struct {
	preparer    PagePreparer
	scheduler   queue.Scheduler
	concurrency int
}

func withPreparer(p PagePreparer) option { return func(o *options) { o.preparer = p } }
func withScheduler(s queue.Scheduler) option { return func(o *options) { o.scheduler = s } }
func withPageConcurrency(n int) option { return func(o *options) { o.concurrency = n } }

func newEnv(t *testing.T, extractor agentdoc.Extractor, opts ...option) *env {
	t.Helper()
	log := logger.NewTestLogger()

	o := &options{
		preparer:    agent.NewPreparer(log, agent.PrepareOptionsFromConfig(config.Default())),
		scheduler:   queue.NewInlineScheduler(log),
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(o)
	}

	root := filepath.Join(t.TempDir(), "uploads")
	blobs, err := local.NewLocalStorage(root, log)
	require.NoError(t, err)

	jobs := store.NewMemoryStore()
	v := validator.NewDocumentValidator(log, validator.DefaultConfig())
	svc := NewService(jobs, blobs, o.preparer, extractor, o.scheduler, v, log, &ServiceConfig{
		PageConcurrency: o.concurrency,
		JobTimeout:      time.Minute,
	})
	return &env{svc: svc, store: jobs, uploadRoot: root}
}

// echoExtractor returns an extraction naming the page.
func echoExtractor() agentdoc.ExtractorFunc {
	return func(_ context.Context, page models.PageImage) (models.Extraction, error) {
		return models.Extraction{
			"content": map[string]any{"full_text": fmt.Sprintf("page %d", page.Number)},
		}, nil
	}
}

// fakePreparer yields n blank pages regardless of the upload.
type fakePreparer struct {
	pages int
	panic bool
}

func (f fakePreparer) Prepare(context.Context, []byte, string) ([]models.PageImage, error) {
	if f.panic {
		panic("renderer crashed")
	}
	pages := make([]models.PageImage, f.pages)
	for i := range pages {
		pages[i] = models.PageImage{Number: i + 1, MimeType: "image/jpeg", Source: fmt.Sprintf("page_%03d.jpg", i+1)}
	}
	return pages, nil
}

// heldScheduler records work without running it.
type heldScheduler struct {
	mu   sync.Mutex
	work map[string]queue.Work
	err  error
}

func (h *heldScheduler) Submit(_ context.Context, jobID string, work queue.Work) error {
	if h.err != nil {
		return h.err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.work == nil {
		h.work = map[string]queue.Work{}
	}
	h.work[jobID] = work
	return nil
}

func (h *heldScheduler) Shutdown(context.Context) error { return nil }

func pageNumbers(results []models.Extraction) []int {
	out := make([]int, len(results))
	for i, r := range results {
		out[i] = r.PageNumber()
	}
	return out
}

func TestTwoPagePDFCompletesInOrder(t *testing.T) {
	e := newEnv(t, echoExtractor())
	ctx := context.Background()

	job, err := e.svc.Submit(ctx, Upload{Filename: "report.pdf", Data: testutil.BuildPDF(2)})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, job.Status)

	status, err := e.svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, status.Status)
	assert.Equal(t, 2, status.PageCount)
	assert.Equal(t, 2, status.PagesProcessed)
	assert.NotNil(t, status.StartedAt)
	assert.NotNil(t, status.FinishedAt)

	done, err := e.svc.GetResults(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, done.Results, 2)
	assert.Equal(t, []int{1, 2}, pageNumbers(done.Results))

	meta := done.Results[1].Metadata()
	assert.Equal(t, 2, meta["total_pages"])
	assert.Equal(t, "report.pdf", meta["source_file"])
	assert.Equal(t, "page 2", done.Results[1]["content"].(map[string]any)["full_text"])
}

func TestConcurrentPagesKeepPageOrder(t *testing.T) {
	// Later pages finish first.
	extractor := agentdoc.ExtractorFunc(func(_ context.Context, page models.PageImage) (models.Extraction, error) {
		time.Sleep(time.Duration(4-page.Number) * 20 * time.Millisecond)
		return models.Extraction{}, nil
	})
	e := newEnv(t, extractor, withPreparer(fakePreparer{pages: 3}), withPageConcurrency(3))
	ctx := context.Background()

	job, err := e.svc.Submit(ctx, Upload{Filename: "three.pdf", Data: testutil.BuildPDF(3)})
	require.NoError(t, err)

	done, err := e.svc.GetResults(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, pageNumbers(done.Results))
}

func TestFailFastOnPageError(t *testing.T) {
	var calls []int
	var mu sync.Mutex
	extractor := agentdoc.ExtractorFunc(func(_ context.Context, page models.PageImage) (models.Extraction, error) {
		mu.Lock()
		calls = append(calls, page.Number)
		mu.Unlock()
		if page.Number == 2 {
			return nil, errors.New("model unavailable")
		}
		return models.Extraction{}, nil
	})
	e := newEnv(t, extractor, withPreparer(fakePreparer{pages: 3}))
	ctx := context.Background()

	job, err := e.svc.Submit(ctx, Upload{Filename: "three.pdf", Data: testutil.BuildPDF(3)})
	require.NoError(t, err)

	failed, err := e.svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, failed.Status)
	assert.Equal(t, []int{1}, pageNumbers(failed.Results))
	assert.Contains(t, failed.Error, "page 2")
	assert.Contains(t, failed.Error, "model unavailable")
	assert.Equal(t, []int{1, 2}, calls, "page 3 is never attempted")

	_, err = e.svc.GetResults(ctx, job.ID)
	var notReady *models.JobNotReadyError
	require.True(t, errors.As(err, &notReady))
	assert.Equal(t, models.StatusFailed, notReady.Status)
	assert.Contains(t, notReady.Reason, "page 2")
}

func TestFailFastWithConcurrentPages(t *testing.T) {
	extractor := agentdoc.ExtractorFunc(func(_ context.Context, page models.PageImage) (models.Extraction, error) {
		switch page.Number {
		case 1:
			time.Sleep(30 * time.Millisecond)
		case 2:
			return nil, &models.ExtractionError{Page: 2, Err: errors.New("bad gateway")}
		}
		return models.Extraction{}, nil
	})
	e := newEnv(t, extractor, withPreparer(fakePreparer{pages: 3}), withPageConcurrency(3))
	ctx := context.Background()

	job, err := e.svc.Submit(ctx, Upload{Filename: "three.pdf", Data: testutil.BuildPDF(3)})
	require.NoError(t, err)

	failed, err := e.svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, failed.Status)
	assert.Contains(t, failed.Error, "page 2")
	assert.LessOrEqual(t, len(failed.Results), 1)
	if len(failed.Results) == 1 {
		assert.Equal(t, 1, failed.Results[0].PageNumber())
	}
}

func TestSingleImageReachesTerminalState(t *testing.T) {
	ctx := context.Background()

	t.Run("completed", func(t *testing.T) {
		e := newEnv(t, echoExtractor())
		job, err := e.svc.Submit(ctx, Upload{Filename: "scan.png", Data: testutil.PNG(800, 400)})
		require.NoError(t, err)

		got, err := e.svc.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, got.Status)
		assert.Equal(t, 1, got.PageCount)
	})

	t.Run("failed", func(t *testing.T) {
		e := newEnv(t, agentdoc.ExtractorFunc(func(context.Context, models.PageImage) (models.Extraction, error) {
			return nil, errors.New("timeout")
		}))
		job, err := e.svc.Submit(ctx, Upload{Filename: "scan.jpg", Data: testutil.JPEG(300, 300)})
		require.NoError(t, err)

		got, err := e.svc.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusFailed, got.Status)
		assert.Equal(t, "page 1: extraction failed: timeout", got.Error)
	})
}

func TestCorruptPDFFailsJob(t *testing.T) {
	e := newEnv(t, echoExtractor())
	ctx := context.Background()

	data := append([]byte("%PDF-1.4\n"), []byte("this is not really a pdf")...)
	job, err := e.svc.Submit(ctx, Upload{Filename: "broken.pdf", Data: data})
	require.NoError(t, err)

	got, err := e.svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Contains(t, got.Error, "conversion failed")
}

func TestDisallowedExtensionRejectedBeforeJob(t *testing.T) {
	e := newEnv(t, echoExtractor())
	ctx := context.Background()

	job, err := e.svc.Submit(ctx, Upload{Filename: "malware.exe", Data: []byte("MZ\x90\x00binary")})
	assert.Nil(t, job)

	var verrs models.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, models.CodeInvalidFileType, verrs[0].Code)

	jobs, err := e.svc.ListJobs(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	entries, err := os.ReadDir(e.uploadRoot)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing is stored")
}

func TestDeleteStopsInFlightRun(t *testing.T) {
	started := make(chan struct{})
	var calls atomic.Int32
	extractor := agentdoc.ExtractorFunc(func(ctx context.Context, page models.PageImage) (models.Extraction, error) {
		calls.Add(1)
		if page.Number == 1 {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return models.Extraction{}, nil
	})
	pool := queue.NewPoolScheduler(1, 4, logger.NewTestLogger())
	e := newEnv(t, extractor, withPreparer(fakePreparer{pages: 3}), withScheduler(pool))
	ctx := context.Background()

	job, err := e.svc.Submit(ctx, Upload{Filename: "three.pdf", Data: testutil.BuildPDF(3)})
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not start")
	}

	require.NoError(t, e.svc.DeleteJob(ctx, job.ID))
	require.NoError(t, pool.Shutdown(ctx))

	var nf *models.NotFoundError
	_, err = e.svc.GetJob(ctx, job.ID)
	assert.True(t, errors.As(err, &nf))
	_, err = e.svc.GetResults(ctx, job.ID)
	assert.True(t, errors.As(err, &nf))
	assert.True(t, errors.As(e.svc.DeleteJob(ctx, job.ID), &nf))

	assert.EqualValues(t, 1, calls.Load(), "no page runs after cancellation")
	_, err = os.Stat(filepath.Join(e.uploadRoot, "uploads", job.ID))
	assert.True(t, os.IsNotExist(err), "upload removed")
}

func TestDeleteBeforeRunStarts(t *testing.T) {
	held := &heldScheduler{}
	var calls atomic.Int32
	extractor := agentdoc.ExtractorFunc(func(context.Context, models.PageImage) (models.Extraction, error) {
		calls.Add(1)
		return models.Extraction{}, nil
	})
	e := newEnv(t, extractor, withPreparer(fakePreparer{pages: 1}), withScheduler(held))
	ctx := context.Background()

	job, err := e.svc.Submit(ctx, Upload{Filename: "a.png", Data: testutil.PNG(10, 10)})
	require.NoError(t, err)
	require.NoError(t, e.svc.DeleteJob(ctx, job.ID))

	require.NoError(t, held.work[job.ID](ctx))
	assert.Zero(t, calls.Load())

	_, err = e.store.Get(ctx, job.ID)
	var nf *models.NotFoundError
	assert.True(t, errors.As(err, &nf), "a deleted job is not resurrected")
}

func TestConcurrentStatusPollsSeeConsistentState(t *testing.T) {
	release := make(chan struct{})
	blocked := make(chan struct{})
	extractor := agentdoc.ExtractorFunc(func(_ context.Context, page models.PageImage) (models.Extraction, error) {
		if page.Number == 2 {
			close(blocked)
			<-release
		}
		return models.Extraction{"content": map[string]any{"full_text": "ok"}}, nil
	})
	pool := queue.NewPoolScheduler(1, 4, logger.NewTestLogger())
	e := newEnv(t, extractor, withPreparer(fakePreparer{pages: 2}), withScheduler(pool))
	ctx := context.Background()

	job, err := e.svc.Submit(ctx, Upload{Filename: "two.pdf", Data: testutil.BuildPDF(2)})
	require.NoError(t, err)
	<-blocked

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				got, err := e.svc.GetJob(ctx, job.ID)
				if !assert.NoError(t, err) {
					return
				}
				assert.Equal(t, models.StatusProcessing, got.Status)
				assert.Equal(t, got.PagesProcessed, len(got.Results))
				assert.Equal(t, []int{1}, pageNumbers(got.Results))

				_, err = e.svc.GetResults(ctx, job.ID)
				var notReady *models.JobNotReadyError
				assert.True(t, errors.As(err, &notReady))
			}
		}()
	}
	wg.Wait()

	close(release)
	require.NoError(t, pool.Shutdown(ctx))

	done, err := e.svc.GetResults(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, pageNumbers(done.Results))
}

func TestSubmitSchedulingFailure(t *testing.T) {
	e := newEnv(t, echoExtractor(), withScheduler(&heldScheduler{err: queue.ErrQueueFull}))
	ctx := context.Background()

	job, err := e.svc.Submit(ctx, Upload{Filename: "a.png", Data: testutil.PNG(10, 10)})
	assert.Nil(t, job)
	assert.ErrorIs(t, err, queue.ErrQueueFull)

	jobs, err := e.svc.ListJobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, models.StatusFailed, jobs[0].Status)
}

func TestRunJobSkipsJobsThatAreNotPending(t *testing.T) {
	var calls atomic.Int32
	extractor := agentdoc.ExtractorFunc(func(context.Context, models.PageImage) (models.Extraction, error) {
		calls.Add(1)
		return models.Extraction{}, nil
	})
	e := newEnv(t, extractor, withPreparer(fakePreparer{pages: 1}))
	ctx := context.Background()

	job, err := e.svc.Submit(ctx, Upload{Filename: "a.png", Data: testutil.PNG(10, 10)})
	require.NoError(t, err)
	require.EqualValues(t, 1, calls.Load())

	require.NoError(t, e.svc.RunJob(ctx, job.ID))
	assert.EqualValues(t, 1, calls.Load())
	assert.NoError(t, e.svc.RunJob(ctx, "unknown"))
}

func TestPanicsBecomeFailedJobs(t *testing.T) {
	ctx := context.Background()

	t.Run("extractor", func(t *testing.T) {
		e := newEnv(t, agentdoc.ExtractorFunc(func(context.Context, models.PageImage) (models.Extraction, error) {
			panic("nil map")
		}), withPreparer(fakePreparer{pages: 2}), withPageConcurrency(2))

		job, err := e.svc.Submit(ctx, Upload{Filename: "a.png", Data: testutil.PNG(10, 10)})
		require.NoError(t, err)
		got, err := e.svc.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusFailed, got.Status)
		assert.Contains(t, got.Error, "panic: nil map")
	})

	t.Run("preparer", func(t *testing.T) {
		e := newEnv(t, echoExtractor(), withPreparer(fakePreparer{panic: true}))

		job, err := e.svc.Submit(ctx, Upload{Filename: "a.png", Data: testutil.PNG(10, 10)})
		require.NoError(t, err)
		got, err := e.svc.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusFailed, got.Status)
		assert.Equal(t, "internal error: renderer crashed", got.Error)
	})
}

func TestListJobsNewestFirst(t *testing.T) {
	e := newEnv(t, echoExtractor(), withPreparer(fakePreparer{pages: 1}))
	ctx := context.Background()

	base := time.Now()
	var ids []string
	for i := 0; i < 3; i++ {
		e.svc.now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		job, err := e.svc.Submit(ctx, Upload{Filename: fmt.Sprintf("f%d.png", i), Data: testutil.PNG(10, 10)})
		require.NoError(t, err)
		ids = append(ids, job.ID)
	}

	jobs, err := e.svc.ListJobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, ids[2], jobs[0].ID)
	assert.Equal(t, ids[0], jobs[2].ID)
	assert.Equal(t, "f2.png", jobs[0].Filename)
	assert.Equal(t, 1, jobs[0].PageCount)
}

func TestCleanupJobsRemovesOldTerminalJobs(t *testing.T) {
	held := &heldScheduler{}
	e := newEnv(t, echoExtractor(), withPreparer(fakePreparer{pages: 1}), withScheduler(held))
	ctx := context.Background()

	finished, err := e.svc.Submit(ctx, Upload{Filename: "done.png", Data: testutil.PNG(10, 10)})
	require.NoError(t, err)
	require.NoError(t, held.work[finished.ID](ctx))

	waiting, err := e.svc.Submit(ctx, Upload{Filename: "waiting.png", Data: testutil.PNG(10, 10)})
	require.NoError(t, err)

	removed, err := e.svc.CleanupJobs(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed, "recent jobs are kept")

	e.svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	removed, err = e.svc.CleanupJobs(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	var nf *models.NotFoundError
	_, err = e.svc.GetJob(ctx, finished.ID)
	assert.True(t, errors.As(err, &nf))
	_, err = e.svc.GetJob(ctx, waiting.ID)
	assert.NoError(t, err, "pending jobs are never swept")
}
