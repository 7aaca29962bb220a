package queue

import (
	"context"
	"sync"

	"github.com/feichai0017/document-analyzer/pkg/logger"
)

type task struct {
	jobID string
	work  Work
}

// PoolScheduler runs work on a fixed set of goroutines fed by a bounded
// channel. Submit never blocks.
type PoolScheduler struct {
	tasks  chan task
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	logger logger.Logger

	mu     sync.RWMutex
	closed bool
}

func NewPoolScheduler(workers, size int, log logger.Logger) *PoolScheduler {
	if workers < 1 {
		workers = 1
	}
	if size < 1 {
		size = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &PoolScheduler{
		tasks:  make(chan task, size),
		ctx:    ctx,
		cancel: cancel,
		logger: log.Named("scheduler"),
	}

	s.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go s.worker(i)
	}

	s.logger.Info("Worker pool started",
		logger.Int("workers", workers),
		logger.Int("queueSize", size),
	)
	return s
}

func (s *PoolScheduler) Submit(_ context.Context, jobID string, work Work) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrSchedulerClosed
	}
	select {
	case s.tasks <- task{jobID: jobID, work: work}:
		return nil
	default:
		s.logger.Warn("Queue full, rejecting job", logger.JobID(jobID))
		return ErrQueueFull
	}
}

func (s *PoolScheduler) worker(id int) {
	defer s.wg.Done()
	for t := range s.tasks {
		s.run(id, t)
	}
}

func (s *PoolScheduler) run(id int, t task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Job run panicked",
				logger.JobID(t.jobID),
				logger.Int("worker", id),
				logger.Any("panic", r),
			)
		}
	}()

	if err := t.work(s.ctx); err != nil {
		s.logger.Warn("Job run returned error", logger.JobID(t.jobID), logger.Error(err))
	}
}

// Shutdown stops accepting work and waits for queued and running jobs. When
// ctx expires first, running work is cancelled and ctx.Err is returned once
// the workers exit.
func (s *PoolScheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.tasks)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.logger.Warn("Shutdown deadline reached, cancelling running jobs")
		s.cancel()
		<-done
		return ctx.Err()
	}
}
