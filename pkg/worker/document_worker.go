package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/feichai0017/document-analyzer/pkg/logger"
	"github.com/feichai0017/document-analyzer/pkg/queue"
)

// JobRunner executes one job by id.
type JobRunner interface {
	RunJob(ctx context.Context, jobID string) error
}

type DocumentWorker struct {
	BaseWorker
	runner JobRunner
}

func NewDocumentWorker(cfg *Config, runner JobRunner, log logger.Logger) (*DocumentWorker, error) {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if len(cfg.Queues) == 0 {
		cfg.Queues = map[string]int{queue.DefaultQueue: 1}
	}

	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB, Password: cfg.RedisPassword},
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues:      cfg.Queues,
		},
	)

	w := &DocumentWorker{
		BaseWorker: BaseWorker{
			server: server,
			mux:    asynq.NewServeMux(),
			logger: log.Named("worker"),
		},
		runner: runner,
	}

	w.registerHandlers()
	return w, nil
}

func (w *DocumentWorker) registerHandlers() {
	w.mux.HandleFunc(queue.TaskTypeDocumentAnalyze, w.handleDocumentAnalyze)
}

// handleDocumentAnalyze runs the job. Job failures are recorded on the job
// itself, so only malformed tasks are reported back to asynq, and those are
// never retried.
func (w *DocumentWorker) handleDocumentAnalyze(ctx context.Context, t *asynq.Task) error {
	payload, err := queue.ParsePayload(t.Payload())
	if err != nil {
		w.logger.Error("Invalid task payload",
			logger.String("payload", string(t.Payload())),
			logger.Error(err),
		)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	w.logger.Info("Processing document task", logger.JobID(payload.JobID))

	if err := w.runner.RunJob(ctx, payload.JobID); err != nil {
		w.logger.Error("Job run failed", logger.JobID(payload.JobID), logger.Error(err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return nil
}

// Start runs the asynq server until ctx is cancelled.
func (w *DocumentWorker) Start(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}
	w.logger.Info("Worker started")

	go func() {
		<-ctx.Done()
		w.Stop()
	}()
	return nil
}
