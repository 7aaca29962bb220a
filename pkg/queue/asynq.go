package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/feichai0017/document-analyzer/pkg/logger"
)

const DefaultQueue = "default"

type AsynqConfig struct {
	RedisAddr     string
	RedisDB       int
	RedisPassword string
	Queue         string
	// Timeout bounds a single run on the worker.
	Timeout time.Duration
}

func (c *AsynqConfig) RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     c.RedisAddr,
		DB:       c.RedisDB,
		Password: c.RedisPassword,
	}
}

// AsynqScheduler enqueues jobs to Redis for cmd/worker. The work function
// is not serialized; the worker calls the service's RunJob instead.
type AsynqScheduler struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	config    *AsynqConfig
	logger    logger.Logger
}

func NewAsynqScheduler(cfg *AsynqConfig, log logger.Logger) *AsynqScheduler {
	if cfg.Queue == "" {
		cfg.Queue = DefaultQueue
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Minute
	}
	return &AsynqScheduler{
		client:    asynq.NewClient(cfg.RedisOpt()),
		inspector: asynq.NewInspector(cfg.RedisOpt()),
		config:    cfg,
		logger:    log.Named("scheduler"),
	}
}

// NewAnalyzeTask builds the task for one job. Runs are never retried.
func NewAnalyzeTask(jobID string, queue string, timeout time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(TaskPayload{JobID: jobID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task: %w", err)
	}
	return asynq.NewTask(TaskTypeDocumentAnalyze, payload,
		asynq.MaxRetry(0),
		asynq.TaskID(jobID),
		asynq.Timeout(timeout),
		asynq.Queue(queue),
	), nil
}

// ParsePayload decodes a document:analyze payload.
func ParsePayload(data []byte) (TaskPayload, error) {
	var p TaskPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	if p.JobID == "" {
		return p, errors.New("invalid task data: missing job_id")
	}
	return p, nil
}

func (s *AsynqScheduler) Submit(ctx context.Context, jobID string, _ Work) error {
	t, err := NewAnalyzeTask(jobID, s.config.Queue, s.config.Timeout)
	if err != nil {
		return err
	}

	info, err := s.client.EnqueueContext(ctx, t)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		s.logger.Info("Task already enqueued", logger.JobID(jobID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	s.logger.Info("Task enqueued", logger.JobID(jobID), logger.String("queue", info.Queue))
	return nil
}

// Cancel removes a task that has not started yet.
func (s *AsynqScheduler) Cancel(_ context.Context, jobID string) error {
	if err := s.inspector.DeleteTask(s.config.Queue, jobID); err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			return nil
		}
		return fmt.Errorf("failed to cancel task: %w", err)
	}
	return nil
}

func (s *AsynqScheduler) Shutdown(context.Context) error {
	return errors.Join(s.client.Close(), s.inspector.Close())
}
