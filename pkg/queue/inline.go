package queue

import (
	"context"
	"fmt"

	"github.com/feichai0017/document-analyzer/pkg/logger"
)

// InlineScheduler runs work synchronously in the caller's goroutine.
type InlineScheduler struct {
	logger logger.Logger
}

func NewInlineScheduler(log logger.Logger) *InlineScheduler {
	return &InlineScheduler{logger: log.Named("scheduler")}
}

func (s *InlineScheduler) Submit(ctx context.Context, jobID string, work Work) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Job run panicked", logger.JobID(jobID), logger.Any("panic", r))
			err = fmt.Errorf("job %s panicked: %v", jobID, r)
		}
	}()

	if err := work(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("Job run returned error", logger.JobID(jobID), logger.Error(err))
	}
	return nil
}

func (s *InlineScheduler) Shutdown(context.Context) error { return nil }
