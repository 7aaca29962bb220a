package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/feichai0017/document-analyzer/config"
	"github.com/feichai0017/document-analyzer/internal/service/document"
	"github.com/feichai0017/document-analyzer/pkg/logger"
	"github.com/feichai0017/document-analyzer/pkg/queue"
	"github.com/feichai0017/document-analyzer/pkg/worker"
)

func main() {
	cfg, err := config.GetAppConfig()
	if err != nil {
		panic(err)
	}

	log, err := logger.NewLogger(
		logger.WithLevel(cfg.Log.Level),
		logger.WithEncoding(cfg.Log.Encoding),
		logger.WithLogDir(cfg.Log.Dir, "worker"),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.Queue.Backend != queue.BackendAsynq {
		log.Warn("QUEUE_BACKEND is not asynq; the server will not enqueue work for this worker",
			logger.String("backend", cfg.Queue.Backend),
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tasks already run on asynq's own goroutines.
	docService, closeService, err := document.GetService(ctx, cfg, queue.NewInlineScheduler(log), log)
	if err != nil {
		log.Error("Failed to create document service", logger.Error(err))
		os.Exit(1)
	}
	defer closeService()

	documentWorker, err := worker.NewDocumentWorker(&worker.Config{
		RedisAddr:     cfg.Queue.RedisAddr,
		RedisDB:       cfg.Queue.RedisDB,
		RedisPassword: cfg.Queue.RedisPassword,
		Concurrency:   cfg.Queue.Concurrency,
		Queues:        map[string]int{queue.DefaultQueue: 1},
	}, docService, log)
	if err != nil {
		log.Error("Failed to create document worker", logger.Error(err))
		os.Exit(1)
	}

	if err := documentWorker.Start(ctx); err != nil {
		log.Error("Failed to start worker", logger.Error(err))
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down worker...")
	documentWorker.Stop()
	log.Info("Worker stopped")
}
