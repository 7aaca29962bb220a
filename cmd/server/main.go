package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/feichai0017/document-analyzer/api/handlers"
	"github.com/feichai0017/document-analyzer/api/routes"
	"github.com/feichai0017/document-analyzer/config"
	"github.com/feichai0017/document-analyzer/internal/service/document"
	"github.com/feichai0017/document-analyzer/pkg/logger"
	"github.com/feichai0017/document-analyzer/pkg/queue"
)

func main() {
	cfg, err := config.GetAppConfig()
	if err != nil {
		panic(err)
	}

	// init logger
	log, err := logger.NewLogger(
		logger.WithLevel(cfg.Log.Level),
		logger.WithEncoding(cfg.Log.Encoding),
		logger.WithLogDir(cfg.Log.Dir, "app"),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler, err := queue.NewScheduler(cfg, log)
	if err != nil {
		log.Fatal("Failed to create scheduler", logger.Error(err))
	}

	// init document service
	docService, closeService, err := document.GetService(ctx, cfg, scheduler, log)
	if err != nil {
		log.Fatal("Failed to get document service", logger.Error(err))
	}
	defer closeService()

	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}

	// init handlers
	h := handlers.NewHandlers(docService, handlers.Options{
		MaxUploadBytes: cfg.Upload.MaxFileSizeBytes(),
		Model:          cfg.AI.Model,
	}, log)
	if os.Getenv(gin.EnvGinMode) == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	routes.SetupRoutes(r, h, cfg.Server.CORSOrigins, log)

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server starting", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error", logger.Error(err))
			stop()
		}
	}()

	grpcServer, healthServer := startHealthServer(cfg.Server.GRPCAddr, log)

	if cfg.Jobs.Retention > 0 && cfg.Jobs.CleanupInterval > 0 {
		go runCleanup(ctx, docService, cfg.Jobs.Retention, cfg.Jobs.CleanupInterval, log)
	}

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if healthServer != nil {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", logger.Error(err))
	}
	if err := scheduler.Shutdown(shutdownCtx); err != nil {
		log.Error("Scheduler did not drain", logger.Error(err))
	}
	log.Info("Server stopped")
}

// startHealthServer serves grpc.health.v1 on addr. An empty addr disables it.
func startHealthServer(addr string, log logger.Logger) (*grpc.Server, *health.Server) {
	if addr == "" {
		return nil, nil
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Error("Failed to listen for gRPC health", logger.String("addr", addr), logger.Error(err))
		return nil, nil
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	go func() {
		log.Info("gRPC health server starting", logger.String("addr", addr))
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("gRPC health server error", logger.Error(err))
		}
	}()
	return grpcServer, healthServer
}

func runCleanup(ctx context.Context, svc document.DocumentAnalyzer, retention, interval time.Duration, log logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.CleanupJobs(ctx, retention); err != nil {
				log.Error("Job cleanup failed", logger.Error(err))
			}
		}
	}
}
