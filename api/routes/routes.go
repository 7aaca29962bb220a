package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/feichai0017/document-analyzer/api/handlers"
	"github.com/feichai0017/document-analyzer/api/middleware"
	"github.com/feichai0017/document-analyzer/pkg/logger"
)

// SetupRoutes registers every route and the global middleware.
func SetupRoutes(r *gin.Engine, h *handlers.Handlers, corsOrigins []string, log logger.Logger) {
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.CORS(corsOrigins))

	r.GET("/", h.Health.Root)
	r.GET("/health", h.Health.Health)

	api := r.Group("/api")
	{
		api.POST("/analyze", h.Document.Analyze)
		api.GET("/status/:job_id", h.Document.GetStatus)
		api.GET("/results/:job_id", h.Document.GetResults)
		api.GET("/results/:job_id/download", h.Document.DownloadResults)
		api.GET("/results/:job_id/export", h.Document.ExportResults)
		api.GET("/jobs", h.Document.ListJobs)
		api.DELETE("/jobs/:job_id", h.Document.DeleteJob)
	}
}
