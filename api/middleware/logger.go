package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/document-analyzer/pkg/logger"
)

// RequestLogger logs one line per request after it is served.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []logger.Field{
			logger.String("method", c.Request.Method),
			logger.String("path", c.FullPath()),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("latency", time.Since(start)),
			logger.String("clientIP", c.ClientIP()),
		}
		if id := c.Param("job_id"); id != "" {
			fields = append(fields, logger.JobID(id))
		}

		switch {
		case c.Writer.Status() >= 500:
			log.Error("Request served", fields...)
		case c.Writer.Status() >= 400:
			log.Warn("Request served", fields...)
		default:
			log.Info("Request served", fields...)
		}
	}
}
