package handlers

import (
	"fmt"
	"net/http"

	"go-bill-webapp/internal/logger"
	"go-bill-webapp/internal/monitoring"

	"github.com/gin-gonic/gin"
)

// respondError writes the JSON error body used by every endpoint. Server-side
// failures are attached to the context for the error tracker.
func respondError(c *gin.Context, statusCode int, message string, err error) {
	body := gin.H{"error": message}
	if err != nil {
		body["details"] = err.Error()
		if statusCode >= http.StatusInternalServerError {
			_ = c.Error(err)
		}
	}
	if id := logger.RequestID(c); id != "" {
		body["request_id"] = id
	}
	c.AbortWithStatusJSON(statusCode, body)
}

// GlobalErrorHandler provides global error recovery middleware
func GlobalErrorHandler(log *logger.StructuredLogger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(gin.DefaultErrorWriter, func(c *gin.Context, recovered interface{}) {
		err := fmt.Errorf("panic: %v", recovered)
		log.WithRequestContext(c).Error("GlobalErrorHandler: panic recovered", err)
		_ = c.Error(err).SetMeta(monitoring.PanicMeta)

		// Check if response has already been written
		if c.Writer.Written() {
			c.Abort()
			return
		}
		respondError(c, http.StatusInternalServerError, "An unexpected error occurred", nil)
	})
}

// NotFoundHandler handles unknown routes
func NotFoundHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Resource not found",
			"path":  c.Request.URL.Path,
		})
	}
}
