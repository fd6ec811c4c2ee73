package routes

import (
	"fmt"
	"html/template"
	"time"

	"go-bill-webapp/internal/config"
	"go-bill-webapp/internal/handlers"
	"go-bill-webapp/internal/logger"
	"go-bill-webapp/internal/middleware"
	"go-bill-webapp/internal/monitoring"
	"go-bill-webapp/web"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine with middleware, templates and routes.
func NewRouter(cfg *config.Config, log *logger.StructuredLogger, monitor *middleware.PerformanceMonitor) (*gin.Engine, error) {
	tmpl, err := template.ParseFS(web.Templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	tracker := monitoring.NewErrorTracker(100, 24*time.Hour)

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.Use(log.LoggingMiddleware())
	r.Use(tracker.ErrorTrackingMiddleware())
	r.Use(handlers.GlobalErrorHandler(log))
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(monitor.PerformanceMiddleware())
	r.NoRoute(handlers.NotFoundHandler())

	billHandler := handlers.NewBillHandler(cfg.Bill, monitor, log)
	SetupBillRoutes(r, billHandler, cfg.Server.MaxBodyBytes)

	r.GET("/health", monitor.HealthHandler())
	r.GET("/health/errors", tracker.Handler())
	r.GET("/metrics", monitor.MetricsHandler())
	return r, nil
}

// SetupBillRoutes registers the form, download and preview endpoints
func SetupBillRoutes(r *gin.Engine, h *handlers.BillHandler, maxBodyBytes int64) {
	r.GET("/", h.NewBillForm)

	limited := r.Group("/", middleware.RequestSizeLimitMiddleware(maxBodyBytes))
	limited.POST("/bill", h.GenerateBillFromForm)

	api := limited.Group("/api")
	{
		api.POST("/bill", h.GenerateBillAPI)
		api.POST("/bill/preview", h.PreviewBillAPI)
	}
}
