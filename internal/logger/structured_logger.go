package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// StructuredLogger provides production-ready logging
type StructuredLogger struct {
	zl      *zap.Logger
	service string
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level        string
	Service      string
	Version      string
	Environment  string
	OutputPath   string
	EnableCaller bool
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(config LoggerConfig) (*StructuredLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableCaller = !config.EnableCaller

	level := config.Level
	if level == "" {
		level = "info"
	}
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	if config.OutputPath != "" && config.OutputPath != "stdout" {
		// Ensure log directory exists
		if err := os.MkdirAll(filepath.Dir(config.OutputPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		cfg.OutputPaths = []string{config.OutputPath}
	} else {
		cfg.OutputPaths = []string{"stdout"}
	}

	zl, err := cfg.Build(zap.Fields(
		zap.String("service", config.Service),
		zap.String("version", config.Version),
		zap.String("environment", config.Environment),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return &StructuredLogger{zl: zl, service: config.Service}, nil
}

// NewFromZap wraps an existing zap logger.
func NewFromZap(zl *zap.Logger) *StructuredLogger {
	return &StructuredLogger{zl: zl}
}

// NewNop returns a logger that discards everything.
func NewNop() *StructuredLogger {
	return NewFromZap(zap.NewNop())
}

// Zap exposes the underlying zap logger.
func (sl *StructuredLogger) Zap() *zap.Logger {
	return sl.zl
}

// Debug logs debug messages
func (sl *StructuredLogger) Debug(message string, fields ...map[string]interface{}) {
	sl.zl.Debug(message, toZapFields(mergeFields(fields...))...)
}

// Info logs info messages
func (sl *StructuredLogger) Info(message string, fields ...map[string]interface{}) {
	sl.zl.Info(message, toZapFields(mergeFields(fields...))...)
}

// Warn logs warning messages
func (sl *StructuredLogger) Warn(message string, fields ...map[string]interface{}) {
	sl.zl.Warn(message, toZapFields(mergeFields(fields...))...)
}

// Error logs error messages
func (sl *StructuredLogger) Error(message string, err error, fields ...map[string]interface{}) {
	zf := toZapFields(mergeFields(fields...))
	if err != nil {
		zf = append(zf, zap.Error(err))
	}
	sl.zl.Error(message, zf...)
}

// LogBusinessEvent logs business-specific events
func (sl *StructuredLogger) LogBusinessEvent(event string, resource string, operation string, fields ...map[string]interface{}) {
	logFields := mergeFields(fields...)
	logFields["component"] = "business"
	logFields["operation"] = operation
	logFields["resource"] = resource

	sl.Info(event, logFields)
}

// LogSystemEvent logs system-level events
func (sl *StructuredLogger) LogSystemEvent(event string, fields ...map[string]interface{}) {
	logFields := mergeFields(fields...)
	logFields["component"] = "system"

	sl.Info(event, logFields)
}

// WithRequestContext returns a request-aware logger
func (sl *StructuredLogger) WithRequestContext(c *gin.Context) *RequestLogger {
	return &RequestLogger{
		logger: sl,
		ctx:    c,
	}
}

// RequestLogger provides request-aware logging
type RequestLogger struct {
	logger *StructuredLogger
	ctx    *gin.Context
}

// Info logs info with request context
func (rl *RequestLogger) Info(message string, fields ...map[string]interface{}) {
	rl.logger.Info(message, rl.enrichWithRequestContext(fields...))
}

// Warn logs warning with request context
func (rl *RequestLogger) Warn(message string, fields ...map[string]interface{}) {
	rl.logger.Warn(message, rl.enrichWithRequestContext(fields...))
}

// Error logs error with request context
func (rl *RequestLogger) Error(message string, err error, fields ...map[string]interface{}) {
	rl.logger.Error(message, err, rl.enrichWithRequestContext(fields...))
}

func (rl *RequestLogger) enrichWithRequestContext(fields ...map[string]interface{}) map[string]interface{} {
	enriched := mergeFields(fields...)
	enriched["request_id"] = RequestID(rl.ctx)
	enriched["method"] = rl.ctx.Request.Method
	enriched["path"] = rl.ctx.Request.URL.Path
	enriched["ip"] = rl.ctx.ClientIP()
	return enriched
}

// RequestID returns the id assigned by LoggingMiddleware, or the inbound header.
func RequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return c.GetHeader("X-Request-ID")
}

// LoggingMiddleware provides request logging middleware
func (sl *StructuredLogger) LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		// Generate request ID if not present
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		// Skip logging for health checks and static files
		if path == "/health" || strings.HasPrefix(path, "/static/") {
			c.Next()
			return
		}

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		zf := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status_code", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("ip", c.ClientIP()),
			zap.String("user_agent", c.GetHeader("User-Agent")),
			zap.Int64("bytes_in", c.Request.ContentLength),
			zap.Int("bytes_out", c.Writer.Size()),
		}
		if len(c.Errors) > 0 {
			zf = append(zf, zap.String("errors", c.Errors.String()))
		}
		sl.zl.Info("HTTP Request", zf...)
	}
}

// Close flushes buffered log entries
func (sl *StructuredLogger) Close() error {
	err := sl.zl.Sync()
	// stdout cannot be synced on some platforms
	if err != nil && strings.Contains(err.Error(), "/dev/stdout") {
		return nil
	}
	return err
}

func mergeFields(fields ...map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{})
	for _, field := range fields {
		for k, v := range field {
			result[k] = v
		}
	}
	return result
}

func toZapFields(fields map[string]interface{}) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}
