package logger

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed(level zapcore.Level) (*StructuredLogger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return NewFromZap(zap.New(core)), logs
}

func TestBusinessEventFields(t *testing.T) {
	sl, logs := observed(zapcore.InfoLevel)

	sl.LogBusinessEvent("Bill generated", "bill", "generate", map[string]interface{}{"items": 3})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Bill generated", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "business", fields["component"])
	assert.Equal(t, "generate", fields["operation"])
	assert.Equal(t, "bill", fields["resource"])
	assert.EqualValues(t, 3, fields["items"])
}

func TestErrorCarriesCause(t *testing.T) {
	sl, logs := observed(zapcore.InfoLevel)

	sl.Error("serialization failed", errors.New("disk full"))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[0].Level)
	assert.Equal(t, "disk full", logs.All()[0].ContextMap()["error"])
}

func TestLevelFiltering(t *testing.T) {
	sl, logs := observed(zapcore.WarnLevel)

	sl.Debug("hidden")
	sl.Info("hidden")
	sl.Warn("shown")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "shown", logs.All()[0].Message)
}

func TestLoggingMiddlewareAssignsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sl, logs := observed(zapcore.InfoLevel)

	r := gin.New()
	r.Use(sl.LoggingMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		sl.WithRequestContext(c).Info("inside handler")
		c.String(http.StatusOK, "pong")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping?x=1", nil))

	require.Equal(t, http.StatusOK, w.Code)
	requestID := w.Header().Get("X-Request-ID")
	require.NotEmpty(t, requestID)

	require.Equal(t, 2, logs.Len())
	inside := logs.All()[0].ContextMap()
	assert.Equal(t, requestID, inside["request_id"])
	assert.Equal(t, "/ping", inside["path"])

	access := logs.All()[1]
	assert.Equal(t, "HTTP Request", access.Message)
	assert.Equal(t, "/ping?x=1", access.ContextMap()["path"])
	assert.EqualValues(t, http.StatusOK, access.ContextMap()["status_code"])
}

func TestLoggingMiddlewareKeepsInboundRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sl, _ := observed(zapcore.InfoLevel)

	r := gin.New()
	r.Use(sl.LoggingMiddleware())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestNewStructuredLoggerRejectsBadLevel(t *testing.T) {
	_, err := NewStructuredLogger(LoggerConfig{Level: "loud"})
	require.Error(t, err)
}
