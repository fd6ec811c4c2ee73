package monitoring

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestTracker(maxErrors int, retention time.Duration) (*ErrorTracker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	tracker := NewErrorTracker(maxErrors, retention)
	tracker.now = clock.now
	return tracker, clock
}

func TestCaptureErrorDeduplicates(t *testing.T) {
	tracker, clock := newTestTracker(10, time.Hour)
	cause := errors.New("zip: write failed")

	first := tracker.CaptureError("docx", "save", "serialize", cause, MEDIUM, nil)
	clock.advance(time.Minute)
	second := tracker.CaptureError("docx", "save", "serialize", cause, HIGH, nil)

	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, 2, second.Count)
	assert.Equal(t, "HIGH", second.Severity)
	assert.Equal(t, first.FirstSeen, second.FirstSeen)
	assert.True(t, second.LastSeen.After(second.FirstSeen))
	assert.Len(t, tracker.GetErrors(0), 1)
}

func TestErrorTrackerEvictsOldest(t *testing.T) {
	tracker, clock := newTestTracker(2, 0)

	tracker.CaptureError("a", "op", "first", nil, LOW, nil)
	clock.advance(time.Second)
	tracker.CaptureError("b", "op", "second", nil, LOW, nil)
	clock.advance(time.Second)
	tracker.CaptureError("c", "op", "third", nil, LOW, nil)

	tracked := tracker.GetErrors(0)
	require.Len(t, tracked, 2)
	assert.Equal(t, "third", tracked[0].Message)
	assert.Equal(t, "second", tracked[1].Message)
}

func TestErrorTrackerRetention(t *testing.T) {
	tracker, clock := newTestTracker(10, time.Hour)

	tracker.CaptureError("docx", "save", "old", nil, LOW, nil)
	clock.advance(2 * time.Hour)
	tracker.CaptureError("docx", "save", "new", nil, LOW, nil)

	tracked := tracker.GetErrors(0)
	require.Len(t, tracked, 1)
	assert.Equal(t, "new", tracked[0].Message)
}

func TestGetErrorSummary(t *testing.T) {
	tracker, _ := newTestTracker(10, 0)

	tracker.CaptureError("/api/bill", "POST", "one", nil, MEDIUM, nil)
	tracker.CaptureError("/api/bill", "POST", "two", nil, CRITICAL, nil)
	tracker.CaptureError("/api/bill", "POST", "two", nil, CRITICAL, nil)
	tracker.CaptureError("", "", "orphan", nil, LOW, nil)

	summary := tracker.GetErrorSummary()
	require.Contains(t, summary, "/api/bill")
	assert.Equal(t, 3, summary["/api/bill"].Count)
	assert.Equal(t, "CRITICAL", summary["/api/bill"].Severity)
	assert.Equal(t, 1, summary["unknown"].Count)
}

func TestErrorTrackingMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tracker, _ := newTestTracker(10, time.Hour)

	r := gin.New()
	r.Use(tracker.ErrorTrackingMiddleware())
	r.POST("/api/bill", func(c *gin.Context) {
		c.Set("request_id", "req-1")
		_ = c.Error(errors.New("zip: write failed"))
		c.AbortWithStatus(http.StatusInternalServerError)
	})
	r.GET("/warn", func(c *gin.Context) {
		_ = c.Error(errors.New("soft"))
		c.Status(http.StatusOK)
	})
	r.GET("/errors", tracker.Handler())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/bill", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/warn", nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/errors?limit=10", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Errors  []ErrorDetails          `json:"errors"`
		Summary map[string]ErrorSummary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Errors, 2)

	bySeverity := map[string]ErrorDetails{}
	for _, e := range resp.Errors {
		bySeverity[e.Severity] = e
	}
	high := bySeverity["HIGH"]
	assert.Equal(t, "/api/bill", high.Component)
	assert.Equal(t, "POST", high.Operation)
	assert.Equal(t, "req-1", high.RequestID)
	assert.Equal(t, "zip: write failed", high.Error)
	assert.Equal(t, "/warn", bySeverity["MEDIUM"].Component)
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "CRITICAL", CRITICAL.String())
	assert.Equal(t, "UNKNOWN", ErrorSeverity(42).String())
	assert.Equal(t, HIGH, parseSeverity("high"))
	assert.Equal(t, LOW, parseSeverity("bogus"))
}
