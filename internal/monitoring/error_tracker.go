package monitoring

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorSeverity represents error severity levels
type ErrorSeverity int

const (
	LOW ErrorSeverity = iota
	MEDIUM
	HIGH
	CRITICAL
)

// String returns string representation of error severity
func (es ErrorSeverity) String() string {
	switch es {
	case LOW:
		return "LOW"
	case MEDIUM:
		return "MEDIUM"
	case HIGH:
		return "HIGH"
	case CRITICAL:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// PanicMeta marks a gin error that was produced by panic recovery.
const PanicMeta = "panic"

// ErrorDetails is one deduplicated failure.
type ErrorDetails struct {
	Fingerprint string                 `json:"fingerprint"`
	Message     string                 `json:"message"`
	Error       string                 `json:"error"`
	Severity    string                 `json:"severity"`
	Component   string                 `json:"component"`
	Operation   string                 `json:"operation"`
	RequestID   string                 `json:"request_id,omitempty"`
	Path        string                 `json:"path,omitempty"`
	Context     map[string]interface{} `json:"context,omitempty"`
	Count       int                    `json:"count"`
	FirstSeen   time.Time              `json:"first_seen"`
	LastSeen    time.Time              `json:"last_seen"`
}

// ErrorSummary aggregates tracked errors per component
type ErrorSummary struct {
	Count       int       `json:"count"`
	LastOccured time.Time `json:"last_occured"`
	Severity    string    `json:"severity"`
	Message     string    `json:"message"`
}

// ErrorTracker keeps the most recent failures in memory, keyed by fingerprint.
// Entries older than retention are dropped on the next capture or read.
type ErrorTracker struct {
	errors    map[string]*ErrorDetails
	mutex     sync.Mutex
	maxErrors int
	retention time.Duration
	now       func() time.Time
}

// NewErrorTracker creates a new error tracker
func NewErrorTracker(maxErrors int, retention time.Duration) *ErrorTracker {
	if maxErrors <= 0 {
		maxErrors = 100
	}
	return &ErrorTracker{
		errors:    make(map[string]*ErrorDetails),
		maxErrors: maxErrors,
		retention: retention,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CaptureError records a failure of component/operation and returns a snapshot of its entry.
func (et *ErrorTracker) CaptureError(component, operation, message string, err error, severity ErrorSeverity, context map[string]interface{}) ErrorDetails {
	now := et.now()
	details := &ErrorDetails{
		Message:   message,
		Severity:  severity.String(),
		Component: component,
		Operation: operation,
		Context:   context,
		Count:     1,
		FirstSeen: now,
		LastSeen:  now,
	}
	if err != nil {
		details.Error = err.Error()
	}
	details.Fingerprint = fingerprint(details)

	et.mutex.Lock()
	defer et.mutex.Unlock()

	et.pruneLocked(now)
	if existing, ok := et.errors[details.Fingerprint]; ok {
		existing.Count++
		existing.LastSeen = now
		existing.Error = details.Error
		existing.Context = context
		if severity > parseSeverity(existing.Severity) {
			existing.Severity = severity.String()
		}
		return *existing
	}

	et.errors[details.Fingerprint] = details
	if len(et.errors) > et.maxErrors {
		et.evictOldestLocked()
	}
	return *details
}

// CaptureRequestError records a failure with the request's route, method and id.
func (et *ErrorTracker) CaptureRequestError(c *gin.Context, message string, err error, severity ErrorSeverity, context map[string]interface{}) ErrorDetails {
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	if context == nil {
		context = make(map[string]interface{})
	}
	context["ip"] = c.ClientIP()

	details := et.CaptureError(route, c.Request.Method, message, err, severity, context)

	et.mutex.Lock()
	if stored, ok := et.errors[details.Fingerprint]; ok {
		stored.RequestID = c.GetString("request_id")
		stored.Path = c.Request.URL.Path
		details = *stored
	}
	et.mutex.Unlock()
	return details
}

// GetErrors returns tracked errors, most recently seen first.
func (et *ErrorTracker) GetErrors(limit int) []ErrorDetails {
	et.mutex.Lock()
	et.pruneLocked(et.now())
	errors := make([]ErrorDetails, 0, len(et.errors))
	for _, details := range et.errors {
		errors = append(errors, *details)
	}
	et.mutex.Unlock()

	sort.Slice(errors, func(i, j int) bool {
		return errors[i].LastSeen.After(errors[j].LastSeen)
	})
	if limit > 0 && limit < len(errors) {
		errors = errors[:limit]
	}
	return errors
}

// GetErrorSummary returns error counts grouped by component
func (et *ErrorTracker) GetErrorSummary() map[string]ErrorSummary {
	summary := make(map[string]ErrorSummary)
	for _, details := range et.GetErrors(0) {
		key := details.Component
		if key == "" {
			key = "unknown"
		}
		existing, ok := summary[key]
		if !ok {
			summary[key] = ErrorSummary{
				Count:       details.Count,
				LastOccured: details.LastSeen,
				Severity:    details.Severity,
				Message:     details.Message,
			}
			continue
		}
		existing.Count += details.Count
		if parseSeverity(details.Severity) > parseSeverity(existing.Severity) {
			existing.Severity = details.Severity
		}
		summary[key] = existing
	}
	return summary
}

// ErrorTrackingMiddleware records errors handlers attached with c.Error.
// Server-side failures are HIGH, errors marked with PanicMeta are CRITICAL,
// anything else is MEDIUM.
func (et *ErrorTracker) ErrorTrackingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		for _, ginErr := range c.Errors {
			severity := MEDIUM
			message := "Request Error"
			if c.Writer.Status() >= http.StatusInternalServerError {
				severity = HIGH
			}
			if meta, ok := ginErr.Meta.(string); ok && meta == PanicMeta {
				severity = CRITICAL
				message = "Application Panic"
			}
			et.CaptureRequestError(c, message, ginErr.Err, severity, map[string]interface{}{
				"status": c.Writer.Status(),
			})
		}
	}
}

// Handler serves the recent errors and the per-component summary.
func (et *ErrorTracker) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
		if err != nil || limit < 0 {
			limit = 50
		}
		c.JSON(http.StatusOK, gin.H{
			"errors":  et.GetErrors(limit),
			"summary": et.GetErrorSummary(),
		})
	}
}

func (et *ErrorTracker) pruneLocked(now time.Time) {
	if et.retention <= 0 {
		return
	}
	cutoff := now.Add(-et.retention)
	for key, details := range et.errors {
		if details.LastSeen.Before(cutoff) {
			delete(et.errors, key)
		}
	}
}

func (et *ErrorTracker) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for key, details := range et.errors {
		if oldestKey == "" || details.LastSeen.Before(oldest) {
			oldestKey, oldest = key, details.LastSeen
		}
	}
	delete(et.errors, oldestKey)
}

func fingerprint(details *ErrorDetails) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{
		details.Message,
		details.Component,
		details.Operation,
		details.Error,
	}, "|")))
	return hex.EncodeToString(sum[:8])
}

func parseSeverity(severity string) ErrorSeverity {
	switch strings.ToUpper(severity) {
	case "MEDIUM":
		return MEDIUM
	case "HIGH":
		return HIGH
	case "CRITICAL":
		return CRITICAL
	default:
		return LOW
	}
}
