// Package observability provides structured logging helpers shared by the
// server and CLI.
package observability

import (
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
)

const (
	// LogFieldRequestID is the field name for request ID.
	LogFieldRequestID = "request_id"
	// LogFieldReason is the field name for a change reason.
	LogFieldReason = "reason"
	// LogFieldTimezone is the field name for the active timezone.
	LogFieldTimezone = "timezone"
	// LogFieldDuration is the field name for duration in milliseconds.
	LogFieldDuration = "duration_ms"
	// LogFieldErrorCode is the field name for a resolve error code.
	LogFieldErrorCode = "error_code"
)

// NewLogger creates the process logger. Dev mode lowers the level to
// debug.
func NewLogger(mode string) *slog.Logger {
	level := slog.LevelInfo
	if mode != "prod" {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

// RequestContext carries per-request logging state.
type RequestContext struct {
	RequestID string
	StartTime time.Time
	Logger    *slog.Logger
}

// NewRequestContext creates a request context with a generated request ID.
func NewRequestContext(logger *slog.Logger) *RequestContext {
	reqID := uuid.New().String()
	return &RequestContext{
		RequestID: reqID,
		StartTime: time.Now(),
		Logger:    logger.With(slog.String(LogFieldRequestID, reqID)),
	}
}

// DurationMs returns the elapsed time in milliseconds.
func (r *RequestContext) DurationMs() int64 {
	return time.Since(r.StartTime).Milliseconds()
}
