package logger

import (
	"context"
	"time"
)

// Entry is a one-shot log line with metric fields.
// Example: logger.With(logger.Fields{"count": 3}).Info(ctx, "fetched files")
type Entry struct {
	fields Fields
}

// With starts an Entry carrying fields.
func With(fields Fields) *Entry {
	return &Entry{fields: fields}
}

// With returns a copy of e with fields merged in.
func (e *Entry) With(fields Fields) *Entry {
	merged := make(Fields, len(e.fields)+len(fields))
	for k, v := range e.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Entry{fields: merged}
}

// WithDuration records elapsed time since start in milliseconds.
func (e *Entry) WithDuration(start time.Time) *Entry {
	return e.With(Fields{FieldDurationMs: time.Since(start).Milliseconds()})
}

// WithCount records a count.
func (e *Entry) WithCount(n int) *Entry {
	return e.With(Fields{FieldCount: n})
}

// WithProgress records a progress percentage.
func (e *Entry) WithProgress(p float64) *Entry {
	return e.With(Fields{FieldProgress: p})
}

func (e *Entry) target(ctx context.Context) *Logger {
	return FromContext(ctx).WithFields(e.fields)
}

// Debug logs at Debug level.
func (e *Entry) Debug(ctx context.Context, format string, args ...interface{}) {
	e.target(ctx).Debugf(format, args...)
}

// Info logs at Info level.
func (e *Entry) Info(ctx context.Context, format string, args ...interface{}) {
	e.target(ctx).Infof(format, args...)
}

// Warn logs at Warn level.
func (e *Entry) Warn(ctx context.Context, format string, args ...interface{}) {
	e.target(ctx).Warnf(format, args...)
}

// Error logs at Error level.
func (e *Entry) Error(ctx context.Context, format string, args ...interface{}) {
	e.target(ctx).Errorf(format, args...)
}
