package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, propagated through the call chain via context.
const (
	FieldRequestID = "request_id"
	FieldJobID     = "job_id"
	FieldComponent = "component"
	FieldRepo      = "repo"
	FieldStage     = "stage"
	FieldCallerID  = "caller_id"
)

// Metric fields, attached per entry.
const (
	FieldDurationMs = "duration_ms"
	FieldCount      = "count"
	FieldProgress   = "progress"
	FieldStatus     = "status"
	FieldAttempt    = "attempt"
)
