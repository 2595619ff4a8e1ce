package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldJobID is the standardized structured logging key for dispatcher job identifiers.
	FieldJobID = "job_id"
	// FieldEventType classifies a log line for filtering (e.g. bootstrap_state, job_failed).
	FieldEventType = "event_type"
	// FieldErrorHint carries the suggested next step for a warning or error.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldURL is the standardized key for remote resource locations.
	FieldURL = "url"
	// FieldFormatID is the standardized key for a selected media format identifier.
	FieldFormatID = "format_id"
	// FieldPath is the standardized key for filesystem paths.
	FieldPath = "path"
	// FieldState is the standardized key for state machine states.
	FieldState = "state"
)

type contextKey string

const jobIDKey contextKey = "job_id"

// WithJobID annotates context with the dispatcher job identifier.
func WithJobID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, jobIDKey, id)
}

// JobIDFromContext extracts the job identifier if present.
func JobIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if v, ok := ctx.Value(jobIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithContext returns logger tagged with the job id carried by ctx, if any.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if id, ok := JobIDFromContext(ctx); ok {
		return logger.With(slog.String(FieldJobID, id))
	}
	return logger
}
