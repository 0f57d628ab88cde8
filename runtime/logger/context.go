// Package logger provides structured logging for the compiler and runtime.
package logger

import (
	"context"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

// Context keys for common logging fields.
// These keys are used to store values in context.Context that will be
// automatically extracted and added to log entries.
const (
	// ContextKeyRunID identifies the current pipeline run.
	ContextKeyRunID contextKey = "run_id"

	// ContextKeyStep identifies the step currently executing.
	ContextKeyStep contextKey = "step"

	// ContextKeyOrchestrator identifies the orchestrator invoking the pipeline, if any.
	ContextKeyOrchestrator contextKey = "orchestrator"

	// ContextKeyDeploymentRole identifies the generated artifact's deployment role
	// (e.g. "orchestrator-client", "pipeline-server", "plugin-client", "plugin-server", "rest-server").
	ContextKeyDeploymentRole contextKey = "deployment_role"

	// ContextKeyPhase identifies the compiler phase (e.g. "discovery", "semantic", "binding").
	ContextKeyPhase contextKey = "phase"

	// ContextKeySessionID identifies the caller's session.
	ContextKeySessionID contextKey = "session_id"

	// ContextKeyRequestID identifies the individual request.
	ContextKeyRequestID contextKey = "request_id"

	// ContextKeyCorrelationID is used for distributed tracing.
	ContextKeyCorrelationID contextKey = "correlation_id"

	// ContextKeyEnvironment identifies the deployment environment.
	ContextKeyEnvironment contextKey = "environment"
)

// allContextKeys lists all context keys that should be extracted for logging.
// This is used by the handler to iterate over all possible context values.
var allContextKeys = []contextKey{
	ContextKeyRunID,
	ContextKeyStep,
	ContextKeyOrchestrator,
	ContextKeyDeploymentRole,
	ContextKeyPhase,
	ContextKeySessionID,
	ContextKeyRequestID,
	ContextKeyCorrelationID,
	ContextKeyEnvironment,
}

// WithRunID returns a new context with the run ID set.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ContextKeyRunID, runID)
}

// WithStep returns a new context with the current step name set.
func WithStep(ctx context.Context, step string) context.Context {
	return context.WithValue(ctx, ContextKeyStep, step)
}

// WithOrchestrator returns a new context with the orchestrator name set.
func WithOrchestrator(ctx context.Context, orchestrator string) context.Context {
	return context.WithValue(ctx, ContextKeyOrchestrator, orchestrator)
}

// WithDeploymentRole returns a new context with the deployment role set.
func WithDeploymentRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ContextKeyDeploymentRole, role)
}

// WithPhase returns a new context with the compiler phase set.
func WithPhase(ctx context.Context, phase string) context.Context {
	return context.WithValue(ctx, ContextKeyPhase, phase)
}

// WithSessionID returns a new context with the session ID set.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, ContextKeySessionID, sessionID)
}

// WithRequestID returns a new context with the request ID set.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// WithCorrelationID returns a new context with the correlation ID set.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, ContextKeyCorrelationID, correlationID)
}

// WithEnvironment returns a new context with the environment set.
func WithEnvironment(ctx context.Context, environment string) context.Context {
	return context.WithValue(ctx, ContextKeyEnvironment, environment)
}

// WithLoggingContext returns a new context with multiple logging fields set at once.
// This is a convenience function for setting multiple fields in one call.
// Only non-empty values are set.
func WithLoggingContext(ctx context.Context, fields *LoggingFields) context.Context {
	if fields == nil {
		return ctx
	}
	if fields.RunID != "" {
		ctx = WithRunID(ctx, fields.RunID)
	}
	if fields.Step != "" {
		ctx = WithStep(ctx, fields.Step)
	}
	if fields.Orchestrator != "" {
		ctx = WithOrchestrator(ctx, fields.Orchestrator)
	}
	if fields.DeploymentRole != "" {
		ctx = WithDeploymentRole(ctx, fields.DeploymentRole)
	}
	if fields.Phase != "" {
		ctx = WithPhase(ctx, fields.Phase)
	}
	if fields.SessionID != "" {
		ctx = WithSessionID(ctx, fields.SessionID)
	}
	if fields.RequestID != "" {
		ctx = WithRequestID(ctx, fields.RequestID)
	}
	if fields.CorrelationID != "" {
		ctx = WithCorrelationID(ctx, fields.CorrelationID)
	}
	if fields.Environment != "" {
		ctx = WithEnvironment(ctx, fields.Environment)
	}
	return ctx
}

// LoggingFields holds all standard logging context fields.
// This struct is used with WithLoggingContext for bulk field setting.
type LoggingFields struct {
	RunID          string
	Step           string
	Orchestrator   string
	DeploymentRole string
	Phase          string
	SessionID      string
	RequestID      string
	CorrelationID  string
	Environment    string
}

// ExtractLoggingFields extracts all logging fields from a context.
// Returns a LoggingFields struct with all values found in the context.
func ExtractLoggingFields(ctx context.Context) LoggingFields {
	fields := LoggingFields{}
	if v := ctx.Value(ContextKeyRunID); v != nil {
		fields.RunID, _ = v.(string)
	}
	if v := ctx.Value(ContextKeyStep); v != nil {
		fields.Step, _ = v.(string)
	}
	if v := ctx.Value(ContextKeyOrchestrator); v != nil {
		fields.Orchestrator, _ = v.(string)
	}
	if v := ctx.Value(ContextKeyDeploymentRole); v != nil {
		fields.DeploymentRole, _ = v.(string)
	}
	if v := ctx.Value(ContextKeyPhase); v != nil {
		fields.Phase, _ = v.(string)
	}
	if v := ctx.Value(ContextKeySessionID); v != nil {
		fields.SessionID, _ = v.(string)
	}
	if v := ctx.Value(ContextKeyRequestID); v != nil {
		fields.RequestID, _ = v.(string)
	}
	if v := ctx.Value(ContextKeyCorrelationID); v != nil {
		fields.CorrelationID, _ = v.(string)
	}
	if v := ctx.Value(ContextKeyEnvironment); v != nil {
		fields.Environment, _ = v.(string)
	}
	return fields
}
