package ir

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// RunContext is the transient, run-scoped state the runner owns for the
// duration of a single execute_streaming/execute_unary call (§3
// Ownership): a correlation id, start time, and an in-flight item counter
// updated only by instrumentation wrappers. It is not shared across runs.
type RunContext struct {
	RunID     string
	StartedAt time.Time

	inFlight atomic.Int64
}

// NewRunContext allocates a fresh RunContext with a random correlation id.
func NewRunContext() *RunContext {
	return &RunContext{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
}

// IncInFlight records the start of one more in-flight item.
func (r *RunContext) IncInFlight() int64 {
	return r.inFlight.Add(1)
}

// DecInFlight records the completion (success or failure) of one in-flight item.
func (r *RunContext) DecInFlight() int64 {
	return r.inFlight.Add(-1)
}

// InFlight returns the current in-flight item count.
func (r *RunContext) InFlight() int64 {
	return r.inFlight.Load()
}

// Elapsed returns the time since the run started.
func (r *RunContext) Elapsed() time.Duration {
	return time.Since(r.StartedAt)
}
