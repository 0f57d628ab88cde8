package step

import "fmt"

// Ordering declares how strongly a step depends on seeing its input in
// arrival order.
type Ordering int

const (
	// Relaxed means the step tolerates out-of-order delivery. Default.
	Relaxed Ordering = iota
	// StrictAdvised means order should be preserved if practical, but the
	// runner may override it for a PARALLEL policy (with a logged override).
	StrictAdvised
	// StrictRequired means order must be preserved; combining this with any
	// non-SEQUENTIAL policy is a fatal configuration error.
	StrictRequired
)

// String returns the canonical name of the ordering hint.
func (o Ordering) String() string {
	switch o {
	case Relaxed:
		return "RELAXED"
	case StrictAdvised:
		return "STRICT_ADVISED"
	case StrictRequired:
		return "STRICT_REQUIRED"
	default:
		return "UNKNOWN"
	}
}

// ThreadSafety declares whether a step implementation tolerates concurrent
// invocation.
type ThreadSafety int

const (
	// Safe means the step may be invoked concurrently. Default.
	Safe ThreadSafety = iota
	// Unsafe means the step must never be invoked concurrently; combining
	// this with any non-SEQUENTIAL policy is a fatal configuration error.
	Unsafe
)

// String returns the canonical name of the thread-safety hint.
func (t ThreadSafety) String() string {
	switch t {
	case Safe:
		return "SAFE"
	case Unsafe:
		return "UNSAFE"
	default:
		return "UNKNOWN"
	}
}

// ParsePolicy parses a pipeline.parallelism config value (case-insensitive).
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "AUTO", "auto", "":
		return Auto, nil
	case "SEQUENTIAL", "sequential":
		return Sequential, nil
	case "PARALLEL", "parallel":
		return Parallel, nil
	default:
		return Auto, fmt.Errorf("step: unknown parallelism policy %q", s)
	}
}

// ParallelismHints declares a step's concurrency contract. Steps that don't
// declare hints get the defaults (Relaxed, Safe).
type ParallelismHints struct {
	Ordering     Ordering
	ThreadSafety ThreadSafety
}

// DefaultParallelismHints returns the hints assumed for a step that declares none.
func DefaultParallelismHints() ParallelismHints {
	return ParallelismHints{
		Ordering:     Relaxed,
		ThreadSafety: Safe,
	}
}

// Policy is the pipeline-level or per-step parallelism policy.
type Policy int

const (
	// Auto lets the runner decide based on shape and ordering hints.
	Auto Policy = iota
	// Sequential forces one item at a time, in order.
	Sequential
	// Parallel forces bounded-concurrency fan-out regardless of shape.
	Parallel
)

// String returns the canonical name of the policy.
func (p Policy) String() string {
	switch p {
	case Auto:
		return "AUTO"
	case Sequential:
		return "SEQUENTIAL"
	case Parallel:
		return "PARALLEL"
	default:
		return "UNKNOWN"
	}
}
