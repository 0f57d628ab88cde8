// Package runner implements the pipeline runner: it takes a source (a single
// deferred value or a lazy sequence, both represented as Go channels) and an
// ordered list of step instances, and produces the composed reactive flow
// that applies each step in turn, honoring shape, parallelism, backpressure,
// retry and failure-recovery.
package runner

import (
	"github.com/flowforge/flowforge/runtime/step"
)

// decision is the resolved outcome of applying resolveParallel to one step.
type decision struct {
	parallel    bool
	advisoryLog bool // STRICT_ADVISED + AUTO forced sequential
	overrideLog bool // STRICT_ADVISED + PARALLEL forced parallel
}

// resolveParallel implements the parallelism resolution policy (§4.3):
//
//  1. thread_safety=UNSAFE with a non-SEQUENTIAL policy is a fatal
//     configuration error.
//  2. ordering=STRICT_REQUIRED with a non-SEQUENTIAL policy is a fatal
//     configuration error.
//  3. policy=SEQUENTIAL always runs sequentially.
//  4. ordering=STRICT_ADVISED: AUTO runs sequentially (advisory log);
//     PARALLEL runs in parallel (override log).
//  5. policy=PARALLEL runs in parallel.
//  6. Otherwise (policy=AUTO, ordering RELAXED): parallel iff the step's
//     shape is an AUTO-candidate.
func resolveParallel(hints step.ParallelismHints, policy step.Policy, shape step.Shape) (decision, error) {
	if hints.ThreadSafety == step.Unsafe && policy != step.Sequential {
		return decision{}, step.ErrThreadSafetyPolicyConflict
	}
	if hints.Ordering == step.StrictRequired && policy != step.Sequential {
		return decision{}, step.ErrOrderingPolicyConflict
	}
	if policy == step.Sequential {
		return decision{parallel: false}, nil
	}
	if hints.Ordering == step.StrictAdvised {
		if policy == step.Parallel {
			return decision{parallel: true, overrideLog: true}, nil
		}
		return decision{parallel: false, advisoryLog: true}, nil
	}
	if policy == step.Parallel {
		return decision{parallel: true}, nil
	}
	// policy == AUTO, ordering == RELAXED.
	return decision{parallel: shape.IsAutoParallelCandidate()}, nil
}

// clampConcurrency enforces max_concurrency >= 1.
func clampConcurrency(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
