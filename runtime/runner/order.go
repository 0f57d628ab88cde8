package runner

import (
	"github.com/flowforge/flowforge/runtime/step"
)

// ReconcileOrder resolves the effective step order per §4.3: if the
// runtime step set matches the OrderedStepList (orderedNames) exactly, that
// order is used. If the runtime set contains a step absent from
// orderedNames, the caller's original order is preserved in full and
// warnFn is called once. Names listed in orderedNames but absent from the
// runtime set are ignored, each producing one warnFn call.
func ReconcileOrder[T any](orderedNames []string, steps []step.Step[T], warnFn func(msg string, args ...any)) []step.Step[T] {
	byName := make(map[string]step.Step[T], len(steps))
	for _, s := range steps {
		byName[s.Name()] = s
	}

	for _, s := range steps {
		if !contains(orderedNames, s.Name()) {
			if warnFn != nil {
				warnFn("runtime step not present in emitted order; preserving caller-supplied order",
					"step", s.Name())
			}
			return steps
		}
	}

	reconciled := make([]step.Step[T], 0, len(steps))
	for _, name := range orderedNames {
		s, ok := byName[name]
		if !ok {
			if warnFn != nil {
				warnFn("step named in emitted order is absent from runtime step set; ignoring", "step", name)
			}
			continue
		}
		reconciled = append(reconciled, s)
	}
	return reconciled
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
