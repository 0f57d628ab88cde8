package ir

// OrderedStepList is the canonical ordered sequence of fully-qualified step
// class names emitted by Order Emission (§4.1.6) and consumed at runtime
// by runner.ReconcileOrder.
type OrderedStepList []string

// ClassNames returns the ordered list of StepModel canonical class names,
// synthetic side-effect steps included at their declared position.
func ClassNames(models []*StepModel) OrderedStepList {
	names := make(OrderedStepList, len(models))
	for i, m := range models {
		names[i] = m.Identity.ClassName
	}
	return names
}
