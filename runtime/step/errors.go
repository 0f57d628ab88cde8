package step

import "errors"

// Common errors returned while validating or applying a step.
var (
	// ErrUnsupportedCurrentType is returned when the (current-shape, step-shape)
	// pair has no legal adaptation.
	ErrUnsupportedCurrentType = errors.New("unsupported current type")

	// ErrNilResult is returned when a step yields a nil/zero result where the
	// contract requires a value; a nil result from a runner is a fatal
	// contract violation, never a valid "no value" signal.
	ErrNilResult = errors.New("step returned a nil result")

	// ErrThreadSafetyPolicyConflict is returned when an UNSAFE step is
	// scheduled under a non-SEQUENTIAL policy.
	ErrThreadSafetyPolicyConflict = errors.New("thread-unsafe step requires sequential policy")

	// ErrOrderingPolicyConflict is returned when a STRICT_REQUIRED step is
	// scheduled under a non-SEQUENTIAL policy.
	ErrOrderingPolicyConflict = errors.New("strict-required ordering requires sequential policy")

	// ErrInvalidMaxConcurrency is returned for a non-positive max_concurrency
	// before it is clamped.
	ErrInvalidMaxConcurrency = errors.New("max_concurrency must be at least 1")
)

// Error wraps a failure with the step that produced it.
type Error struct {
	StepName string
	Shape    Shape
	Attempt  int
	Cause    error
}

// Error returns a human-readable message.
func (e *Error) Error() string {
	return "step '" + e.StepName + "' (" + e.Shape.String() + ") failed: " + e.Cause.Error()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new step Error.
func NewError(stepName string, shape Shape, attempt int, cause error) *Error {
	return &Error{StepName: stepName, Shape: shape, Attempt: attempt, Cause: cause}
}
