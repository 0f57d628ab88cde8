// Package errors provides standardized error types shared across flowforge's
// compiler and runtime packages.
//
// ContextualError is the base error type that captures component, operation, and
// optional status code and details. It implements the error and Unwrap interfaces
// for seamless integration with Go's errors package.
//
// Usage:
//
//	err := errors.New("runner", "ApplyStep", someErr)
//	err = err.WithStatusCode(500).WithDetails(map[string]any{"step": "Normalize"})
package errors

import "fmt"

// ContextualError is a structured error type that provides consistent context
// about where and why an error occurred across flowforge modules.
type ContextualError struct {
	// Component identifies the package that produced the error (e.g. "runner", "compiler", "healthgate").
	Component string

	// Operation describes what was being done when the error occurred.
	Operation string

	// StatusCode is an optional HTTP or application-level status code.
	StatusCode int

	// Details holds optional structured metadata about the error.
	Details map[string]any

	// Cause is the underlying error, if any.
	Cause error
}

// New creates a ContextualError with the given component, operation, and cause.
func New(component, operation string, cause error) *ContextualError {
	return &ContextualError{
		Component: component,
		Operation: operation,
		Cause:     cause,
	}
}

// Error returns a human-readable representation of the error.
func (e *ContextualError) Error() string {
	base := fmt.Sprintf("[%s] %s", e.Component, e.Operation)

	if e.StatusCode != 0 {
		base += fmt.Sprintf(" (status %d)", e.StatusCode)
	}

	if e.Cause != nil {
		base += ": " + e.Cause.Error()
	}

	return base
}

// Unwrap returns the underlying cause, enabling use with errors.Is and errors.As.
func (e *ContextualError) Unwrap() error {
	return e.Cause
}

// WithStatusCode returns the error with the given status code set.
func (e *ContextualError) WithStatusCode(code int) *ContextualError {
	e.StatusCode = code
	return e
}

// WithDetails returns the error with the given details map set.
func (e *ContextualError) WithDetails(details map[string]any) *ContextualError {
	e.Details = details
	return e
}
