// Package step defines the step contract the pipeline runner composes:
// shapes, parallelism hints, per-step configuration, and the dead-letter
// recovery capability a step may optionally implement.
package step

import "context"

// Step is a single unit of pipeline processing. Like the teacher's Stage,
// a Step reads from an input channel and writes to an output channel; it
// owns closing output (or propagating input's close). Shape declares the
// semantic contract Apply must honor: for a unary-input shape the runner
// guarantees exactly one item arrives on in before it is closed; for a
// unary-output shape Apply must write at most one item before returning.
//
// Step instances are long-lived and shared across runs; an implementation
// must honor its declared ThreadSafety.
type Step[T any] interface {
	// Name returns the step's canonical (fully-qualified) class name, as
	// used in OrderedStepList and telemetry.
	Name() string

	// Shape returns the step's streaming contract.
	Shape() Shape

	// Hints returns the step's declared parallelism hints. Steps that don't
	// declare any should return DefaultParallelismHints().
	Hints() ParallelismHints

	// Config returns the step's effective configuration (defaults merged
	// with per-step overrides).
	Config() Config

	// Apply runs the step's processing loop. It must close output when
	// input is exhausted (or closed), and must return ctx.Err() promptly
	// on cancellation.
	Apply(ctx context.Context, input <-chan T, output chan<- T) error
}

// BaseStep provides the common bookkeeping fields for Step implementations,
// reducing boilerplate for concrete steps. Embed it and implement Apply.
type BaseStep struct {
	name   string
	shape  Shape
	hints  ParallelismHints
	config Config
}

// NewBaseStep creates a BaseStep with the given identity and contract.
func NewBaseStep(name string, shape Shape, hints ParallelismHints, config Config) BaseStep {
	return BaseStep{name: name, shape: shape, hints: hints, config: config}
}

// Name returns the step's canonical name.
func (b *BaseStep) Name() string { return b.name }

// Shape returns the step's streaming contract.
func (b *BaseStep) Shape() Shape { return b.shape }

// Hints returns the step's parallelism hints.
func (b *BaseStep) Hints() ParallelismHints { return b.hints }

// Config returns the step's effective configuration.
func (b *BaseStep) Config() Config { return b.config }

// Func adapts a plain function into a Step, for simple steps that don't
// warrant a dedicated type.
type Func[T any] struct {
	BaseStep
	apply func(context.Context, <-chan T, chan<- T) error
}

// NewFunc creates a functional Step.
func NewFunc[T any](
	name string,
	shape Shape,
	hints ParallelismHints,
	config Config,
	apply func(context.Context, <-chan T, chan<- T) error,
) *Func[T] {
	return &Func[T]{
		BaseStep: NewBaseStep(name, shape, hints, config),
		apply:    apply,
	}
}

// Apply executes the wrapped function.
func (f *Func[T]) Apply(ctx context.Context, input <-chan T, output chan<- T) error {
	return f.apply(ctx, input, output)
}
