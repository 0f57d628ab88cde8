// Package execution implements the pipeline execution service (§4.4): the
// public entry point that loads the ordered step list, gates a run on
// startup health, runs the scheduling core, and attaches begin/complete/fail
// lifecycle hooks around it.
package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/flowforge/flowforge/runtime/events"
	"github.com/flowforge/flowforge/runtime/health"
	"github.com/flowforge/flowforge/runtime/runner"
	"github.com/flowforge/flowforge/runtime/step"
)

// StepLoader returns the ordered steps to run, failing the call if the
// ordered-step resource or the runtime step registry cannot be reconciled.
type StepLoader[T any] func() ([]step.Step[T], error)

// Service is the public execution entry point composing a Gate, a loader and
// a Runner into the execute_unary/execute_streaming contract of §4.4.
type Service[T any] struct {
	runner        *runner.Runner[T]
	gate          *health.Gate
	loadSteps     StepLoader[T]
	emitter       *events.Emitter
	healthTimeout time.Duration
}

// Option configures a Service.
type Option[T any] func(*Service[T])

// WithEmitter attaches an events.Emitter for run-lifecycle telemetry.
func WithEmitter[T any](emitter *events.Emitter) Option[T] {
	return func(s *Service[T]) {
		s.emitter = emitter
	}
}

// WithHealthAwaitTimeout bounds how long a call waits for the gate to leave
// PENDING. Zero (the default) waits indefinitely for the ctx passed to
// Execute* to be the only bound.
func WithHealthAwaitTimeout[T any](d time.Duration) Option[T] {
	return func(s *Service[T]) {
		s.healthTimeout = d
	}
}

// NewService builds a Service around r and gate, loading the ordered step
// list with loadSteps on every call.
func NewService[T any](r *runner.Runner[T], gate *health.Gate, loadSteps StepLoader[T], opts ...Option[T]) *Service[T] {
	s := &Service[T]{
		runner:    r,
		gate:      gate,
		loadSteps: loadSteps,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle is the caller-facing run handle: a lazy sequence (or, for a unary
// call, a single-item channel) plus an error channel and a cancel function.
// Cancelling propagates to the underlying flow and to all in-flight
// per-item tasks; no results are emitted after cancellation.
type Handle[T any] struct {
	Output         <-chan T
	Err            <-chan error
	OutputIsStream bool
	cancel         context.CancelFunc
}

// Cancel aborts the run. No downstream emissions occur afterward.
func (h *Handle[T]) Cancel() {
	h.cancel()
}

// ExecuteUnary runs the pipeline against a single deferred input value.
func (s *Service[T]) ExecuteUnary(ctx context.Context, input T) (*Handle[T], error) {
	return s.execute(ctx, runner.Unary(input), false)
}

// ExecuteStreaming runs the pipeline against a lazy input sequence.
func (s *Service[T]) ExecuteStreaming(ctx context.Context, input <-chan T) (*Handle[T], error) {
	return s.execute(ctx, input, true)
}

func (s *Service[T]) execute(ctx context.Context, input <-chan T, inputIsStream bool) (*Handle[T], error) {
	steps, err := s.loadSteps()
	if err != nil {
		return nil, fmt.Errorf("execution: loading ordered steps: %w", err)
	}

	healthCtx := ctx
	var cancelHealthCtx context.CancelFunc
	if s.healthTimeout > 0 {
		healthCtx, cancelHealthCtx = context.WithTimeout(ctx, s.healthTimeout)
		defer cancelHealthCtx()
	}
	state, err := s.gate.Await(healthCtx)
	if err != nil {
		return nil, fmt.Errorf("execution: waiting for startup readiness: %w", err)
	}
	if state != health.Healthy {
		return nil, fmt.Errorf("execution: refusing to start, startup state is %s", state)
	}

	// The requested shape (unary vs streaming) is fixed by which entry point
	// the caller used and is therefore a Go-compile-time guarantee rather
	// than a runtime check: ExecuteUnary accepts a T, ExecuteStreaming a
	// <-chan T, so there is no way to construct a call whose input shape
	// disagrees with the method chosen.

	runCtx, cancel := context.WithCancel(ctx)

	parallelism := "AUTO"
	if s.runner != nil {
		parallelism = s.runner.Policy().String()
	}
	s.emitRunStarted(len(steps), parallelism)
	start := time.Now()

	result, err := s.runner.Run(runCtx, input, inputIsStream, steps)
	if err != nil {
		cancel()
		s.emitRunFailed(err, time.Since(start))
		return nil, fmt.Errorf("execution: starting run: %w", err)
	}

	output := make(chan T)
	errOut := make(chan error, 1)
	go s.trackLifecycle(start, len(steps), result, output, errOut)

	return &Handle[T]{
		Output:         output,
		Err:            errOut,
		OutputIsStream: result.OutputIsStream,
		cancel:         cancel,
	}, nil
}

func (s *Service[T]) trackLifecycle(start time.Time, stepCount int, result *runner.Result[T], output chan<- T, errOut chan<- error) {
	defer close(output)
	defer close(errOut)

	consumed := 0
	for v := range result.Output {
		consumed++
		output <- v
	}

	runErr := <-result.Err
	if runErr != nil {
		s.emitRunFailed(runErr, time.Since(start))
		errOut <- runErr
		return
	}
	s.emitRunCompleted(time.Since(start), consumed, consumed, stepCount)
}

func (s *Service[T]) emitRunStarted(stepCount int, parallelism string) {
	if s.emitter != nil {
		s.emitter.RunStarted(stepCount, parallelism)
	}
}

func (s *Service[T]) emitRunCompleted(d time.Duration, consumed, produced, stepCount int) {
	if s.emitter != nil {
		s.emitter.RunCompleted(d, consumed, produced, stepCount)
	}
}

func (s *Service[T]) emitRunFailed(err error, d time.Duration) {
	if s.emitter != nil {
		s.emitter.RunFailed(err, d)
	}
}
