package runner

import (
	"context"
	"sync"
	"time"

	"github.com/flowforge/flowforge/runtime/events"
	"github.com/flowforge/flowforge/runtime/step"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Runner composes an ordered list of steps into a reactive flow, honoring
// shape adaptation, parallelism resolution, backpressure, retry/backoff and
// DLQ recovery. A Runner is safe to reuse across Run invocations; each Run
// owns its own cancellation and error-reporting state.
type Runner[T any] struct {
	policy         step.Policy
	perStepPolicy  map[string]step.Policy
	maxConcurrency int
	emitter        *events.Emitter
	cache          CacheEnforcer[T]
	warn           func(msg string, args ...any)
	dropWarnLimit  *rate.Limiter
}

// Option configures a Runner.
type Option[T any] func(*Runner[T])

// WithPolicy sets the global parallelism policy (default AUTO).
func WithPolicy[T any](p step.Policy) Option[T] {
	return func(r *Runner[T]) { r.policy = p }
}

// WithPerStepPolicy overrides the policy for one named step. Per-step
// overrides win over the global policy.
func WithPerStepPolicy[T any](stepName string, p step.Policy) Option[T] {
	return func(r *Runner[T]) {
		if r.perStepPolicy == nil {
			r.perStepPolicy = make(map[string]step.Policy)
		}
		r.perStepPolicy[stepName] = p
	}
}

// WithMaxConcurrency sets the bounded-concurrency limit for parallel steps.
// Values below 1 are clamped to 1.
func WithMaxConcurrency[T any](n int) Option[T] {
	return func(r *Runner[T]) { r.maxConcurrency = clampConcurrency(n) }
}

// WithEmitter attaches an event emitter for lifecycle and telemetry events.
func WithEmitter[T any](e *events.Emitter) Option[T] {
	return func(r *Runner[T]) { r.emitter = e }
}

// WithCacheEnforcer attaches the cache policy enforcer (§4.5). Without one,
// unary-output items pass through unmodified.
func WithCacheEnforcer[T any](c CacheEnforcer[T]) Option[T] {
	return func(r *Runner[T]) { r.cache = c }
}

// WithWarnFunc attaches a structured warning logger used for non-fatal
// conditions (order reconciliation, advisory/override parallelism logs).
func WithWarnFunc[T any](fn func(msg string, args ...any)) Option[T] {
	return func(r *Runner[T]) { r.warn = fn }
}

// WithDropWarnRateLimit throttles the warning logged when the DROP
// backpressure strategy discards items, so a fast producer racing ahead of
// a stalled step cannot flood the log. Default: 1 warning/second, burst 1.
func WithDropWarnRateLimit[T any](eventsPerSecond float64, burst int) Option[T] {
	return func(r *Runner[T]) { r.dropWarnLimit = rate.NewLimiter(rate.Limit(eventsPerSecond), burst) }
}

// New creates a Runner with spec defaults (AUTO policy, max_concurrency=128).
func New[T any](opts ...Option[T]) *Runner[T] {
	r := &Runner[T]{
		policy:         step.Auto,
		maxConcurrency: 128,
		cache:          passthroughEnforcer[T]{},
		dropWarnLimit:  rate.NewLimiter(rate.Limit(1), 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = passthroughEnforcer[T]{}
	}
	r.maxConcurrency = clampConcurrency(r.maxConcurrency)
	return r
}

// Policy returns the Runner's global parallelism policy.
func (r *Runner[T]) Policy() step.Policy {
	return r.policy
}

func (r *Runner[T]) policyFor(stepName string) step.Policy {
	if p, ok := r.perStepPolicy[stepName]; ok {
		return p
	}
	return r.policy
}

func (r *Runner[T]) logWarn(msg string, args ...any) {
	if r.warn != nil {
		r.warn(msg, args...)
	}
}

// Unary wraps a single deferred value as a one-element, already-closed
// channel, suitable as a Run source for a unary entry point.
func Unary[T any](v T) <-chan T {
	ch := make(chan T, 1)
	ch <- v
	close(ch)
	return ch
}

// Result is the outcome of a Run: a channel of produced items and a channel
// that receives at most one error (the first fatal failure) before both
// channels close. Consumers should drain Output and select on Err.
type Result[T any] struct {
	Output         <-chan T
	Err            <-chan error
	OutputIsStream bool
}

// execution carries the per-Run cancellation and error-reporting state.
type execution[T any] struct {
	r       *Runner[T]
	ctx     context.Context
	cancel  context.CancelFunc
	errCh   chan error
	errOnce sync.Once
	wg      sync.WaitGroup // every stage goroutine in the chain
}

func (e *execution[T]) fail(err error) {
	if err == nil {
		return
	}
	e.errOnce.Do(func() {
		e.errCh <- err
		close(e.errCh)
		e.cancel()
	})
}

// Run composes steps into a reactive flow over input. inputIsStream
// declares whether input is a genuine lazy sequence (true) or a
// single-deferred-value channel produced by Unary (false); this seeds the
// shape-adaptation state machine. Policy/thread-safety configuration
// errors are returned immediately, before any item is processed.
func (r *Runner[T]) Run(ctx context.Context, input <-chan T, inputIsStream bool, steps []step.Step[T]) (*Result[T], error) {
	decisions := make([]decision, len(steps))
	for i, s := range steps {
		dec, err := resolveParallel(s.Hints(), r.policyFor(s.Name()), s.Shape())
		if err != nil {
			return nil, err
		}
		decisions[i] = dec
		if dec.advisoryLog {
			r.logWarn("strict-advised ordering forced sequential execution under AUTO policy", "step", s.Name())
		}
		if dec.overrideLog {
			r.logWarn("strict-advised ordering overridden by explicit PARALLEL policy", "step", s.Name())
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	ex := &execution[T]{r: r, ctx: runCtx, cancel: cancel, errCh: make(chan error, 1)}

	current := input
	currentIsStream := inputIsStream

	for i, s := range steps {
		cfg := s.Config()
		bpIn := ex.wrapBackpressure(current, cfg, s.Name())

		var out <-chan T
		if s.Shape().InputIsStream() {
			out = ex.runStreamInputStep(s, bpIn, i)
		} else {
			out = ex.runUnaryInputStep(s, bpIn, decisions[i], i)
		}

		if !s.Shape().OutputIsStream() {
			out = ex.applyCache(s.Name(), out)
		}

		current = out
		currentIsStream = s.Shape().OutputIsStream()
	}

	go func() {
		// Waits for every stage goroutine in the chain to finish, whether
		// by normal completion or by cancellation triggered by a fatal
		// item/step failure, then signals success if none was reported.
		ex.wg.Wait()
		ex.errOnce.Do(func() { close(ex.errCh) })
		cancel()
	}()

	return &Result[T]{Output: current, Err: ex.errCh, OutputIsStream: currentIsStream}, nil
}

// wrapBackpressure applies the step's configured backpressure strategy to
// the channel feeding its input.
func (e *execution[T]) wrapBackpressure(in <-chan T, cfg step.Config, stepName string) <-chan T {
	out := make(chan T, cfg.BackpressureBufferCapacity)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer close(out)
		dropped := 0
		for {
			select {
			case v, ok := <-in:
				if !ok {
					return
				}
				switch cfg.BackpressureStrategy {
				case step.Drop:
					select {
					case out <- v:
					default:
						dropped++
						e.r.emitBackpressure(stepName, cfg, len(out), dropped)
						if e.r.dropWarnLimit.Allow() {
							e.r.logWarn("backpressure DROP strategy discarded an item", "step", stepName, "items_dropped", dropped)
						}
					}
				default: // step.Buffer
					if len(out) == cap(out) {
						e.r.emitBackpressure(stepName, cfg, len(out), 0)
					}
					select {
					case out <- v:
					case <-e.ctx.Done():
						return
					}
				}
			case <-e.ctx.Done():
				return
			}
		}
	}()
	return out
}

func (r *Runner[T]) emitBackpressure(stepName string, cfg step.Config, depth, itemsDropped int) {
	if r.emitter == nil {
		return
	}
	r.emitter.BackpressureEngaged(stepName, cfg.BackpressureStrategy.String(), depth, cfg.BackpressureBufferCapacity, itemsDropped)
}

// applyCache runs each unary-output item through the configured cache
// policy enforcer before the next step receives it. A per-item cache
// enforcement error (e.g. a REQUIRE_CACHE/CACHE_ONLY miss) only fails that
// item; it is not a run-scoped failure and must not cancel the run or the
// downstream steps still waiting on other items.
func (e *execution[T]) applyCache(stepName string, in <-chan T) <-chan T {
	out := make(chan T)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer close(out)
		for v := range in {
			result, keep, err := e.r.cache.Enforce(e.ctx, stepName, v)
			if err != nil {
				e.r.logWarn("cache enforcement failed; dropping item", "step", stepName, "error", err.Error())
				continue
			}
			if !keep {
				continue
			}
			select {
			case out <- result:
			case <-e.ctx.Done():
				return
			}
		}
	}()
	return out
}

// runStreamInputStep invokes a stream-input step once over the whole
// channel. To support retry-by-replay, the input is first fully
// materialized into a slice (consistent with the runtime's documented
// blocking-variant adaptation at shape boundaries).
func (e *execution[T]) runStreamInputStep(s step.Step[T], in <-chan T, index int) <-chan T {
	out := make(chan T, s.Config().BackpressureBufferCapacity)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer close(out)

		var buffered []T
		for v := range in {
			buffered = append(buffered, v)
		}

		start := time.Now()
		e.r.emitStepStarted(s, index)

		var produced []T
		err := withRetry(e.ctx, s.Config(), func(attempt int) error {
			produced = nil
			itemIn := make(chan T, len(buffered))
			for _, v := range buffered {
				itemIn <- v
			}
			close(itemIn)

			itemOut := make(chan T, cap(out))
			done := make(chan error, 1)
			go func() { done <- s.Apply(e.ctx, itemIn, itemOut) }()

			for v := range itemOut {
				produced = append(produced, v)
			}
			applyErr := <-done
			if applyErr != nil {
				return step.NewError(s.Name(), s.Shape(), attempt, applyErr)
			}
			return nil
		}, func(attempt int, backoff time.Duration, retryErr error) {
			e.r.emitRetry(s, attempt, backoff, retryErr)
		})

		duration := time.Since(start)
		if err != nil {
			e.r.emitStepFailed(s, index, err, duration, s.Config().RetryLimit+1)
			if s.Config().RecoverOnFailure {
				e.r.logWarn("recover_on_failure is not applicable to stream-input step failures; propagating", "step", s.Name())
			}
			e.fail(err)
			return
		}
		e.r.emitStepCompleted(s, index, duration)

		for _, v := range produced {
			select {
			case out <- v:
			case <-e.ctx.Done():
				return
			}
		}
	}()
	return out
}

// runUnaryInputStep invokes a unary-input step once per item read from in.
// When the upstream shape is a stream, this is the fan-out case; a single
// item from a unary upstream produces exactly one invocation. Parallel
// invocations are bounded by max_concurrency; sequential invocations
// preserve arrival order.
func (e *execution[T]) runUnaryInputStep(s step.Step[T], in <-chan T, dec decision, index int) <-chan T {
	out := make(chan T, s.Config().BackpressureBufferCapacity)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer close(out)

		if dec.parallel {
			e.runUnaryInputParallel(s, in, out, index)
		} else {
			e.runUnaryInputSequential(s, in, out, index)
		}
	}()

	return out
}

func (e *execution[T]) runUnaryInputSequential(s step.Step[T], in <-chan T, out chan<- T, index int) {
	for v := range in {
		select {
		case <-e.ctx.Done():
			return
		default:
		}
		produced, err := e.invokeUnary(s, v, index)
		if err != nil {
			if replacement, emit := e.handleItemFailure(s, v, err); emit {
				select {
				case out <- replacement:
				case <-e.ctx.Done():
					return
				}
			}
			continue
		}
		for _, p := range produced {
			select {
			case out <- p:
			case <-e.ctx.Done():
				return
			}
		}
	}
}

func (e *execution[T]) runUnaryInputParallel(s step.Step[T], in <-chan T, out chan<- T, index int) {
	sem := semaphore.NewWeighted(int64(e.r.maxConcurrency))
	var wg sync.WaitGroup

	for v := range in {
		select {
		case <-e.ctx.Done():
			wg.Wait()
			return
		default:
		}
		if err := sem.Acquire(e.ctx, 1); err != nil {
			wg.Wait()
			return
		}

		wg.Add(1)
		go func(item T) {
			defer wg.Done()
			defer sem.Release(1)

			produced, err := e.invokeUnary(s, item, index)
			if err != nil {
				if replacement, emit := e.handleItemFailure(s, item, err); emit {
					select {
					case out <- replacement:
					case <-e.ctx.Done():
					}
				}
				return
			}
			for _, p := range produced {
				select {
				case out <- p:
				case <-e.ctx.Done():
					return
				}
			}
		}(v)
	}
	wg.Wait()
}

// invokeUnary applies s to a single item, with retry/backoff, returning the
// items the step produced (one for unary-output shapes, zero-or-more for
// unary-in-stream-out shapes).
func (e *execution[T]) invokeUnary(s step.Step[T], item T, index int) ([]T, error) {
	start := time.Now()
	e.r.emitStepStarted(s, index)

	var produced []T
	err := withRetry(e.ctx, s.Config(), func(attempt int) error {
		produced = nil
		itemIn := make(chan T, 1)
		itemIn <- item
		close(itemIn)

		itemOut := make(chan T, 8)
		done := make(chan error, 1)
		go func() { done <- s.Apply(e.ctx, itemIn, itemOut) }()

		for v := range itemOut {
			produced = append(produced, v)
		}
		applyErr := <-done
		if applyErr != nil {
			return step.NewError(s.Name(), s.Shape(), attempt, applyErr)
		}
		return nil
	}, func(attempt int, backoff time.Duration, retryErr error) {
		e.r.emitRetry(s, attempt, backoff, retryErr)
	})

	duration := time.Since(start)
	if err != nil {
		e.r.emitStepFailed(s, index, err, duration, s.Config().RetryLimit+1)
		return nil, err
	}
	e.r.emitStepCompleted(s, index, duration)
	return produced, nil
}

// handleItemFailure consults the step's DLQ capability (if any) after
// retries are exhausted. When the DLQ produces a replacement, it returns the
// replacement with emit=true so the caller can forward it downstream in
// place of the failed item; absent recovery, the item is dropped with a
// warning per the default step contract.
func (e *execution[T]) handleItemFailure(s step.Step[T], item T, cause error) (replacement T, emit bool) {
	if !s.Config().RecoverOnFailure {
		e.r.logWarn("step failed after exhausting retries; dropping item", "step", s.Name(), "error", cause.Error())
		return replacement, false
	}

	dlq, ok := step.AsDeadLetterQueue[T](s)
	if !ok {
		e.r.logWarn("recover_on_failure set but step does not implement DeadLetterQueue; dropping item", "step", s.Name())
		return replacement, false
	}

	replacement, recovered, err := dlq.Recover(e.ctx, item, cause)
	if err != nil {
		e.r.logWarn("dead-letter recovery failed; dropping item", "step", s.Name(), "error", err.Error())
		return replacement, false
	}
	if !recovered {
		e.r.logWarn("dead-letter recovery declined to produce a replacement; dropping item", "step", s.Name())
		return replacement, false
	}
	return replacement, true
}

func (r *Runner[T]) emitStepStarted(s step.Step[T], index int) {
	if r.emitter == nil {
		return
	}
	r.emitter.StepStarted(s.Name(), s.Shape().String(), index)
}

func (r *Runner[T]) emitStepCompleted(s step.Step[T], index int, duration time.Duration) {
	if r.emitter == nil {
		return
	}
	r.emitter.StepCompleted(s.Name(), index, duration)
}

func (r *Runner[T]) emitStepFailed(s step.Step[T], index int, err error, duration time.Duration, attempt int) {
	if r.emitter == nil {
		return
	}
	r.emitter.StepFailed(s.Name(), index, err, duration, attempt)
}

func (r *Runner[T]) emitRetry(s step.Step[T], attempt int, backoff time.Duration, err error) {
	if r.emitter == nil {
		return
	}
	r.emitter.RetryAttempted(s.Name(), attempt, s.Config().RetryLimit, backoff, err)
}
