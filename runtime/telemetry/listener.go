package telemetry

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flowforge/flowforge/runtime/events"
)

// spanEntry tracks an in-flight span and its context.
type spanEntry struct {
	span trace.Span
	ctx  context.Context //nolint:containedctx // needed to parent child spans
}

// runState tracks the root span for a pipeline run.
type runState struct {
	span trace.Span
	ctx  context.Context //nolint:containedctx // needed to parent child spans
}

// pendingEnd buffers a span completion that arrived before the corresponding start.
// The EventBus dispatches each Publish() through a worker pool, so completion
// events can race ahead of start events.
type pendingEnd struct {
	errMsg string // empty means success
	attrs  []attribute.KeyValue
}

// OTelEventListener converts pipeline runtime events into OTel spans in real time,
// implementing per-item tracing (telemetry.tracing.per-item). It implements the
// events.Listener function signature via its OnEvent method. It is safe for
// concurrent use and tolerates out-of-order event delivery.
type OTelEventListener struct {
	tracer trace.Tracer

	mu          sync.Mutex
	runs        map[string]*runState   // runID → root span + ctx
	inflight    map[string]*spanEntry  // "run_exec:<runID>" or "step:<runID>:<step>:<index>" → span + ctx
	pendingEnds map[string]*pendingEnd // buffered completions for out-of-order delivery
}

// NewOTelEventListener creates a listener that creates OTel spans from runtime events.
func NewOTelEventListener(tracer trace.Tracer) *OTelEventListener {
	return &OTelEventListener{
		tracer:      tracer,
		runs:        make(map[string]*runState),
		inflight:    make(map[string]*spanEntry),
		pendingEnds: make(map[string]*pendingEnd),
	}
}

// StartRun creates a root span for the given run, optionally parented under
// the span context in parentCtx.
func (l *OTelEventListener) StartRun(parentCtx context.Context, runID string) {
	ctx, span := l.tracer.Start(parentCtx, "flowforge.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("run.id", runID)),
	)
	l.mu.Lock()
	l.runs[runID] = &runState{span: span, ctx: ctx}
	l.mu.Unlock()
}

// EndRun ends the root span for the given run. Idempotent: a second call for
// the same runID is a no-op.
func (l *OTelEventListener) EndRun(runID string) {
	l.mu.Lock()
	rs, ok := l.runs[runID]
	if ok {
		delete(l.runs, runID)
	}
	l.mu.Unlock()
	if ok {
		rs.span.End()
	}
}

// OnEvent handles a single runtime event and creates/completes OTel spans accordingly.
// It is safe for concurrent use and can be passed to EventBus.SubscribeAll.
func (l *OTelEventListener) OnEvent(evt *events.Event) {
	//nolint:exhaustive // only handling span-producing events
	switch evt.Type {
	case events.EventRunStarted:
		l.startRunExecution(evt)
	case events.EventRunCompleted:
		l.completeRunExecution(evt)
	case events.EventRunFailed:
		l.failRunExecution(evt)
	case events.EventStepStarted:
		l.startStep(evt)
	case events.EventStepCompleted:
		l.completeStep(evt)
	case events.EventStepFailed:
		l.failStep(evt)
	case events.EventRetryAttempted:
		l.annotateRetry(evt)
	case events.EventBackpressureEngaged:
		l.annotateBackpressure(evt)
	case events.EventCacheDecision:
		l.annotateCacheDecision(evt)
	case events.EventKillSwitchTriggered:
		l.annotateKillSwitch(evt)
	case events.EventHealthTransition:
		l.annotateHealthTransition(evt)
	}
}

// runCtx returns the context for the run (to parent child spans).
// Falls back to context.Background() if the run is unknown.
func (l *OTelEventListener) runCtx(runID string) context.Context {
	l.mu.Lock()
	defer l.mu.Unlock()
	if rs, ok := l.runs[runID]; ok {
		return rs.ctx
	}
	return context.Background()
}

func stepKey(runID, step string, index int) string {
	return fmt.Sprintf("step:%s:%s:%d", runID, step, index)
}

// startSpan starts a span parented under parentCtx and stores it in inflight
// keyed by key. If a completion was already buffered (out-of-order delivery),
// the span is immediately ended.
func (l *OTelEventListener) startSpan(
	parentCtx context.Context, key, name string, kind trace.SpanKind, attrs ...attribute.KeyValue,
) {
	ctx, span := l.tracer.Start(parentCtx, name,
		trace.WithSpanKind(kind),
		trace.WithAttributes(attrs...),
	)
	l.mu.Lock()
	pe, havePending := l.pendingEnds[key]
	if havePending {
		delete(l.pendingEnds, key)
	} else {
		l.inflight[key] = &spanEntry{span: span, ctx: ctx}
	}
	l.mu.Unlock()

	if havePending {
		span.SetAttributes(pe.attrs...)
		if pe.errMsg != "" {
			span.SetStatus(codes.Error, pe.errMsg)
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// endSpan ends an inflight span and removes it from the map.
// If the span hasn't started yet (out-of-order delivery), the completion is
// buffered and will be applied when startSpan creates the span.
func (l *OTelEventListener) endSpan(key string, attrs ...attribute.KeyValue) {
	l.mu.Lock()
	entry, ok := l.inflight[key]
	if ok {
		delete(l.inflight, key)
	} else {
		l.pendingEnds[key] = &pendingEnd{attrs: attrs}
	}
	l.mu.Unlock()
	if !ok {
		return
	}
	entry.span.SetAttributes(attrs...)
	entry.span.SetStatus(codes.Ok, "")
	entry.span.End()
}

// failSpan ends an inflight span with an error status.
// If the span hasn't started yet (out-of-order delivery), the failure is
// buffered and will be applied when startSpan creates the span.
func (l *OTelEventListener) failSpan(key, errMsg string, attrs ...attribute.KeyValue) {
	l.mu.Lock()
	entry, ok := l.inflight[key]
	if ok {
		delete(l.inflight, key)
	} else {
		l.pendingEnds[key] = &pendingEnd{errMsg: errMsg, attrs: attrs}
	}
	l.mu.Unlock()
	if !ok {
		return
	}
	entry.span.SetAttributes(attrs...)
	entry.span.SetStatus(codes.Error, errMsg)
	entry.span.End()
}

// annotationTarget finds the in-flight step span for runID+step, regardless
// of which invocation index is active, via a prefix scan over the inflight
// map (retry/backpressure/cache/health events carry no index of their own).
func (l *OTelEventListener) annotationTarget(runID, step string) (trace.Span, bool) {
	prefix := fmt.Sprintf("step:%s:%s:", runID, step)
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, e := range l.inflight {
		if strings.HasPrefix(k, prefix) {
			return e.span, true
		}
	}
	return nil, false
}

// annotate records a span event on the active step span for runID+step, or
// on the run's root span if no step span is currently active.
func (l *OTelEventListener) annotate(runID, step, name string, attrs ...attribute.KeyValue) {
	if span, ok := l.annotationTarget(runID, step); ok {
		span.AddEvent(name, trace.WithAttributes(attrs...))
		return
	}
	l.mu.Lock()
	rs, ok := l.runs[runID]
	l.mu.Unlock()
	if ok {
		rs.span.AddEvent(name, trace.WithAttributes(attrs...))
	}
}

// asPtr extracts event data as a pointer, handling both value and pointer types.
// The emitter may pass either T or *T depending on the event.
func asPtr[T any](data any) (*T, bool) {
	if p, ok := data.(*T); ok {
		return p, true
	}
	if v, ok := data.(T); ok {
		return &v, true
	}
	return nil, false
}

// --- Run execution ---

func (l *OTelEventListener) startRunExecution(evt *events.Event) {
	var attrs []attribute.KeyValue
	if data, ok := asPtr[events.RunStartedData](evt.Data); ok {
		attrs = append(attrs,
			attribute.Int("run.step_count", data.StepCount),
			attribute.String("run.parallelism", data.Parallelism),
		)
	}
	l.startSpan(l.runCtx(evt.RunID), "run_exec:"+evt.RunID, "flowforge.run.execution",
		trace.SpanKindInternal, attrs...)
}

func (l *OTelEventListener) completeRunExecution(evt *events.Event) {
	data, ok := asPtr[events.RunCompletedData](evt.Data)
	if !ok {
		return
	}
	l.endSpan("run_exec:"+evt.RunID,
		attribute.Int64("run.duration_ms", data.Duration.Milliseconds()),
		attribute.Int("run.items_consumed", data.ItemsConsumed),
		attribute.Int("run.items_produced", data.ItemsProduced),
		attribute.Int("run.step_count", data.StepCount),
	)
}

func (l *OTelEventListener) failRunExecution(evt *events.Event) {
	data, ok := asPtr[events.RunFailedData](evt.Data)
	if !ok {
		return
	}
	l.failSpan("run_exec:"+evt.RunID, data.Error.Error(),
		attribute.Int64("run.duration_ms", data.Duration.Milliseconds()),
	)
}

// --- Step ---

func (l *OTelEventListener) startStep(evt *events.Event) {
	data, ok := asPtr[events.StepStartedData](evt.Data)
	if !ok {
		return
	}
	l.startSpan(l.runCtx(evt.RunID), stepKey(evt.RunID, data.Step, data.Index), "flowforge.step."+data.Step,
		trace.SpanKindInternal,
		attribute.String("step.name", data.Step),
		attribute.String("step.shape", data.Shape),
		attribute.Int("step.index", data.Index),
	)
}

func (l *OTelEventListener) completeStep(evt *events.Event) {
	data, ok := asPtr[events.StepCompletedData](evt.Data)
	if !ok {
		return
	}
	l.endSpan(stepKey(evt.RunID, data.Step, data.Index),
		attribute.Int64("step.duration_ms", data.Duration.Milliseconds()),
	)
}

func (l *OTelEventListener) failStep(evt *events.Event) {
	data, ok := asPtr[events.StepFailedData](evt.Data)
	if !ok {
		return
	}
	l.failSpan(stepKey(evt.RunID, data.Step, data.Index), data.Error.Error(),
		attribute.Int64("step.duration_ms", data.Duration.Milliseconds()),
		attribute.Int("step.attempt", data.Attempt),
	)
}

// --- Point-in-time annotations ---

func (l *OTelEventListener) annotateRetry(evt *events.Event) {
	data, ok := asPtr[events.RetryAttemptedData](evt.Data)
	if !ok {
		return
	}
	l.annotate(evt.RunID, data.Step, "step.retry_attempted",
		attribute.Int("retry.attempt", data.Attempt),
		attribute.Int("retry.limit", data.RetryLimit),
		attribute.Int64("retry.backoff_ms", data.Backoff.Milliseconds()),
	)
}

func (l *OTelEventListener) annotateBackpressure(evt *events.Event) {
	data, ok := asPtr[events.BackpressureEngagedData](evt.Data)
	if !ok {
		return
	}
	l.annotate(evt.RunID, data.Step, "step.backpressure_engaged",
		attribute.String("backpressure.strategy", data.Strategy),
		attribute.Int("backpressure.buffer_depth", data.BufferDepth),
		attribute.Int("backpressure.buffer_cap", data.BufferCap),
		attribute.Int("backpressure.items_dropped", data.ItemsDropped),
	)
}

func (l *OTelEventListener) annotateCacheDecision(evt *events.Event) {
	data, ok := asPtr[events.CacheDecisionData](evt.Data)
	if !ok {
		return
	}
	l.annotate(evt.RunID, data.Step, "step.cache_decision",
		attribute.String("cache.policy", data.Policy),
		attribute.Bool("cache.hit", data.Hit),
		attribute.Bool("cache.bypassed", data.Bypassed),
	)
}

func (l *OTelEventListener) annotateKillSwitch(evt *events.Event) {
	data, ok := asPtr[events.KillSwitchTriggeredData](evt.Data)
	if !ok {
		return
	}
	l.annotate(evt.RunID, data.Step, "run.kill_switch_triggered",
		attribute.Float64("kill_switch.retry_rate", data.RetryRate),
		attribute.Float64("kill_switch.threshold", data.Threshold),
		attribute.Int64("kill_switch.window_ms", data.WindowSize.Milliseconds()),
		attribute.Bool("kill_switch.fail_fast", data.FailFast),
	)
}

func (l *OTelEventListener) annotateHealthTransition(evt *events.Event) {
	data, ok := asPtr[events.HealthTransitionData](evt.Data)
	if !ok {
		return
	}
	l.annotate(evt.RunID, data.Step, "step.health_transition",
		attribute.String("health.from", data.From),
		attribute.String("health.to", data.To),
	)
}
