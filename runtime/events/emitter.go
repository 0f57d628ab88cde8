package events

import "time"

// Emitter provides helpers for publishing runtime events with shared metadata.
type Emitter struct {
	bus          *EventBus
	runID        string
	sessionID    string
	orchestrator string
}

// NewEmitter creates a new event emitter.
func NewEmitter(bus *EventBus, runID, sessionID, orchestrator string) *Emitter {
	return &Emitter{
		bus:          bus,
		runID:        runID,
		sessionID:    sessionID,
		orchestrator: orchestrator,
	}
}

// emit publishes an event with shared context fields.
func (e *Emitter) emit(eventType EventType, data EventData) {
	if e == nil || e.bus == nil {
		return
	}

	event := &Event{
		Type:         eventType,
		Timestamp:    time.Now(),
		RunID:        e.runID,
		SessionID:    e.sessionID,
		Orchestrator: e.orchestrator,
		Data:         data,
	}

	e.bus.Publish(event)
}

// RunStarted emits the run.started event.
func (e *Emitter) RunStarted(stepCount int, parallelism string) {
	e.emit(EventRunStarted, RunStartedData{
		StepCount:   stepCount,
		Parallelism: parallelism,
	})
}

// RunCompleted emits the run.completed event.
func (e *Emitter) RunCompleted(duration time.Duration, itemsConsumed, itemsProduced, stepCount int) {
	e.emit(EventRunCompleted, RunCompletedData{
		Duration:      duration,
		ItemsConsumed: itemsConsumed,
		ItemsProduced: itemsProduced,
		StepCount:     stepCount,
	})
}

// RunFailed emits the run.failed event.
func (e *Emitter) RunFailed(err error, duration time.Duration) {
	e.emit(EventRunFailed, RunFailedData{
		Error:    err,
		Duration: duration,
	})
}

// StepStarted emits the step.started event.
func (e *Emitter) StepStarted(step, shape string, index int) {
	e.emit(EventStepStarted, StepStartedData{
		Step:  step,
		Shape: shape,
		Index: index,
	})
}

// StepCompleted emits the step.completed event.
func (e *Emitter) StepCompleted(step string, index int, duration time.Duration) {
	e.emit(EventStepCompleted, StepCompletedData{
		Step:     step,
		Index:    index,
		Duration: duration,
	})
}

// StepFailed emits the step.failed event.
func (e *Emitter) StepFailed(step string, index int, err error, duration time.Duration, attempt int) {
	e.emit(EventStepFailed, StepFailedData{
		Step:     step,
		Index:    index,
		Error:    err,
		Duration: duration,
		Attempt:  attempt,
	})
}

// RetryAttempted emits the step.retry_attempted event.
func (e *Emitter) RetryAttempted(step string, attempt, retryLimit int, backoff time.Duration, err error) {
	e.emit(EventRetryAttempted, RetryAttemptedData{
		Step:       step,
		Attempt:    attempt,
		RetryLimit: retryLimit,
		Backoff:    backoff,
		Error:      err,
	})
}

// BackpressureEngaged emits the step.backpressure_engaged event.
func (e *Emitter) BackpressureEngaged(step, strategy string, bufferDepth, bufferCap, itemsDropped int) {
	e.emit(EventBackpressureEngaged, BackpressureEngagedData{
		Step:         step,
		Strategy:     strategy,
		BufferDepth:  bufferDepth,
		BufferCap:    bufferCap,
		ItemsDropped: itemsDropped,
	})
}

// CacheDecision emits the step.cache_decision event.
func (e *Emitter) CacheDecision(step, policy string, hit, bypassed bool) {
	e.emit(EventCacheDecision, CacheDecisionData{
		Step:     step,
		Policy:   policy,
		Hit:      hit,
		Bypassed: bypassed,
	})
}

// KillSwitchTriggered emits the run.kill_switch_triggered event.
func (e *Emitter) KillSwitchTriggered(step string, retryRate, threshold float64, windowSize time.Duration, failFast bool) {
	e.emit(EventKillSwitchTriggered, KillSwitchTriggeredData{
		Step:       step,
		RetryRate:  retryRate,
		Threshold:  threshold,
		WindowSize: windowSize,
		FailFast:   failFast,
	})
}

// HealthTransition emits the step.health_transition event.
func (e *Emitter) HealthTransition(step, from, to string) {
	e.emit(EventHealthTransition, HealthTransitionData{
		Step: step,
		From: from,
		To:   to,
	})
}

// EmitCustom allows pipeline components to emit arbitrary event types with structured payloads.
func (e *Emitter) EmitCustom(
	eventType EventType,
	source, eventName string,
	data map[string]interface{},
	message string,
) {
	e.emit(eventType, CustomEventData{
		Source:    source,
		EventName: eventName,
		Data:      data,
		Message:   message,
	})
}
