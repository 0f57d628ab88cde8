// Package prometheus provides Prometheus metrics exporters for flowforge pipeline runs.
package prometheus

import (
	"github.com/flowforge/flowforge/runtime/events"
)

// Status constants for metric labels.
const (
	statusSuccess = "success"
	statusError   = "error"

	outcomeSuccess = "success"
	outcomeFailed  = "failed"
	outcomeDropped = "dropped"
)

// MetricsListener records pipeline runtime events as Prometheus metrics.
// It implements the events.Listener signature and should be registered
// with an EventBus using SubscribeAll.
type MetricsListener struct{}

// NewMetricsListener creates a new MetricsListener.
func NewMetricsListener() *MetricsListener {
	return &MetricsListener{}
}

// Handle processes an event and records relevant metrics.
// This method is designed to be used with EventBus.SubscribeAll.
func (l *MetricsListener) Handle(event *events.Event) {
	//exhaustive:ignore
	switch event.Type {
	case events.EventRunStarted:
		RecordRunStart()
	case events.EventRunCompleted:
		l.handleRunCompleted(event)
	case events.EventRunFailed:
		l.handleRunFailed(event)
	case events.EventStepCompleted:
		l.handleStepCompleted(event)
	case events.EventStepFailed:
		l.handleStepFailed(event)
	case events.EventRetryAttempted:
		l.handleRetryAttempted(event)
	case events.EventBackpressureEngaged:
		l.handleBackpressureEngaged(event)
	case events.EventCacheDecision:
		l.handleCacheDecision(event)
	case events.EventKillSwitchTriggered:
		l.handleKillSwitchTriggered(event)
	case events.EventHealthTransition:
		l.handleHealthTransition(event)
	default:
		// Ignore events that don't have metrics.
	}
}

func (l *MetricsListener) handleRunCompleted(event *events.Event) {
	data, ok := asData[events.RunCompletedData](event.Data)
	if !ok {
		return
	}
	RecordRunEnd(statusSuccess, data.Duration.Seconds())
	RecordItemsConsumed(statusSuccess, data.ItemsConsumed)
	RecordItemsProduced(statusSuccess, data.ItemsProduced)
}

func (l *MetricsListener) handleRunFailed(event *events.Event) {
	data, ok := asData[events.RunFailedData](event.Data)
	if !ok {
		return
	}
	RecordRunEnd(statusError, data.Duration.Seconds())
}

func (l *MetricsListener) handleStepCompleted(event *events.Event) {
	data, ok := asData[events.StepCompletedData](event.Data)
	if !ok {
		return
	}
	RecordStepDuration(data.Step, data.Duration.Seconds())
	RecordStepElement(data.Step, statusSuccess)
	RecordItemOutcome(data.Step, outcomeSuccess)
}

func (l *MetricsListener) handleStepFailed(event *events.Event) {
	data, ok := asData[events.StepFailedData](event.Data)
	if !ok {
		return
	}
	RecordStepDuration(data.Step, data.Duration.Seconds())
	RecordStepElement(data.Step, statusError)
	RecordItemOutcome(data.Step, outcomeFailed)
}

func (l *MetricsListener) handleRetryAttempted(event *events.Event) {
	data, ok := asData[events.RetryAttemptedData](event.Data)
	if !ok {
		return
	}
	RecordStepRetry(data.Step)
}

func (l *MetricsListener) handleBackpressureEngaged(event *events.Event) {
	data, ok := asData[events.BackpressureEngagedData](event.Data)
	if !ok {
		return
	}
	SetBackpressureBufferDepth(data.Step, float64(data.BufferDepth))
	RecordBackpressureItemsDropped(data.Step, data.ItemsDropped)
	if data.ItemsDropped > 0 {
		RecordItemOutcome(data.Step, outcomeDropped)
	}
}

func (l *MetricsListener) handleCacheDecision(event *events.Event) {
	data, ok := asData[events.CacheDecisionData](event.Data)
	if !ok {
		return
	}
	RecordCacheDecision(data.Step, data.Policy, data.Hit)
}

func (l *MetricsListener) handleKillSwitchTriggered(event *events.Event) {
	data, ok := asData[events.KillSwitchTriggeredData](event.Data)
	if !ok {
		return
	}
	mode := "log-only"
	if data.FailFast {
		mode = "fail-fast"
	}
	RecordKillSwitchTriggered(data.Step, mode)
}

func (l *MetricsListener) handleHealthTransition(event *events.Event) {
	data, ok := asData[events.HealthTransitionData](event.Data)
	if !ok {
		return
	}
	RecordHealthTransition(data.Step, data.From, data.To)
}

// asData extracts event payload data, handling both value and pointer types,
// since Emitter methods box plain structs while callers may construct either.
func asData[T any](data events.EventData) (*T, bool) {
	if p, ok := data.(*T); ok {
		return p, true
	}
	if v, ok := data.(T); ok {
		return &v, true
	}
	return nil, false
}

// Listener returns an events.Listener function that can be registered with an EventBus.
func (l *MetricsListener) Listener() events.Listener {
	return l.Handle
}
