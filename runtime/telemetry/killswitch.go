package telemetry

import (
	"sync"
	"time"

	"github.com/flowforge/flowforge/internal/config"
	"github.com/flowforge/flowforge/runtime/events"
)

// KillSwitch implements the §4.7 retry-amplification guard: over a rolling
// window it tracks each step's in-flight item count and retry attempts, and
// when both the in-flight slope and the retry rate exceed their configured
// thresholds it either aborts the run (mode=fail-fast) or only logs a
// warning (mode=log-only). It subscribes to the same EventBus the runner and
// OTelEventListener publish/subscribe through, following the same
// subscribe-and-track-rolling-state shape as OTelEventListener.
type KillSwitch struct {
	cfg     config.RetryAmplificationConfig
	emitter *events.Emitter
	cancel  func()
	warn    func(msg string, args ...any)

	mu    sync.Mutex
	steps map[string]*stepWindow
}

type sample struct {
	at       time.Time
	inflight int
}

type stepWindow struct {
	inflight int
	lastAt   time.Time
	samples  []sample
	retries  []time.Time
}

// Option configures a KillSwitch constructed via NewKillSwitch.
type Option func(*KillSwitch)

// WithCancel supplies the run-abort hook invoked in fail-fast mode.
func WithCancel(cancel func()) Option {
	return func(k *KillSwitch) { k.cancel = cancel }
}

// WithWarnFunc overrides the warning logger used in log-only mode. Defaults
// to a no-op.
func WithWarnFunc(fn func(msg string, args ...any)) Option {
	return func(k *KillSwitch) { k.warn = fn }
}

// NewKillSwitch builds a KillSwitch from its §10.3 configuration tunables.
func NewKillSwitch(cfg config.RetryAmplificationConfig, emitter *events.Emitter, opts ...Option) *KillSwitch {
	k := &KillSwitch{
		cfg:     cfg,
		emitter: emitter,
		warn:    func(string, ...any) {},
		steps:   make(map[string]*stepWindow),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Attach subscribes the guard to the given bus. It is a no-op (returns an
// unsubscribe that does nothing) if the guard is disabled, so a caller can
// always construct and attach a KillSwitch without branching on
// cfg.Enabled.
func (k *KillSwitch) Attach(bus *events.EventBus) events.Unsubscribe {
	if !k.cfg.Enabled {
		return func() {}
	}
	unsubs := []events.Unsubscribe{
		bus.Subscribe(events.EventStepStarted, k.onStepStarted),
		bus.Subscribe(events.EventStepCompleted, k.onStepSettled),
		bus.Subscribe(events.EventStepFailed, k.onStepSettled),
		bus.Subscribe(events.EventRetryAttempted, k.onRetryAttempted),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (k *KillSwitch) window(step string) *stepWindow {
	w, ok := k.steps[step]
	if !ok {
		w = &stepWindow{}
		k.steps[step] = w
	}
	return w
}

func (k *KillSwitch) onStepStarted(evt *events.Event) {
	data, ok := asPtr[events.StepStartedData](evt.Data)
	if !ok {
		return
	}
	k.mu.Lock()
	w := k.window(data.Step)
	w.inflight++
	at := now(evt)
	w.lastAt = at
	w.samples = append(w.samples, sample{at: at, inflight: w.inflight})
	k.prune(w)
	k.mu.Unlock()
}

func (k *KillSwitch) onStepSettled(evt *events.Event) {
	var step string
	switch evt.Type {
	case events.EventStepCompleted:
		data, ok := asPtr[events.StepCompletedData](evt.Data)
		if !ok {
			return
		}
		step = data.Step
	case events.EventStepFailed:
		data, ok := asPtr[events.StepFailedData](evt.Data)
		if !ok {
			return
		}
		step = data.Step
	default:
		return
	}
	k.mu.Lock()
	w := k.window(step)
	if w.inflight > 0 {
		w.inflight--
	}
	at := now(evt)
	w.lastAt = at
	w.samples = append(w.samples, sample{at: at, inflight: w.inflight})
	k.prune(w)
	k.mu.Unlock()
}

func (k *KillSwitch) onRetryAttempted(evt *events.Event) {
	data, ok := asPtr[events.RetryAttemptedData](evt.Data)
	if !ok {
		return
	}
	k.mu.Lock()
	w := k.window(data.Step)
	at := now(evt)
	w.lastAt = at
	w.retries = append(w.retries, at)
	k.prune(w)
	slope, retryRate := k.measure(w)
	k.mu.Unlock()

	if slope > k.cfg.InflightSlopeThresh && retryRate > k.cfg.RetryRateThreshold {
		k.trigger(data.Step, retryRate)
	}
}

// prune discards samples and retry timestamps older than the configured
// window, measured back from the most recent event this step has seen
// (not wall-clock time), so the guard's notion of "now" advances with the
// event stream itself and stays deterministic under test. Caller must hold
// k.mu.
func (k *KillSwitch) prune(w *stepWindow) {
	window := k.cfg.Window
	if window <= 0 {
		window = 30 * time.Second
	}
	cutoff := w.lastAt.Add(-window)
	w.samples = dropBefore(w.samples, cutoff)
	w.retries = dropRetriesBefore(w.retries, cutoff)
}

// measure computes the in-flight slope (items/second) and retry rate
// (retries/second) over the current window. Caller must hold k.mu.
func (k *KillSwitch) measure(w *stepWindow) (slope, retryRate float64) {
	window := k.cfg.Window
	if window <= 0 {
		window = 30 * time.Second
	}
	seconds := window.Seconds()
	if seconds <= 0 {
		return 0, 0
	}
	if len(w.samples) >= 2 {
		first, last := w.samples[0], w.samples[len(w.samples)-1]
		elapsed := last.at.Sub(first.at).Seconds()
		if elapsed > 0 {
			slope = float64(last.inflight-first.inflight) / elapsed
		}
	}
	retryRate = float64(len(w.retries)) / seconds
	return slope, retryRate
}

func (k *KillSwitch) trigger(step string, retryRate float64) {
	if k.cfg.Mode == "fail-fast" {
		if k.emitter != nil {
			k.emitter.KillSwitchTriggered(step, retryRate, k.cfg.RetryRateThreshold, k.cfg.Window, true)
		}
		if k.cancel != nil {
			k.cancel()
		}
		return
	}
	k.warn("retry-amplification guard detected pathological retry behavior", "step", step, "retry_rate", retryRate)
}

func dropBefore(samples []sample, cutoff time.Time) []sample {
	i := 0
	for i < len(samples) && samples[i].at.Before(cutoff) {
		i++
	}
	return samples[i:]
}

func dropRetriesBefore(retries []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(retries) && retries[i].Before(cutoff) {
		i++
	}
	return retries[i:]
}

// now extracts a timestamp to drive the window off the event's own
// timestamp when present (keeping tests deterministic), falling back to
// wall-clock time for events constructed without one.
func now(evt *events.Event) time.Time {
	if evt.Timestamp.IsZero() {
		return clockNow()
	}
	return evt.Timestamp
}

// clockNow is a seam so tests can observe wall-clock-independent behavior
// without needing to fake time.Now itself.
var clockNow = time.Now
