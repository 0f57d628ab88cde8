package telemetry

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/flowforge/flowforge/internal/config"
	"github.com/flowforge/flowforge/runtime/events"
)

func TestKillSwitch_DisabledAttachIsNoOp(t *testing.T) {
	bus := events.NewEventBus()
	defer bus.Close()

	var triggered atomic.Bool
	k := NewKillSwitch(config.RetryAmplificationConfig{Enabled: false}, nil,
		WithCancel(func() { triggered.Store(true) }))
	unsub := k.Attach(bus)
	defer unsub()

	base := time.Now()
	for i := 0; i < 50; i++ {
		bus.Publish(&events.Event{
			Type:      events.EventRetryAttempted,
			Timestamp: base.Add(time.Duration(i) * time.Millisecond),
			Data:      events.RetryAttemptedData{Step: "enrich", Attempt: 1},
		})
	}
	time.Sleep(50 * time.Millisecond)
	if triggered.Load() {
		t.Fatal("disabled kill switch must never trigger")
	}
}

func TestKillSwitch_FailFastTriggersOnSlopeAndRetryRate(t *testing.T) {
	bus := events.NewEventBus(events.WithWorkerPoolSize(1))
	defer bus.Close()

	var cancelled atomic.Bool
	emitter := events.NewEmitter(bus, "run-1", "", "")
	k := NewKillSwitch(config.RetryAmplificationConfig{
		Enabled:             true,
		Window:              30 * time.Second,
		InflightSlopeThresh: 0.01,
		RetryRateThreshold:  0.01,
		Mode:                "fail-fast",
	}, emitter, WithCancel(func() { cancelled.Store(true) }))
	unsub := k.Attach(bus)
	defer unsub()

	base := time.Now()
	for i := 0; i < 20; i++ {
		at := base.Add(time.Duration(i) * time.Second)
		bus.Publish(&events.Event{
			Type:      events.EventStepStarted,
			Timestamp: at,
			Data:      events.StepStartedData{Step: "enrich", Index: 0},
		})
		bus.Publish(&events.Event{
			Type:      events.EventRetryAttempted,
			Timestamp: at,
			Data:      events.RetryAttemptedData{Step: "enrich", Attempt: i + 1},
		})
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cancelled.Load() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("expected fail-fast kill switch to cancel the run")
}

func TestKillSwitch_LogOnlyWarnsWithoutCancelling(t *testing.T) {
	bus := events.NewEventBus(events.WithWorkerPoolSize(1))
	defer bus.Close()

	var cancelled atomic.Bool
	var warnings atomic.Int32
	k := NewKillSwitch(config.RetryAmplificationConfig{
		Enabled:             true,
		Window:              30 * time.Second,
		InflightSlopeThresh: 0.01,
		RetryRateThreshold:  0.01,
		Mode:                "log-only",
	}, nil,
		WithCancel(func() { cancelled.Store(true) }),
		WithWarnFunc(func(string, ...any) { warnings.Add(1) }),
	)
	unsub := k.Attach(bus)
	defer unsub()

	base := time.Now()
	for i := 0; i < 20; i++ {
		at := base.Add(time.Duration(i) * time.Second)
		bus.Publish(&events.Event{
			Type:      events.EventStepStarted,
			Timestamp: at,
			Data:      events.StepStartedData{Step: "enrich", Index: 0},
		})
		bus.Publish(&events.Event{
			Type:      events.EventRetryAttempted,
			Timestamp: at,
			Data:      events.RetryAttemptedData{Step: "enrich", Attempt: i + 1},
		})
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if warnings.Load() > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if warnings.Load() == 0 {
		t.Fatal("expected log-only mode to warn at least once")
	}
	if cancelled.Load() {
		t.Fatal("log-only mode must never cancel the run")
	}
}

func TestKillSwitch_BelowThresholdNeverTriggers(t *testing.T) {
	bus := events.NewEventBus(events.WithWorkerPoolSize(1))
	defer bus.Close()

	var cancelled atomic.Bool
	k := NewKillSwitch(config.RetryAmplificationConfig{
		Enabled:             true,
		Window:              30 * time.Second,
		InflightSlopeThresh: 1000,
		RetryRateThreshold:  1000,
		Mode:                "fail-fast",
	}, nil, WithCancel(func() { cancelled.Store(true) }))
	unsub := k.Attach(bus)
	defer unsub()

	base := time.Now()
	for i := 0; i < 5; i++ {
		at := base.Add(time.Duration(i) * time.Second)
		bus.Publish(&events.Event{
			Type:      events.EventStepStarted,
			Timestamp: at,
			Data:      events.StepStartedData{Step: "enrich", Index: 0},
		})
		bus.Publish(&events.Event{
			Type:      events.EventStepCompleted,
			Timestamp: at,
			Data:      events.StepCompletedData{Step: "enrich", Index: 0},
		})
	}
	time.Sleep(50 * time.Millisecond)
	if cancelled.Load() {
		t.Fatal("thresholds were never exceeded, kill switch should not trigger")
	}
}
