// Package bootstrap wires a runtime.EventBus together with the listeners
// the telemetry.* configuration surface (§6) turns on or off: Prometheus
// metrics, OTel tracing and the retry-amplification kill-switch. It is
// the one place in the module that decides which listeners an EventBus
// actually carries at runtime, so a pipeline binary doesn't have to
// duplicate the telemetry.{enabled,metrics.enabled,tracing.enabled}
// on/off logic itself.
package bootstrap

import (
	"context"

	"github.com/flowforge/flowforge/internal/config"
	"github.com/flowforge/flowforge/runtime/events"
	"github.com/flowforge/flowforge/runtime/metrics/prometheus"
	"github.com/flowforge/flowforge/runtime/telemetry"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry bundles the EventBus and the run-scoped telemetry
// dependencies a pipeline execution needs, plus a Shutdown hook that
// flushes and tears down whatever was started. Ctx is derived from the
// context passed to Build and is the context a caller must hand to
// runner.Runner.Run (or execution.Service) for this run: in fail-fast
// mode the kill-switch cancels Ctx directly, which cancels the runner's
// own context by inheritance and aborts the run.
type Telemetry struct {
	Ctx        context.Context
	Bus        *events.EventBus
	KillSwitch *telemetry.KillSwitch
	Shutdown   func(context.Context) error
}

// Build constructs an EventBus and attaches listeners per cfg.Telemetry
// and cfg.KillSwitch. Metrics and tracing are independently switchable;
// tracing additionally requires an OTLP endpoint since a per-item tracer
// needs somewhere to export spans. The kill-switch attaches whenever its
// own RetryAmplification.Enabled is set, independent of the broader
// telemetry.enabled flag, since it is a safety guard rather than an
// observability feature. Build is called once per run, so the cancel it
// wires into the kill-switch is scoped to that run alone, not the whole
// process.
func Build(ctx context.Context, cfg *config.PipelineConfig, runID, sessionID, orchestratorName, tracingEndpoint, serviceName string) (*Telemetry, error) {
	runCtx, cancel := context.WithCancel(ctx)

	bus := events.NewEventBus()
	emitter := events.NewEmitter(bus, runID, sessionID, orchestratorName)

	var shutdownFns []func(context.Context) error

	if cfg.Telemetry.Enabled && cfg.Telemetry.Metrics.Enabled {
		bus.SubscribeAll(prometheus.NewMetricsListener().Handle)
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.Tracing.Enabled && tracingEndpoint != "" {
		tp, err := telemetry.NewTracerProvider(ctx, tracingEndpoint, serviceName)
		if err != nil {
			cancel()
			return nil, err
		}
		var tracer trace.Tracer = telemetry.Tracer(tp)
		listener := telemetry.NewOTelEventListener(tracer)
		bus.SubscribeAll(listener.OnEvent)
		shutdownFns = append(shutdownFns, tp.Shutdown)
	}

	var killSwitch *telemetry.KillSwitch
	if cfg.KillSwitch.RetryAmplification.Enabled {
		killSwitch = telemetry.NewKillSwitch(cfg.KillSwitch.RetryAmplification, emitter, telemetry.WithCancel(cancel))
		killSwitch.Attach(bus)
	}

	return &Telemetry{
		Ctx:        runCtx,
		Bus:        bus,
		KillSwitch: killSwitch,
		Shutdown: func(ctx context.Context) error {
			defer cancel()
			for _, fn := range shutdownFns {
				if err := fn(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	}, nil
}
