package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/flowforge/flowforge/runtime/events"
)

// DefaultStartupTimeout is the window probes get to finally succeed or fail
// before the gate resolves to UNHEALTHY.
const DefaultStartupTimeout = 5 * time.Minute

// Prober checks one dependent service discovered from step metadata.
type Prober interface {
	Name() string
	Probe(ctx context.Context) error
}

// ProberFunc adapts a function to Prober.
type ProberFunc struct {
	ProbeName string
	Fn        func(ctx context.Context) error
}

func (p ProberFunc) Name() string                   { return p.ProbeName }
func (p ProberFunc) Probe(ctx context.Context) error { return p.Fn(ctx) }

// Gate is the sticky PENDING/HEALTHY/UNHEALTHY/ERROR state machine. A Gate
// is run exactly once per process; subsequent transitions after a terminal
// state are no-ops.
type Gate struct {
	mu      sync.Mutex
	state   State
	ready   chan struct{}
	emitter *events.Emitter
	warn    func(msg string, args ...any)
}

// Option configures a Gate.
type Option func(*Gate)

// WithEmitter attaches an events.Emitter for health-transition telemetry.
func WithEmitter(emitter *events.Emitter) Option {
	return func(g *Gate) {
		g.emitter = emitter
	}
}

// WithWarnFunc attaches a logger-backed sink for probe failures.
func WithWarnFunc(warn func(msg string, args ...any)) Option {
	return func(g *Gate) {
		g.warn = warn
	}
}

// New builds a Gate in the PENDING state.
func New(opts ...Option) *Gate {
	g := &Gate{
		state: Pending,
		ready: make(chan struct{}),
		warn:  func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// State returns the current state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Start launches startup probing in the background. If probers is empty, the
// gate resolves to HEALTHY immediately ("no steps configured... skip probes
// and move to HEALTHY"). Start must be called at most once; subsequent calls
// are no-ops once a probing round has begun.
func (g *Gate) Start(ctx context.Context, startupTimeout time.Duration, probers []Prober) {
	if startupTimeout <= 0 {
		startupTimeout = DefaultStartupTimeout
	}
	if len(probers) == 0 {
		g.transition(Healthy)
		return
	}
	go g.run(ctx, startupTimeout, probers)
}

func (g *Gate) run(ctx context.Context, startupTimeout time.Duration, probers []Prober) {
	probeCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	type outcome struct {
		name  string
		err   error
		panic any
	}
	results := make(chan outcome, len(probers))
	var wg sync.WaitGroup
	for _, p := range probers {
		wg.Add(1)
		go func(p Prober) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results <- outcome{name: p.Name(), panic: r}
				}
			}()
			results <- outcome{name: p.Name(), err: p.Probe(probeCtx)}
		}(p)
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		close(results)
		for o := range results {
			if o.panic != nil {
				g.warn("health: probe %s panicked: %v", o.name, o.panic)
				g.transition(Error)
				return
			}
			if o.err != nil {
				g.warn("health: probe %s failed: %v", o.name, o.err)
				g.transition(Unhealthy)
				return
			}
		}
		g.transition(Healthy)
	case <-probeCtx.Done():
		if ctx.Err() != nil {
			// the run handle itself was cancelled before HEALTHY was reached.
			return
		}
		g.warn("health: startup probing did not complete within %s", startupTimeout)
		g.transition(Unhealthy)
	}
}

// Await blocks until the gate leaves PENDING or ctx is done, whichever comes
// first, mirroring the "execute_* waits for any non-PENDING state (with
// optional caller-supplied timeout)" contract.
func (g *Gate) Await(ctx context.Context) (State, error) {
	select {
	case <-g.ready:
		return g.State(), nil
	case <-ctx.Done():
		return g.State(), fmt.Errorf("health: %w waiting for startup readiness", ctx.Err())
	}
}

func (g *Gate) transition(to State) {
	g.mu.Lock()
	if g.state.IsTerminal() {
		g.mu.Unlock()
		return
	}
	from := g.state
	g.state = to
	close(g.ready)
	g.mu.Unlock()

	if g.emitter != nil {
		g.emitter.HealthTransition("", from.String(), to.String())
	}
}
