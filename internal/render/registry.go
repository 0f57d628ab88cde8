// Package render implements the §4.1.5 Rendering phase: a registry maps
// each generation target to a Renderer, which emits source artifacts for
// every binding it owns into its role-specific output directory (§6).
// Renderers never mutate IR or bindings and never call each other.
package render

import (
	"fmt"
	"sync"

	"github.com/flowforge/flowforge/internal/ir"
)

// Renderer emits the artifacts for every binding belonging to its target.
type Renderer interface {
	// Target is the generation target this renderer owns.
	Target() ir.Target
	// Render emits artifacts for bindings into outputRoot/<role dir>.
	Render(bindings []ir.Binding, outputRoot string) error
}

// Registry manages named Renderer instances, one per generation target —
// the same concurrent register/get/names shape as
// tools/arena/generate.Registry's SessionSourceAdapter registry.
type Registry struct {
	mu        sync.RWMutex
	renderers map[ir.Target]Renderer
}

// NewRegistry creates an empty renderer registry.
func NewRegistry() *Registry {
	return &Registry{renderers: make(map[ir.Target]Renderer)}
}

// Register adds a renderer to the registry, keyed by its Target().
func (r *Registry) Register(renderer Renderer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renderers[renderer.Target()] = renderer
}

// Get returns the renderer registered for the given target.
func (r *Registry) Get(t ir.Target) (Renderer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	renderer, ok := r.renderers[t]
	if !ok {
		return nil, fmt.Errorf("render: no renderer registered for target %s", t)
	}
	return renderer, nil
}

// Targets returns the set of targets with a registered renderer.
func (r *Registry) Targets() []ir.Target {
	r.mu.RLock()
	defer r.mu.RUnlock()
	targets := make([]ir.Target, 0, len(r.renderers))
	for t := range r.renderers {
		targets = append(targets, t)
	}
	return targets
}

// NewDefaultRegistry returns a Registry with the standard renderer set
// wired in: gRPC server/client, REST server, plugin server/client and the
// orchestrator renderer.
func NewDefaultRegistry() *Registry {
	reg := NewRegistry()
	reg.Register(NewGrpcServerRenderer())
	reg.Register(NewGrpcClientRenderer())
	reg.Register(NewRestServerRenderer())
	reg.Register(NewRestClientRenderer())
	reg.Register(NewPluginServerRenderer())
	reg.Register(NewPluginClientRenderer())
	reg.Register(NewOrchestratorRenderer())
	return reg
}

// RenderAll dispatches every binding to its target's renderer, grouping
// by target so each renderer sees its full set in one Render call. Any
// validation failure from a renderer halts rendering — per §4.1's
// "any validation failure halts the round, no partial output" policy,
// callers are expected to have written to a scratch directory and only
// promote it to outputRoot on success (internal/compiler does this).
func RenderAll(registry *Registry, bindings []ir.Binding, outputRoot string) error {
	grouped := make(map[ir.Target][]ir.Binding)
	for _, b := range bindings {
		grouped[b.Target()] = append(grouped[b.Target()], b)
	}
	for target, group := range grouped {
		renderer, err := registry.Get(target)
		if err != nil {
			return err
		}
		if err := renderer.Render(group, outputRoot); err != nil {
			return fmt.Errorf("render: target %s: %w", target, err)
		}
	}
	return nil
}
