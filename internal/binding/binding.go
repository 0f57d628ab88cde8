// Package binding implements the §4.1.4 Binding Construction phase: it
// derives a transport-specific Binding for each (step, target) pair from
// the finalized IR, handles plugin host expansion, and resolves each
// step's effective cache-key-generator identity (global default
// overridden by a per-step attribute).
package binding

import (
	"fmt"
	"strings"

	"github.com/flowforge/flowforge/internal/ir"
	"github.com/flowforge/flowforge/internal/semantic"
)

// Construction is Binding Construction's contribution to the shared
// compilation context.
type Construction struct {
	Bindings []ir.Binding
	// CacheKeyGenerators maps a step's logical name to its resolved
	// cache-key-generator identity, populated only for steps synthesized
	// from a cache-category aspect.
	CacheKeyGenerators map[string]string
}

// Construct builds the per-(step,target) bindings for every finalized
// StepModel. drafts and models must be the same length and in the same
// order as produced by semantic.Analyze and target.Resolve — Binding
// Construction consults the draft's OwningAspect to resolve cache-key
// generators and Kind to decide whether a plugin binding's server side
// delegates to a hosted implementation.
func Construct(drafts []semantic.StepDraft, models []*ir.StepModel, globalCacheKeyGenerator string, perStepCacheKeyGenerator map[string]string) (*Construction, error) {
	if len(drafts) != len(models) {
		return nil, fmt.Errorf("binding: drafts (%d) and models (%d) length mismatch", len(drafts), len(models))
	}

	bindings := make([]ir.Binding, 0, len(models)*2)
	cacheKeyGens := make(map[string]string)

	for i, model := range models {
		draft := drafts[i]
		for _, t := range model.EnabledTargets {
			b, err := bindingFor(model, draft, t)
			if err != nil {
				return nil, err
			}
			bindings = append(bindings, b)
		}

		if draft.OwningAspect != nil && draft.OwningAspect.Category == "cache" {
			cacheKeyGens[model.Identity.Name] = resolveCacheKeyGenerator(model.Identity.Name, globalCacheKeyGenerator, perStepCacheKeyGenerator)
		}
	}

	return &Construction{Bindings: bindings, CacheKeyGenerators: cacheKeyGens}, nil
}

func bindingFor(model *ir.StepModel, draft semantic.StepDraft, t ir.Target) (ir.Binding, error) {
	switch t {
	case ir.TargetGRPCServer, ir.TargetGRPCClient:
		return ir.GrpcBinding{
			Model:             model,
			ServiceDescriptor: model.Identity.Name + "Service",
			MethodDescriptor:  "Apply",
			TargetSide:        t,
		}, nil
	case ir.TargetRESTServer, ir.TargetRESTClient:
		return ir.RestBinding{
			Model:        model,
			PathOverride: restPath(model.Identity.Name),
			TargetSide:   t,
		}, nil
	case ir.TargetPluginServer:
		return ir.PluginBinding{Model: model, HostedStep: model.Identity.Name, IsServer: true}, nil
	case ir.TargetPluginClient:
		return ir.PluginBinding{Model: model, HostedStep: model.Identity.Name, IsServer: false}, nil
	case ir.TargetOrchestrator:
		return nil, fmt.Errorf("binding: step %q: ORCHESTRATOR target is resolved by BuildOrchestratorBinding, not bindingFor", model.Identity.Name)
	default:
		return nil, fmt.Errorf("binding: step %q: unhandled target %s", model.Identity.Name, t)
	}
}

// restPath derives a default REST path from a step's logical name
// (kebab-cased), the way a step named "ValidateOrder" becomes
// "/v1/validate-order" absent a template-level override.
func restPath(stepName string) string {
	var b strings.Builder
	for i, r := range stepName {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('-')
		}
		b.WriteRune(r)
	}
	return "/v1/" + strings.ToLower(b.String())
}

func resolveCacheKeyGenerator(stepName, global string, perStep map[string]string) string {
	if override, ok := perStep[stepName]; ok && override != "" {
		return override
	}
	if global != "" {
		return global
	}
	return "default"
}

// BuildOrchestratorBinding constructs the orchestrator's binding once
// Semantic Analysis has determined one is required. moduleSteps is the
// downstream module list from the OrchestratorModel; clientDefaults
// carries per-call client tunables rendered into the orchestrator's
// generated client wiring.
func BuildOrchestratorBinding(orchestrator *ir.OrchestratorModel, entryModel *ir.StepModel, clientDefaults map[string]string) ir.OrchestratorBinding {
	return ir.OrchestratorBinding{
		Model:          entryModel,
		ModuleSteps:    orchestrator.DownstreamModules,
		ClientDefaults: clientDefaults,
	}
}
