// Package target implements the §4.1.3 Target Resolution phase: it maps
// each step draft's (transport, kind) pair to its enabled_targets and
// deployment_role and finalizes it into an immutable *ir.StepModel.
// Target Resolution is the only phase allowed to decide these two fields;
// Semantic Analysis deliberately leaves them unset on StepDraft.
package target

import (
	"fmt"

	"github.com/flowforge/flowforge/internal/ir"
	"github.com/flowforge/flowforge/internal/semantic"
)

// Kind is the (transport, kind) table's second axis (§4.1.3).
type Kind int

const (
	Ordinary Kind = iota
	Plugin
)

// Resolve finalizes every draft in result.Drafts into an *ir.StepModel per
// the §4.1.3 table. kindOf classifies drafts that need the "plugin" row
// instead of the transport-driven "ordinary" row; pass nil to treat every
// draft as ordinary (the common case — nothing in the pipeline template
// currently declares plugin-hosted steps).
func Resolve(drafts []semantic.StepDraft, transport string, kindOf func(semantic.StepDraft) Kind) ([]*ir.StepModel, error) {
	models := make([]*ir.StepModel, 0, len(drafts))
	for _, d := range drafts {
		kind := Ordinary
		if kindOf != nil {
			kind = kindOf(d)
		}

		targets, err := targetsFor(transport, kind)
		if err != nil {
			return nil, fmt.Errorf("target: step %q: %w", d.Identity.Name, err)
		}
		role := roleFor(transport, kind)

		model, err := ir.NewStepModel(d.Identity, d.Shape, d.InputMapping, d.OutputMapping, d.ExecutionMode, targets, role, d.ParallelismHints)
		if err != nil {
			return nil, err
		}
		models = append(models, model)
	}
	return models, nil
}

// targetsFor implements the §4.1.3 table's rows for ordinary and plugin
// steps. The "any" transport rows (plugin) don't discriminate on
// transport at all; GRPC/REST ordinary rows do.
func targetsFor(transport string, kind Kind) ([]ir.Target, error) {
	if kind == Plugin {
		return []ir.Target{ir.TargetPluginServer, ir.TargetPluginClient}, nil
	}
	switch transport {
	case "GRPC":
		return []ir.Target{ir.TargetGRPCServer, ir.TargetGRPCClient}, nil
	case "REST":
		return []ir.Target{ir.TargetRESTServer, ir.TargetRESTClient}, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", transport)
	}
}

// roleFor derives the primary deployment role for a finalized StepModel:
// the role the step is generated to serve within this pipeline. A step's
// GRPC_CLIENT/REST_CLIENT target is consumed separately by the
// orchestrator's binding, which does not change the step's own role.
func roleFor(transport string, kind Kind) ir.DeploymentRole {
	if kind == Plugin {
		return ir.RolePluginServer
	}
	if transport == "REST" {
		return ir.RoleRESTServer
	}
	return ir.RolePipelineServer
}

// OrchestratorTargets returns the target set for an OrchestratorModel's
// own step representation (§4.1.3's "any/orchestrator" row), used by
// Binding Construction when wiring the orchestrator's entry point.
func OrchestratorTargets() []ir.Target {
	return []ir.Target{ir.TargetOrchestrator}
}
