// Package semantic implements the §4.1.2 Semantic Analysis phase: it maps
// declared cardinality to a runtime streaming shape, flags aspects that
// must be expanded into synthetic side-effect steps, decides whether an
// orchestrator artifact is required, and enforces the thread-safety /
// ordering compatibility rule. It never resolves generation targets
// (Target Resolution's job, §4.1.3), calls a renderer, or constructs a
// Binding.
package semantic

import (
	"fmt"

	"github.com/flowforge/flowforge/internal/discovery"
	"github.com/flowforge/flowforge/internal/ir"
	"github.com/flowforge/flowforge/runtime/step"
)

// StepKind distinguishes an ordinary declared step from one synthesized
// by aspect expansion, since they resolve to different generation targets
// in §4.1.3's table (ordinary vs plugin vs orchestrator) and the
// synthetic ones never go through Target Resolution's "plugin"/"orchestrator"
// rows.
type StepKind int

const (
	OrdinaryStep StepKind = iota
	SyntheticSideEffectStep
)

// StepDraft is a step after Semantic Analysis but before Target
// Resolution has assigned enabled_targets and deployment_role — the two
// fields spec §3 requires a StepModel to carry, but which are not this
// phase's to decide. Target Resolution turns a StepDraft into a finalized
// *ir.StepModel; Semantic Analysis never builds one itself, keeping to
// the stated rule that later phases may only add new models, not mutate
// earlier ones.
type StepDraft struct {
	Identity         ir.ServiceIdentity
	Shape            step.Shape
	InputMapping     ir.Mapping
	OutputMapping    ir.Mapping
	ExecutionMode    ir.ExecutionMode
	ParallelismHints step.ParallelismHints
	Kind             StepKind
	// OwningAspect is set on synthetic side-effect drafts to the aspect
	// that produced them, so Binding Construction can resolve its
	// cache-key-generator attribute.
	OwningAspect *ir.AspectModel
}

// Result is Semantic Analysis's contribution to the shared compilation
// context: the step drafts built from the raw declarations (synthetic
// side-effect drafts included, positioned immediately after the step(s)
// their owning aspect applies to), plus the orchestrator model if one is
// required.
type Result struct {
	Drafts       []StepDraft
	Orchestrator *ir.OrchestratorModel
}

// ShapeForCardinality maps a declared cardinality to the runtime streaming
// shape it implies (§4.1.2). EXPANSION streams out; REDUCTION streams in
// and collapses to one; MANY_TO_MANY streams both ways.
func ShapeForCardinality(c ir.Cardinality) step.Shape {
	switch c {
	case ir.OneToOne:
		return step.UnaryInUnaryOut
	case ir.Expansion:
		return step.UnaryInStreamOut
	case ir.Reduction:
		return step.StreamInUnaryOut
	case ir.SideEffectCardinality:
		return step.SideEffect
	case ir.ManyToMany:
		return step.StreamInStreamOut
	default:
		return step.UnaryInUnaryOut
	}
}

// Analyze runs Semantic Analysis over Discovery's declarations.
func Analyze(decls *discovery.Declarations, basePackage string, globalOrchestratorFlag bool) (*Result, error) {
	aspectModels := make([]ir.AspectModel, 0, len(decls.Aspects))
	for _, a := range decls.Aspects {
		position, err := ir.ParseAspectPosition(a.Position)
		if err != nil {
			return nil, fmt.Errorf("semantic: aspect %q: %w", a.Name, err)
		}
		scope := ir.GlobalScope
		if a.Scope == "STEP_SUBSET" {
			scope = ir.StepSubsetScope
		}
		aspectModels = append(aspectModels, ir.NewAspectModel(a.Name, position, scope, a.Steps, a.Order, a.Enabled, a.Category, a.Config))
	}

	drafts := make([]StepDraft, 0, len(decls.Steps))
	for _, s := range decls.Steps {
		draft, err := buildDraft(s, basePackage)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, draft)

		for i := range aspectModels {
			aspect := aspectModels[i]
			if !aspect.RequiresExpansion() || !aspect.AppliesTo(s.Name) {
				continue
			}
			drafts = append(drafts, syntheticDraft(aspect, draft))
		}
	}

	var orchestrator *ir.OrchestratorModel
	if decls.Orchestrator != nil || globalOrchestratorFlag {
		orchestrator = &ir.OrchestratorModel{}
		if decls.Orchestrator != nil {
			orchestrator.EntryInputType = decls.Orchestrator.EntryInputType
			orchestrator.GenerateCLI = decls.Orchestrator.GenerateCLI
			orchestrator.DownstreamModules = decls.Orchestrator.DownstreamModules
		}
		if globalOrchestratorFlag {
			orchestrator.GenerateCLI = true
		}
	}

	return &Result{Drafts: drafts, Orchestrator: orchestrator}, nil
}

func buildDraft(s discovery.StepDecl, basePackage string) (StepDraft, error) {
	cardinality, err := ir.ParseCardinality(s.Cardinality)
	if err != nil {
		return StepDraft{}, fmt.Errorf("semantic: step %q: %w", s.Name, err)
	}
	shape := ShapeForCardinality(cardinality)

	hints := step.DefaultParallelismHints()
	switch s.Parallel {
	case "UNSAFE":
		hints.ThreadSafety = step.Unsafe
	case "STRICT_REQUIRED":
		hints.Ordering = step.StrictRequired
	case "STRICT_ADVISED":
		hints.Ordering = step.StrictAdvised
	}

	if err := EnforceThreadSafetyOrdering(s.Name, shape, hints); err != nil {
		return StepDraft{}, err
	}

	return StepDraft{
		Identity: ir.ServiceIdentity{
			Package:   basePackage,
			Name:      s.Name,
			ClassName: basePackage + "." + s.Name,
		},
		Shape:            shape,
		InputMapping:     ir.Mapping{DomainType: s.InputTypeName},
		OutputMapping:    ir.Mapping{DomainType: s.OutputTypeName},
		ExecutionMode:    ir.Reactive,
		ParallelismHints: hints,
		Kind:             OrdinaryStep,
	}, nil
}

// syntheticDraft builds the synthetic SIDE_EFFECT draft an expanding
// aspect inserts after the step it applies to (§3 AspectModel, §4.1.4):
// it reuses the owning step's output domain type as both its own input
// and output, per the SIDE_EFFECT invariant.
func syntheticDraft(aspect ir.AspectModel, owner StepDraft) StepDraft {
	aspectCopy := aspect
	name := owner.Identity.Name + "_" + aspect.Name
	elementType := owner.OutputMapping.DomainType
	return StepDraft{
		Identity: ir.ServiceIdentity{
			Package:   owner.Identity.Package,
			Name:      name,
			ClassName: owner.Identity.Package + "." + name,
		},
		Shape:            step.SideEffect,
		InputMapping:     ir.Mapping{DomainType: elementType},
		OutputMapping:    ir.Mapping{DomainType: elementType},
		ExecutionMode:    ir.Reactive,
		ParallelismHints: step.DefaultParallelismHints(),
		Kind:             SyntheticSideEffectStep,
		OwningAspect:     &aspectCopy,
	}
}

// EnforceThreadSafetyOrdering applies the §4.1.2 enforcement rule:
// thread-safety UNSAFE and ordering STRICT_REQUIRED cannot be combined
// with any streaming shape implying per-item concurrency (a stream-out
// shape, since those fan out one runner task per emitted item).
func EnforceThreadSafetyOrdering(stepName string, shape step.Shape, hints step.ParallelismHints) error {
	impliesConcurrency := shape.OutputIsStream()
	if !impliesConcurrency {
		return nil
	}
	if hints.ThreadSafety == step.Unsafe {
		return fmt.Errorf("semantic: step %q: UNSAFE thread-safety cannot be combined with shape %s, which implies per-item concurrency", stepName, shape)
	}
	if hints.Ordering == step.StrictRequired {
		return fmt.Errorf("semantic: step %q: STRICT_REQUIRED ordering cannot be combined with shape %s, which implies per-item concurrency", stepName, shape)
	}
	return nil
}
