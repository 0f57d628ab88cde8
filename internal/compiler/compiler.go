// Package compiler ties the six compiler phases together (§4.1): Discovery,
// Semantic Analysis, Target Resolution, Binding Construction, Rendering and
// Order Emission. It enforces the cross-phase failure policy — any
// validation failure halts the round and no partial output is written —
// by rendering into a scratch directory and only promoting it to the
// requested output root once every phase has succeeded.
package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/flowforge/flowforge/internal/binding"
	"github.com/flowforge/flowforge/internal/discovery"
	"github.com/flowforge/flowforge/internal/ir"
	"github.com/flowforge/flowforge/internal/order"
	"github.com/flowforge/flowforge/internal/render"
	"github.com/flowforge/flowforge/internal/semantic"
	"github.com/flowforge/flowforge/internal/target"
	pkgerrors "github.com/flowforge/flowforge/pkg/errors"
	"github.com/flowforge/flowforge/runtime/step"
)

// Options configures a single compile round.
type Options struct {
	SourceRoots              []string
	TemplatePath             string
	OutputRoot               string
	GenerateOrchestrator     bool
	PluginSteps              map[string]bool
	GlobalCacheKeyGenerator  string
	PerStepCacheKeyGenerator map[string]string
	OrchestratorClients      map[string]string
}

// Result is everything produced across the six phases, returned for
// diagnostics and for cmd/flowforge to summarize.
type Result struct {
	Declarations *discovery.Declarations
	Analysis     *semantic.Result
	Models       []*ir.StepModel
	Construction *binding.Construction
	OrderPath    string
	ClientsPath  string
}

// Compile runs a full compilation round. On any phase error it returns
// before writing anything under opts.OutputRoot.
func Compile(opts Options) (*Result, error) {
	decls, err := discovery.Discover(opts.SourceRoots, opts.TemplatePath)
	if err != nil {
		return nil, pkgerrors.New("compiler", "Compile", err).WithDetails(map[string]any{"phase": "discovery"})
	}

	analysis, err := semantic.Analyze(decls, decls.BasePackage, opts.GenerateOrchestrator)
	if err != nil {
		return nil, pkgerrors.New("compiler", "Compile", err).WithDetails(map[string]any{"phase": "semantic-analysis"})
	}

	kindOf := func(d semantic.StepDraft) target.Kind {
		if opts.PluginSteps[d.Identity.Name] {
			return target.Plugin
		}
		return target.Ordinary
	}
	models, err := target.Resolve(analysis.Drafts, decls.Transport, kindOf)
	if err != nil {
		return nil, pkgerrors.New("compiler", "Compile", err).WithDetails(map[string]any{"phase": "target-resolution"})
	}

	construction, err := binding.Construct(analysis.Drafts, models, opts.GlobalCacheKeyGenerator, opts.PerStepCacheKeyGenerator)
	if err != nil {
		return nil, pkgerrors.New("compiler", "Compile", err).WithDetails(map[string]any{"phase": "binding-construction"})
	}

	bindings := construction.Bindings
	if analysis.Orchestrator != nil {
		entryModel, err := orchestratorEntryModel(decls, analysis.Orchestrator)
		if err != nil {
			return nil, pkgerrors.New("compiler", "Compile", err).WithDetails(map[string]any{"phase": "binding-construction"})
		}
		bindings = append(bindings, binding.BuildOrchestratorBinding(analysis.Orchestrator, entryModel, opts.OrchestratorClients))
	}

	scratch, err := os.MkdirTemp("", "flowforge-compile-*")
	if err != nil {
		return nil, pkgerrors.New("compiler", "Compile", err).WithDetails(map[string]any{"phase": "rendering"})
	}
	defer os.RemoveAll(scratch)

	registry := render.NewDefaultRegistry()
	if err := render.RenderAll(registry, bindings, scratch); err != nil {
		return nil, pkgerrors.New("compiler", "Compile", err).WithDetails(map[string]any{"phase": "rendering"})
	}

	orderPath, clientsPath, err := order.Emit(models, opts.OrchestratorClients, scratch)
	if err != nil {
		return nil, pkgerrors.New("compiler", "Compile", err).WithDetails(map[string]any{"phase": "order-emission"})
	}

	if err := promote(scratch, opts.OutputRoot); err != nil {
		return nil, pkgerrors.New("compiler", "Compile", err).WithDetails(map[string]any{"phase": "order-emission"})
	}

	relOrder, _ := filepath.Rel(scratch, orderPath)
	relClients, _ := filepath.Rel(scratch, clientsPath)

	return &Result{
		Declarations: decls,
		Analysis:     analysis,
		Models:       models,
		Construction: construction,
		OrderPath:    filepath.Join(opts.OutputRoot, relOrder),
		ClientsPath:  filepath.Join(opts.OutputRoot, relClients),
	}, nil
}

// orchestratorEntryModel synthesizes the StepModel representing the
// orchestrator's own generated entry point: it is not one of the declared
// pipeline steps, so it carries no mapper (input and output domain type
// are both the declared entry input type) and resolves to the ORCHESTRATOR
// target alone.
func orchestratorEntryModel(decls *discovery.Declarations, orchestrator *ir.OrchestratorModel) (*ir.StepModel, error) {
	name := decls.AppName + "Orchestrator"
	identity := ir.ServiceIdentity{
		Package:   decls.BasePackage,
		Name:      name,
		ClassName: decls.BasePackage + "." + name,
	}
	entryType := orchestrator.EntryInputType
	if entryType == "" {
		entryType = "Void"
	}
	mapping := ir.Mapping{DomainType: entryType}
	return ir.NewStepModel(identity, step.UnaryInUnaryOut, mapping, mapping, ir.Reactive, target.OrchestratorTargets(), ir.RoleOrchestratorClient, step.DefaultParallelismHints())
}

// promote moves every entry of scratch into outputRoot, creating
// outputRoot if necessary. Rendering and order emission both write only
// under scratch, so a failure in either phase never touches outputRoot —
// this call is the only point at which generated output becomes visible.
func promote(scratch, outputRoot string) error {
	if err := os.MkdirAll(outputRoot, 0o755); err != nil {
		return fmt.Errorf("compiler: creating output root %s: %w", outputRoot, err)
	}
	entries, err := os.ReadDir(scratch)
	if err != nil {
		return fmt.Errorf("compiler: reading scratch dir: %w", err)
	}
	for _, e := range entries {
		src := filepath.Join(scratch, e.Name())
		dst := filepath.Join(outputRoot, e.Name())
		if err := os.RemoveAll(dst); err != nil {
			return fmt.Errorf("compiler: clearing stale output %s: %w", dst, err)
		}
		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("compiler: promoting %s: %w", src, err)
		}
	}
	return nil
}
