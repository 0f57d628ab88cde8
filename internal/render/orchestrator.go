package render

import (
	_ "embed"
	"fmt"
	"text/template"

	"github.com/flowforge/flowforge/internal/ir"
)

//go:embed templates/orchestrator.go.tmpl
var orchestratorTemplate string

type orchestratorView struct {
	StepName       string
	ModuleSteps    []string
	ClientDefaults map[string]string
}

// OrchestratorRenderer emits the generated orchestrator entry-point
// wiring for bindings whose role required an ORCHESTRATOR target.
type OrchestratorRenderer struct {
	tmpl *template.Template
}

func NewOrchestratorRenderer() *OrchestratorRenderer {
	return &OrchestratorRenderer{tmpl: template.Must(template.New("orchestrator").Parse(orchestratorTemplate))}
}

func (r *OrchestratorRenderer) Target() ir.Target { return ir.TargetOrchestrator }

func (r *OrchestratorRenderer) Render(bindings []ir.Binding, outputRoot string) error {
	views := make([]orchestratorView, 0, len(bindings))
	for _, b := range bindings {
		ob, ok := b.(ir.OrchestratorBinding)
		if !ok {
			return fmt.Errorf("render: orchestrator renderer received non-orchestrator binding for step %q", b.StepName())
		}
		views = append(views, orchestratorView{
			StepName:       ob.StepName(),
			ModuleSteps:    ob.ModuleSteps,
			ClientDefaults: ob.ClientDefaults,
		})
	}
	return renderTemplate(r.tmpl, views, outputRoot, dirOrchestrator, "orchestrator.go")
}
