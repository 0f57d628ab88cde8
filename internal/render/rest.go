package render

import (
	_ "embed"
	"fmt"
	"text/template"

	"github.com/flowforge/flowforge/internal/ir"
)

//go:embed templates/rest_server.go.tmpl
var restServerTemplate string

//go:embed templates/rest_client.go.tmpl
var restClientTemplate string

type restView struct {
	StepName     string
	PathOverride string
}

// RestServerRenderer emits the generated REST handlers for steps whose
// pipeline transport is REST. REST_CLIENT bindings have no generated
// artifact of their own — the orchestrator's gRPC client renderer path is
// the one exercised today; a REST-speaking orchestrator client would be a
// direct sibling of this renderer once a template needs one.
type RestServerRenderer struct {
	tmpl *template.Template
}

func NewRestServerRenderer() *RestServerRenderer {
	return &RestServerRenderer{tmpl: template.Must(template.New("rest_server").Parse(restServerTemplate))}
}

func (r *RestServerRenderer) Target() ir.Target { return ir.TargetRESTServer }

func (r *RestServerRenderer) Render(bindings []ir.Binding, outputRoot string) error {
	views := make([]restView, 0, len(bindings))
	for _, b := range bindings {
		rb, ok := b.(ir.RestBinding)
		if !ok {
			return fmt.Errorf("render: rest renderer received non-REST binding for step %q", b.StepName())
		}
		views = append(views, restView{StepName: rb.StepName(), PathOverride: rb.PathOverride})
	}
	return renderTemplate(r.tmpl, views, outputRoot, dirRestServer, "rest_server.go")
}

// RestClientRenderer emits the orchestrator-side REST client for steps
// whose pipeline transport is REST, the REST_CLIENT counterpart to
// GrpcClientRenderer.
type RestClientRenderer struct {
	tmpl *template.Template
}

func NewRestClientRenderer() *RestClientRenderer {
	return &RestClientRenderer{tmpl: template.Must(template.New("rest_client").Parse(restClientTemplate))}
}

func (r *RestClientRenderer) Target() ir.Target { return ir.TargetRESTClient }

func (r *RestClientRenderer) Render(bindings []ir.Binding, outputRoot string) error {
	views := make([]restView, 0, len(bindings))
	for _, b := range bindings {
		rb, ok := b.(ir.RestBinding)
		if !ok {
			return fmt.Errorf("render: rest renderer received non-REST binding for step %q", b.StepName())
		}
		views = append(views, restView{StepName: rb.StepName(), PathOverride: rb.PathOverride})
	}
	return renderTemplate(r.tmpl, views, outputRoot, dirGrpcClient, "rest_client.go")
}
