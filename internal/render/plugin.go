package render

import (
	_ "embed"
	"fmt"
	"text/template"

	"github.com/flowforge/flowforge/internal/ir"
)

//go:embed templates/plugin_server.go.tmpl
var pluginServerTemplate string

//go:embed templates/plugin_client.go.tmpl
var pluginClientTemplate string

type pluginView struct {
	HostedStep string
}

// PluginServerRenderer emits the generated plugin host adapter for steps
// deployed as out-of-process plugins.
type PluginServerRenderer struct {
	tmpl *template.Template
}

func NewPluginServerRenderer() *PluginServerRenderer {
	return &PluginServerRenderer{tmpl: template.Must(template.New("plugin_server").Parse(pluginServerTemplate))}
}

func (r *PluginServerRenderer) Target() ir.Target { return ir.TargetPluginServer }

func (r *PluginServerRenderer) Render(bindings []ir.Binding, outputRoot string) error {
	views, err := pluginViews(bindings)
	if err != nil {
		return err
	}
	return renderTemplate(r.tmpl, views, outputRoot, dirPluginServer, "plugin_server.go")
}

// PluginClientRenderer emits the generated client stub the pipeline uses
// to reach a plugin-hosted step.
type PluginClientRenderer struct {
	tmpl *template.Template
}

func NewPluginClientRenderer() *PluginClientRenderer {
	return &PluginClientRenderer{tmpl: template.Must(template.New("plugin_client").Parse(pluginClientTemplate))}
}

func (r *PluginClientRenderer) Target() ir.Target { return ir.TargetPluginClient }

func (r *PluginClientRenderer) Render(bindings []ir.Binding, outputRoot string) error {
	views, err := pluginViews(bindings)
	if err != nil {
		return err
	}
	return renderTemplate(r.tmpl, views, outputRoot, dirPluginClient, "plugin_client.go")
}

func pluginViews(bindings []ir.Binding) ([]pluginView, error) {
	views := make([]pluginView, 0, len(bindings))
	for _, b := range bindings {
		pb, ok := b.(ir.PluginBinding)
		if !ok {
			return nil, fmt.Errorf("render: plugin renderer received non-plugin binding for step %q", b.StepName())
		}
		views = append(views, pluginView{HostedStep: pb.HostedStep})
	}
	return views, nil
}
