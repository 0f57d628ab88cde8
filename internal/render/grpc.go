package render

import (
	_ "embed"
	"fmt"
	"text/template"

	"github.com/flowforge/flowforge/internal/ir"
)

//go:embed templates/grpc_server.go.tmpl
var grpcServerTemplate string

//go:embed templates/grpc_client.go.tmpl
var grpcClientTemplate string

type grpcView struct {
	StepName          string
	ServiceDescriptor string
	MethodDescriptor  string
}

// GrpcServerRenderer emits the generated gRPC server adapters that expose
// each bound step's StepInterface as a service.
type GrpcServerRenderer struct {
	tmpl *template.Template
}

func NewGrpcServerRenderer() *GrpcServerRenderer {
	return &GrpcServerRenderer{tmpl: template.Must(template.New("grpc_server").Parse(grpcServerTemplate))}
}

func (r *GrpcServerRenderer) Target() ir.Target { return ir.TargetGRPCServer }

func (r *GrpcServerRenderer) Render(bindings []ir.Binding, outputRoot string) error {
	views, err := grpcViews(bindings, ir.TargetGRPCServer)
	if err != nil {
		return err
	}
	return renderTemplate(r.tmpl, views, outputRoot, dirGrpcServer, "grpc_server.go")
}

// GrpcClientRenderer emits the generated gRPC client stubs the
// orchestrator uses to call downstream pipeline-server steps.
type GrpcClientRenderer struct {
	tmpl *template.Template
}

func NewGrpcClientRenderer() *GrpcClientRenderer {
	return &GrpcClientRenderer{tmpl: template.Must(template.New("grpc_client").Parse(grpcClientTemplate))}
}

func (r *GrpcClientRenderer) Target() ir.Target { return ir.TargetGRPCClient }

func (r *GrpcClientRenderer) Render(bindings []ir.Binding, outputRoot string) error {
	views, err := grpcViews(bindings, ir.TargetGRPCClient)
	if err != nil {
		return err
	}
	return renderTemplate(r.tmpl, views, outputRoot, dirGrpcClient, "grpc_client.go")
}

func grpcViews(bindings []ir.Binding, target ir.Target) ([]grpcView, error) {
	views := make([]grpcView, 0, len(bindings))
	for _, b := range bindings {
		gb, ok := b.(ir.GrpcBinding)
		if !ok {
			return nil, fmt.Errorf("render: grpc renderer received non-gRPC binding for step %q", b.StepName())
		}
		views = append(views, grpcView{
			StepName:          gb.StepName(),
			ServiceDescriptor: gb.ServiceDescriptor,
			MethodDescriptor:  gb.MethodDescriptor,
		})
	}
	return views, nil
}
