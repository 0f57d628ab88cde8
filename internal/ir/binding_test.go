package ir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/flowforge/internal/ir"
	"github.com/flowforge/flowforge/runtime/step"
)

func TestBindings_StepNameAndTarget(t *testing.T) {
	model, err := ir.NewStepModel(
		identity("Normalize"),
		step.UnaryInUnaryOut,
		ir.Mapping{DomainType: "Item"},
		ir.Mapping{DomainType: "Item"},
		ir.Reactive,
		[]ir.Target{ir.TargetGRPCServer, ir.TargetRESTServer},
		ir.RolePipelineServer,
		step.DefaultParallelismHints(),
	)
	require.NoError(t, err)

	var bindings = []ir.Binding{
		ir.GrpcBinding{Model: model, ServiceDescriptor: "NormalizeService"},
		ir.RestBinding{Model: model, PathOverride: "/v1/normalize"},
		ir.OrchestratorBinding{Model: model, ModuleSteps: []string{"Normalize"}},
		ir.PluginBinding{Model: model, HostedStep: "Normalize", IsServer: true},
	}

	for _, b := range bindings {
		assert.Equal(t, "Normalize", b.StepName())
	}
	assert.Equal(t, ir.TargetGRPCServer, bindings[0].Target())
	assert.Equal(t, ir.TargetRESTServer, bindings[1].Target())
	assert.Equal(t, ir.TargetOrchestrator, bindings[2].Target())
	assert.Equal(t, ir.TargetPluginServer, bindings[3].Target())

	clientBinding := ir.PluginBinding{Model: model, HostedStep: "Normalize", IsServer: false}
	assert.Equal(t, ir.TargetPluginClient, clientBinding.Target())
}

func TestRunContext_InFlightCounter(t *testing.T) {
	rc := ir.NewRunContext()
	require.NotEmpty(t, rc.RunID)
	assert.EqualValues(t, 0, rc.InFlight())
	assert.EqualValues(t, 1, rc.IncInFlight())
	assert.EqualValues(t, 2, rc.IncInFlight())
	assert.EqualValues(t, 1, rc.DecInFlight())
	assert.EqualValues(t, 1, rc.InFlight())
}

func TestClassNames(t *testing.T) {
	a, err := ir.NewStepModel(identity("A"), step.UnaryInUnaryOut, ir.Mapping{DomainType: "X"}, ir.Mapping{DomainType: "X"}, ir.Reactive, []ir.Target{ir.TargetGRPCServer}, ir.RolePipelineServer, step.DefaultParallelismHints())
	require.NoError(t, err)
	b, err := ir.NewStepModel(identity("B"), step.UnaryInUnaryOut, ir.Mapping{DomainType: "X"}, ir.Mapping{DomainType: "X"}, ir.Reactive, []ir.Target{ir.TargetGRPCServer}, ir.RolePipelineServer, step.DefaultParallelismHints())
	require.NoError(t, err)

	names := ir.ClassNames([]*ir.StepModel{a, b})
	assert.Equal(t, ir.OrderedStepList{"com.example.A", "com.example.B"}, names)
}
