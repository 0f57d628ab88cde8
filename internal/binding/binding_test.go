package binding_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/flowforge/internal/binding"
	"github.com/flowforge/flowforge/internal/ir"
	"github.com/flowforge/flowforge/internal/semantic"
	"github.com/flowforge/flowforge/internal/target"
	"github.com/flowforge/flowforge/runtime/step"
)

func draft(name string, owningAspect *ir.AspectModel) semantic.StepDraft {
	kind := semantic.OrdinaryStep
	if owningAspect != nil {
		kind = semantic.SyntheticSideEffectStep
	}
	return semantic.StepDraft{
		Identity:         ir.ServiceIdentity{Package: "com.example", Name: name, ClassName: "com.example." + name},
		Shape:            step.UnaryInUnaryOut,
		InputMapping:     ir.Mapping{DomainType: "Item"},
		OutputMapping:    ir.Mapping{DomainType: "Item"},
		ExecutionMode:    ir.Reactive,
		ParallelismHints: step.DefaultParallelismHints(),
		Kind:             kind,
		OwningAspect:     owningAspect,
	}
}

func TestConstruct_OneBindingPerEnabledTarget(t *testing.T) {
	drafts := []semantic.StepDraft{draft("Normalize", nil)}
	models, err := target.Resolve(drafts, "GRPC", nil)
	require.NoError(t, err)

	c, err := binding.Construct(drafts, models, "", nil)
	require.NoError(t, err)
	require.Len(t, c.Bindings, 2)

	var sawGrpc, sawClient bool
	for _, b := range c.Bindings {
		switch b.Target() {
		case ir.TargetGRPCServer:
			sawGrpc = true
		case ir.TargetGRPCClient:
			sawClient = true
		}
		assert.Equal(t, "Normalize", b.StepName())
	}
	assert.True(t, sawGrpc)
	assert.True(t, sawClient)
}

func TestConstruct_RESTPathDerivation(t *testing.T) {
	drafts := []semantic.StepDraft{draft("ValidateOrder", nil)}
	models, err := target.Resolve(drafts, "REST", nil)
	require.NoError(t, err)

	c, err := binding.Construct(drafts, models, "", nil)
	require.NoError(t, err)

	var found bool
	for _, b := range c.Bindings {
		if rb, ok := b.(ir.RestBinding); ok {
			found = true
			assert.Equal(t, "/v1/validate-order", rb.PathOverride)
		}
	}
	assert.True(t, found)
}

func TestConstruct_CacheKeyGeneratorResolution(t *testing.T) {
	aspect := ir.NewAspectModel("cache-writer", ir.AfterStep, ir.GlobalScope, nil, 1, true, "cache", nil)
	drafts := []semantic.StepDraft{draft("FetchUser_cache-writer", &aspect)}
	models, err := target.Resolve(drafts, "GRPC", nil)
	require.NoError(t, err)

	t.Run("falls back to global default", func(t *testing.T) {
		c, err := binding.Construct(drafts, models, "murmur3", nil)
		require.NoError(t, err)
		assert.Equal(t, "murmur3", c.CacheKeyGenerators["FetchUser_cache-writer"])
	})

	t.Run("per-step override wins over global default", func(t *testing.T) {
		c, err := binding.Construct(drafts, models, "murmur3", map[string]string{"FetchUser_cache-writer": "fnv1a"})
		require.NoError(t, err)
		assert.Equal(t, "fnv1a", c.CacheKeyGenerators["FetchUser_cache-writer"])
	})

	t.Run("defaults when nothing configured", func(t *testing.T) {
		c, err := binding.Construct(drafts, models, "", nil)
		require.NoError(t, err)
		assert.Equal(t, "default", c.CacheKeyGenerators["FetchUser_cache-writer"])
	})
}

func TestConstruct_NonCacheAspectStepsHaveNoCacheKeyGenerator(t *testing.T) {
	drafts := []semantic.StepDraft{draft("Normalize", nil)}
	models, err := target.Resolve(drafts, "GRPC", nil)
	require.NoError(t, err)

	c, err := binding.Construct(drafts, models, "murmur3", nil)
	require.NoError(t, err)
	assert.Empty(t, c.CacheKeyGenerators)
}

func TestConstruct_LengthMismatch(t *testing.T) {
	drafts := []semantic.StepDraft{draft("A", nil), draft("B", nil)}
	models, err := target.Resolve(drafts[:1], "GRPC", nil)
	require.NoError(t, err)

	_, err = binding.Construct(drafts, models, "", nil)
	require.Error(t, err)
}

func TestBuildOrchestratorBinding(t *testing.T) {
	drafts := []semantic.StepDraft{draft("Entry", nil)}
	models, err := target.Resolve(drafts, "GRPC", nil)
	require.NoError(t, err)

	orch := &ir.OrchestratorModel{EntryInputType: "Order", DownstreamModules: []string{"Entry"}}
	ob := binding.BuildOrchestratorBinding(orch, models[0], map[string]string{"timeout": "5s"})
	assert.Equal(t, "Entry", ob.StepName())
	assert.Equal(t, ir.TargetOrchestrator, ob.Target())
	assert.Equal(t, []string{"Entry"}, ob.ModuleSteps)
	assert.Equal(t, "5s", ob.ClientDefaults["timeout"])
}
