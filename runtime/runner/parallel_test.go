package runner

import (
	"errors"
	"testing"

	"github.com/flowforge/flowforge/runtime/step"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveParallel_UnsafeNonSequentialIsFatal(t *testing.T) {
	hints := step.ParallelismHints{ThreadSafety: step.Unsafe, Ordering: step.Relaxed}

	_, err := resolveParallel(hints, step.Auto, step.UnaryInStreamOut)

	require.Error(t, err)
	assert.True(t, errors.Is(err, step.ErrThreadSafetyPolicyConflict))
}

func TestResolveParallel_UnsafeSequentialIsFine(t *testing.T) {
	hints := step.ParallelismHints{ThreadSafety: step.Unsafe, Ordering: step.Relaxed}

	dec, err := resolveParallel(hints, step.Sequential, step.UnaryInStreamOut)

	require.NoError(t, err)
	assert.False(t, dec.parallel)
}

func TestResolveParallel_StrictRequiredNonSequentialIsFatal(t *testing.T) {
	hints := step.ParallelismHints{ThreadSafety: step.Safe, Ordering: step.StrictRequired}

	_, err := resolveParallel(hints, step.Parallel, step.UnaryInStreamOut)

	require.Error(t, err)
	assert.True(t, errors.Is(err, step.ErrOrderingPolicyConflict))
}

func TestResolveParallel_SequentialPolicyAlwaysSequential(t *testing.T) {
	hints := step.DefaultParallelismHints()

	dec, err := resolveParallel(hints, step.Sequential, step.UnaryInStreamOut)

	require.NoError(t, err)
	assert.False(t, dec.parallel)
}

func TestResolveParallel_StrictAdvisedAutoIsSequentialWithAdvisory(t *testing.T) {
	hints := step.ParallelismHints{ThreadSafety: step.Safe, Ordering: step.StrictAdvised}

	dec, err := resolveParallel(hints, step.Auto, step.UnaryInStreamOut)

	require.NoError(t, err)
	assert.False(t, dec.parallel)
	assert.True(t, dec.advisoryLog)
	assert.False(t, dec.overrideLog)
}

func TestResolveParallel_StrictAdvisedParallelIsParallelWithOverride(t *testing.T) {
	hints := step.ParallelismHints{ThreadSafety: step.Safe, Ordering: step.StrictAdvised}

	dec, err := resolveParallel(hints, step.Parallel, step.UnaryInStreamOut)

	require.NoError(t, err)
	assert.True(t, dec.parallel)
	assert.True(t, dec.overrideLog)
}

func TestResolveParallel_ParallelPolicyIsParallel(t *testing.T) {
	hints := step.DefaultParallelismHints()

	dec, err := resolveParallel(hints, step.Parallel, step.UnaryInUnaryOut)

	require.NoError(t, err)
	assert.True(t, dec.parallel)
}

func TestResolveParallel_AutoCandidateIsParallel(t *testing.T) {
	hints := step.DefaultParallelismHints()

	dec, err := resolveParallel(hints, step.Auto, step.UnaryInStreamOut)

	require.NoError(t, err)
	assert.True(t, dec.parallel)
}

func TestResolveParallel_AutoNonCandidateIsSequential(t *testing.T) {
	hints := step.DefaultParallelismHints()

	dec, err := resolveParallel(hints, step.Auto, step.UnaryInUnaryOut)

	require.NoError(t, err)
	assert.False(t, dec.parallel)
}

func TestClampConcurrency(t *testing.T) {
	assert.Equal(t, 1, clampConcurrency(0))
	assert.Equal(t, 1, clampConcurrency(-5))
	assert.Equal(t, 128, clampConcurrency(128))
}
