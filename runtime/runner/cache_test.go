package runner_test

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/flowforge/flowforge/runtime/runner"
	"github.com/flowforge/flowforge/runtime/step"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEnforcer struct {
	calls []string
}

func (e *recordingEnforcer) Enforce(_ context.Context, stepName string, item int) (int, bool, error) {
	e.calls = append(e.calls, stepName)
	return item * 10, true, nil
}

func TestCacheEnforcer_CustomImplementationIsInvoked(t *testing.T) {
	enforcer := &recordingEnforcer{}
	r := runner.New[int](runner.WithCacheEnforcer[int](enforcer))

	result, err := r.Run(context.Background(), runner.Unary(4), false, nil)
	require.NoError(t, err)

	var got []int
	for v := range result.Output {
		got = append(got, v)
	}
	assert.Equal(t, []int{4}, got) // no steps: cache enforcement only applies after a step, not to the raw source
}

// missOnEnforcer fails enforcement for exactly one item, simulating a
// REQUIRE_CACHE/CACHE_ONLY miss (cache.ErrCacheRequired) on that item only.
type missOnEnforcer struct {
	miss int
}

func (e *missOnEnforcer) Enforce(_ context.Context, _ string, item int) (int, bool, error) {
	if item == e.miss {
		return 0, false, errors.New("cache miss required")
	}
	return item, true, nil
}

func TestCacheEnforcer_PerItemMissDropsOnlyThatItemRunContinues(t *testing.T) {
	passthrough := newFuncStep("passthrough", step.UnaryInUnaryOut, step.DefaultConfig(),
		func(_ context.Context, v int, out chan<- int) error {
			out <- v
			return nil
		})

	src := make(chan int, 3)
	src <- 1
	src <- 2
	src <- 3
	close(src)

	r := runner.New[int](
		runner.WithPolicy[int](step.Sequential),
		runner.WithCacheEnforcer[int](&missOnEnforcer{miss: 2}),
	)
	result, err := r.Run(context.Background(), src, true, []step.Step[int]{passthrough})
	require.NoError(t, err)

	got := collect(result.Output)
	sort.Ints(got)
	assert.Equal(t, []int{1, 3}, got)
	require.NoError(t, drainErr(t, result.Err))
}
