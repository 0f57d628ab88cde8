package health_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/flowforge/runtime/health"
)

func TestGate_NoProbersResolvesHealthyImmediately(t *testing.T) {
	g := health.New()

	g.Start(context.Background(), time.Second, nil)

	state, err := g.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, health.Healthy, state)
}

func TestGate_AllProbesSucceedResolvesHealthy(t *testing.T) {
	g := health.New()
	probers := []health.Prober{
		health.ProberFunc{ProbeName: "db", Fn: func(context.Context) error { return nil }},
		health.ProberFunc{ProbeName: "cache", Fn: func(context.Context) error { return nil }},
	}

	g.Start(context.Background(), time.Second, probers)

	state, err := g.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, health.Healthy, state)
}

func TestGate_FailingProbeResolvesUnhealthy(t *testing.T) {
	g := health.New()
	probers := []health.Prober{
		health.ProberFunc{ProbeName: "db", Fn: func(context.Context) error { return errors.New("unreachable") }},
	}

	g.Start(context.Background(), time.Second, probers)

	state, err := g.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, health.Unhealthy, state)
}

func TestGate_PanickingProbeResolvesError(t *testing.T) {
	g := health.New()
	probers := []health.Prober{
		health.ProberFunc{ProbeName: "boom", Fn: func(context.Context) error { panic("instantiation failure") }},
	}

	g.Start(context.Background(), time.Second, probers)

	state, err := g.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, health.Error, state)
}

func TestGate_StartupTimeoutResolvesUnhealthy(t *testing.T) {
	g := health.New()
	probers := []health.Prober{
		health.ProberFunc{ProbeName: "slow", Fn: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}},
	}

	g.Start(context.Background(), 10*time.Millisecond, probers)

	state, err := g.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, health.Unhealthy, state)
}

func TestGate_TerminalStateIsSticky(t *testing.T) {
	g := health.New()
	g.Start(context.Background(), time.Second, nil)
	_, err := g.Await(context.Background())
	require.NoError(t, err)

	g.Start(context.Background(), time.Second, []health.Prober{
		health.ProberFunc{ProbeName: "db", Fn: func(context.Context) error { return errors.New("ignored") }},
	})

	state, err := g.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, health.Healthy, state, "a terminal state must not be overwritten")
}

func TestGate_AwaitRespectsCallerTimeout(t *testing.T) {
	g := health.New()
	probers := []health.Prober{
		health.ProberFunc{ProbeName: "slow", Fn: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}},
	}
	g.Start(context.Background(), time.Minute, probers)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	state, err := g.Await(ctx)
	require.Error(t, err)
	assert.Equal(t, health.Pending, state)
}
