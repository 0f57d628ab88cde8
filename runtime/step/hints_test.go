package step_test

import (
	"testing"

	"github.com/flowforge/flowforge/runtime/step"
	"github.com/stretchr/testify/assert"
)

func TestOrdering_String(t *testing.T) {
	assert.Equal(t, "RELAXED", step.Relaxed.String())
	assert.Equal(t, "STRICT_ADVISED", step.StrictAdvised.String())
	assert.Equal(t, "STRICT_REQUIRED", step.StrictRequired.String())
	assert.Equal(t, "UNKNOWN", step.Ordering(99).String())
}

func TestThreadSafety_String(t *testing.T) {
	assert.Equal(t, "SAFE", step.Safe.String())
	assert.Equal(t, "UNSAFE", step.Unsafe.String())
	assert.Equal(t, "UNKNOWN", step.ThreadSafety(99).String())
}

func TestPolicy_String(t *testing.T) {
	assert.Equal(t, "AUTO", step.Auto.String())
	assert.Equal(t, "SEQUENTIAL", step.Sequential.String())
	assert.Equal(t, "PARALLEL", step.Parallel.String())
	assert.Equal(t, "UNKNOWN", step.Policy(99).String())
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    step.Policy
		wantErr bool
	}{
		{"AUTO", step.Auto, false},
		{"", step.Auto, false},
		{"sequential", step.Sequential, false},
		{"PARALLEL", step.Parallel, false},
		{"bogus", step.Auto, true},
	}
	for _, tt := range tests {
		got, err := step.ParsePolicy(tt.in)
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}
		assert.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestDefaultParallelismHints(t *testing.T) {
	hints := step.DefaultParallelismHints()
	assert.Equal(t, step.Relaxed, hints.Ordering)
	assert.Equal(t, step.Safe, hints.ThreadSafety)
}
