package step_test

import (
	"testing"

	"github.com/flowforge/flowforge/runtime/step"
	"github.com/stretchr/testify/assert"
)

func TestShape_String(t *testing.T) {
	tests := []struct {
		shape step.Shape
		want  string
	}{
		{step.UnaryInUnaryOut, "UNARY_IN_UNARY_OUT"},
		{step.UnaryInStreamOut, "UNARY_IN_STREAM_OUT"},
		{step.StreamInUnaryOut, "STREAM_IN_UNARY_OUT"},
		{step.StreamInStreamOut, "STREAM_IN_STREAM_OUT"},
		{step.SideEffect, "SIDE_EFFECT"},
		{step.Shape(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.shape.String())
	}
}

func TestShape_InputIsStream(t *testing.T) {
	assert.False(t, step.UnaryInUnaryOut.InputIsStream())
	assert.False(t, step.UnaryInStreamOut.InputIsStream())
	assert.True(t, step.StreamInUnaryOut.InputIsStream())
	assert.True(t, step.StreamInStreamOut.InputIsStream())
	assert.False(t, step.SideEffect.InputIsStream())
}

func TestShape_OutputIsStream(t *testing.T) {
	assert.False(t, step.UnaryInUnaryOut.OutputIsStream())
	assert.True(t, step.UnaryInStreamOut.OutputIsStream())
	assert.False(t, step.StreamInUnaryOut.OutputIsStream())
	assert.True(t, step.StreamInStreamOut.OutputIsStream())
	assert.False(t, step.SideEffect.OutputIsStream())
}

func TestShape_IsAutoParallelCandidate(t *testing.T) {
	assert.True(t, step.UnaryInStreamOut.IsAutoParallelCandidate())
	assert.False(t, step.UnaryInUnaryOut.IsAutoParallelCandidate())
	assert.False(t, step.StreamInUnaryOut.IsAutoParallelCandidate())
	assert.False(t, step.StreamInStreamOut.IsAutoParallelCandidate())
	assert.False(t, step.SideEffect.IsAutoParallelCandidate())
}
