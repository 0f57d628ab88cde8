package step_test

import (
	"errors"
	"testing"

	"github.com/flowforge/flowforge/runtime/step"
	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	cause := errors.New("timeout")
	err := step.NewError("normalize", step.UnaryInUnaryOut, 2, cause)

	assert.Equal(t, "step 'normalize' (UNARY_IN_UNARY_OUT) failed: timeout", err.Error())
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("timeout")
	err := step.NewError("normalize", step.UnaryInUnaryOut, 2, cause)

	assert.ErrorIs(t, err, cause)
}

func TestError_Fields(t *testing.T) {
	cause := errors.New("boom")
	err := step.NewError("render", step.StreamInStreamOut, 1, cause)

	assert.Equal(t, "render", err.StepName)
	assert.Equal(t, step.StreamInStreamOut, err.Shape)
	assert.Equal(t, 1, err.Attempt)
	assert.Equal(t, cause, err.Cause)
}
