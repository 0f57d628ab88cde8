package ir

import (
	"fmt"

	"github.com/flowforge/flowforge/runtime/step"
)

// Mapping describes a step's input or output type: the domain type always
// present, and an optional mapper type present iff the wire type differs
// from the domain type (§3 StepModel invariant).
type Mapping struct {
	DomainType string
	WireType   string
	MapperType string
}

// HasMapper reports whether this mapping requires a generated mapper
// (domain type differs from wire type).
func (m Mapping) HasMapper() bool {
	return m.MapperType != ""
}

func (m Mapping) validate(label string) error {
	if m.DomainType == "" {
		return fmt.Errorf("ir: %s mapping missing domain type", label)
	}
	wireDiffers := m.WireType != "" && m.WireType != m.DomainType
	if wireDiffers && m.MapperType == "" {
		return fmt.Errorf("ir: %s mapping: wire type %q differs from domain type %q but no mapper type given", label, m.WireType, m.DomainType)
	}
	if !wireDiffers && m.MapperType != "" {
		return fmt.Errorf("ir: %s mapping: mapper type %q given but wire type equals domain type %q", label, m.MapperType, m.DomainType)
	}
	return nil
}

// StepModel is the immutable per-step IR described in §3. Construct with
// NewStepModel; the zero value is not valid. Once built, a StepModel is
// never mutated — Semantic Analysis, Target Resolution and Binding
// Construction append new fields via successive NewStepModel calls rather
// than editing in place.
type StepModel struct {
	Identity         ServiceIdentity
	Shape            step.Shape
	InputMapping     Mapping
	OutputMapping    Mapping
	ExecutionMode    ExecutionMode
	EnabledTargets   []Target
	DeploymentRole   DeploymentRole
	ParallelismHints step.ParallelismHints
}

// NewStepModel constructs a StepModel and validates the invariants from
// spec §3: a mapper is present exactly when domain type != wire type, and
// SIDE_EFFECT steps have identical input/output domain types.
func NewStepModel(identity ServiceIdentity, shape step.Shape, in, out Mapping, mode ExecutionMode, targets []Target, role DeploymentRole, hints step.ParallelismHints) (*StepModel, error) {
	if identity.Name == "" {
		return nil, fmt.Errorf("ir: step model requires a non-empty identity name")
	}
	if err := in.validate("input"); err != nil {
		return nil, err
	}
	if err := out.validate("output"); err != nil {
		return nil, err
	}
	if shape == step.SideEffect && in.DomainType != out.DomainType {
		return nil, fmt.Errorf("ir: step %q: SIDE_EFFECT steps must have identical input/output domain types, got %q and %q", identity.Name, in.DomainType, out.DomainType)
	}
	if !role.CanEmit(targets) {
		return nil, fmt.Errorf("ir: step %q: deployment role %s is not reachable from enabled targets %v", identity.Name, role, targets)
	}
	return &StepModel{
		Identity:         identity,
		Shape:            shape,
		InputMapping:     in,
		OutputMapping:    out,
		ExecutionMode:    mode,
		EnabledTargets:   targets,
		DeploymentRole:   role,
		ParallelismHints: hints,
	}, nil
}

// IsSideEffect reports whether this model is a (possibly synthetic)
// side-effect step.
func (m *StepModel) IsSideEffect() bool {
	return m.Shape == step.SideEffect
}
