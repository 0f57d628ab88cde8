package ir

import (
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// AspectPosition is where an aspect runs relative to the step(s) it applies to.
type AspectPosition int

const (
	BeforeStep AspectPosition = iota
	AfterStep
)

// String returns the canonical template spelling of the position.
func (p AspectPosition) String() string {
	if p == AfterStep {
		return "AFTER_STEP"
	}
	return "BEFORE_STEP"
}

// ParseAspectPosition parses a pipeline template `position` field.
func ParseAspectPosition(s string) (AspectPosition, error) {
	switch s {
	case "BEFORE_STEP":
		return BeforeStep, nil
	case "AFTER_STEP":
		return AfterStep, nil
	default:
		return 0, fmt.Errorf("ir: unknown aspect position %q", s)
	}
}

// AspectScope is which steps an aspect applies to.
type AspectScope int

const (
	GlobalScope AspectScope = iota
	StepSubsetScope
)

// String returns the canonical template spelling of the scope.
func (s AspectScope) String() string {
	if s == StepSubsetScope {
		return "STEP_SUBSET"
	}
	return "GLOBAL"
}

// AspectModel describes a cross-cutting behavior declared in the pipeline
// template's `aspects` map (§3). Aspects with Position=AfterStep and a
// cache/persistence Category are expanded by Semantic Analysis into
// synthetic SIDE_EFFECT StepModels.
type AspectModel struct {
	Name     string
	Position AspectPosition
	Scope    AspectScope
	Steps    []string // step-subset scope membership; empty for GLOBAL
	Order    int
	Enabled  bool
	Category string // e.g. "cache", "persistence"; drives expansion flagging
	Config   map[string]any
	Meta     metav1.ObjectMeta
}

// NewAspectModel constructs an AspectModel, deriving its ObjectMeta
// identity block from name/position/scope/config the way discovery loads
// it off the template.
func NewAspectModel(name string, position AspectPosition, scope AspectScope, steps []string, order int, enabled bool, category string, config map[string]any) AspectModel {
	return AspectModel{
		Name:     name,
		Position: position,
		Scope:    scope,
		Steps:    steps,
		Order:    order,
		Enabled:  enabled,
		Category: category,
		Config:   config,
		Meta:     ObjectMetaFor(name, position.String(), scope.String(), config),
	}
}

// RequiresExpansion reports whether this aspect must be expanded into a
// synthetic side-effect step by Semantic Analysis: it runs after the step
// and belongs to a category (cache/persistence) with an observable side
// effect.
func (a AspectModel) RequiresExpansion() bool {
	if !a.Enabled || a.Position != AfterStep {
		return false
	}
	switch a.Category {
	case "cache", "persistence":
		return true
	default:
		return false
	}
}

// AppliesTo reports whether this aspect applies to the named step.
func (a AspectModel) AppliesTo(stepName string) bool {
	if a.Scope == GlobalScope {
		return true
	}
	for _, s := range a.Steps {
		if s == stepName {
			return true
		}
	}
	return false
}
