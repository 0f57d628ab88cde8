// Package ir holds the compiler's immutable intermediate representation:
// StepModel, AspectModel, OrchestratorModel and the per-target Binding
// variants described in spec §3. Build-time phases own these models
// sequentially; once Semantic Analysis and Binding Construction have run,
// they are read-only inputs to the renderers.
package ir

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// ServiceIdentity names a step: the package it lives in, its logical name
// (used in diagnostics and telemetry), and its canonical generated
// class/type name.
type ServiceIdentity struct {
	Package   string
	Name      string
	ClassName string
}

// ObjectMetaFor builds a Kubernetes-style ObjectMeta for an aspect, the way
// tools/schema-gen reflects metav1.ObjectMeta for PromptKit resource
// schemas: Name carries the aspect's declared name, Labels carries its
// scope/position as queryable facets, and Annotations carries the
// string-valued entries of its free-form config map (non-string values
// are not representable as annotations and stay in AspectModel.RawConfig).
func ObjectMetaFor(name, position, scope string, rawConfig map[string]any) metav1.ObjectMeta {
	annotations := make(map[string]string, len(rawConfig))
	for k, v := range rawConfig {
		if s, ok := v.(string); ok {
			annotations[k] = s
		}
	}
	return metav1.ObjectMeta{
		Name: name,
		Labels: map[string]string{
			"flowforge.io/position": position,
			"flowforge.io/scope":    scope,
		},
		Annotations: annotations,
	}
}
