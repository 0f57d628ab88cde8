package discovery

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	pkgerrors "github.com/flowforge/flowforge/pkg/errors"
)

// Declarations is what Discovery contributes to the shared compilation
// context (§4.1.1): raw step declarations, aspect declarations (sorted by
// declared order for deterministic downstream processing), the transport
// selection and the orchestrator declaration if present.
type Declarations struct {
	AppName      string
	BasePackage  string
	Transport    string
	SourceRoots  []string
	Steps        []StepDecl
	Aspects      []AspectDecl
	Orchestrator *OrchestratorDecl
}

// Discover loads and validates the pipeline template at templatePath and
// records sourceRoots for later phases (Binding Construction resolves
// generated-file paths relative to them). It never mutates source files;
// it only reads the template and reports missing required fields or an
// unknown transport per §4.1.1's stated failure policy.
func Discover(sourceRoots []string, templatePath string) (*Declarations, error) {
	data, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, pkgerrors.New("discovery", "Discover", err).WithDetails(map[string]any{"templatePath": templatePath})
	}

	var tmpl Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, pkgerrors.New("discovery", "Discover", fmt.Errorf("parsing pipeline template: %w", err))
	}

	if err := validateRequiredFields(&tmpl); err != nil {
		return nil, pkgerrors.New("discovery", "Discover", err)
	}

	var asMap map[string]any
	if err := yaml.Unmarshal(data, &asMap); err != nil {
		return nil, pkgerrors.New("discovery", "Discover", fmt.Errorf("re-parsing template for schema validation: %w", err))
	}
	if err := ValidateAgainstSchema(stringifyKeys(asMap)); err != nil {
		return nil, pkgerrors.New("discovery", "Discover", err)
	}

	aspects := make([]AspectDecl, 0, len(tmpl.Aspects))
	for name, decl := range tmpl.Aspects {
		decl.Name = name
		aspects = append(aspects, decl)
	}
	sort.Slice(aspects, func(i, j int) bool {
		if aspects[i].Order != aspects[j].Order {
			return aspects[i].Order < aspects[j].Order
		}
		return aspects[i].Name < aspects[j].Name
	})

	return &Declarations{
		AppName:      tmpl.AppName,
		BasePackage:  tmpl.BasePackage,
		Transport:    tmpl.Transport,
		SourceRoots:  sourceRoots,
		Steps:        tmpl.Steps,
		Aspects:      aspects,
		Orchestrator: tmpl.Orchestrator,
	}, nil
}

func validateRequiredFields(tmpl *Template) error {
	var missing []string
	if tmpl.AppName == "" {
		missing = append(missing, "appName")
	}
	if tmpl.BasePackage == "" {
		missing = append(missing, "basePackage")
	}
	if len(tmpl.Steps) == 0 {
		missing = append(missing, "steps")
	}
	if len(missing) > 0 {
		return fmt.Errorf("pipeline template missing required fields: %v", missing)
	}

	switch tmpl.Transport {
	case "GRPC", "REST":
	default:
		return fmt.Errorf("pipeline template declares unknown transport %q (must be GRPC or REST)", tmpl.Transport)
	}

	for i, s := range tmpl.Steps {
		if s.Name == "" {
			return fmt.Errorf("step at index %d missing required field: name", i)
		}
		if s.Cardinality == "" {
			return fmt.Errorf("step %q missing required field: cardinality", s.Name)
		}
		if s.InputTypeName == "" {
			return fmt.Errorf("step %q missing required field: inputTypeName", s.Name)
		}
		if s.OutputTypeName == "" {
			return fmt.Errorf("step %q missing required field: outputTypeName", s.Name)
		}
	}
	return nil
}

// stringifyKeys converts a yaml.v3-decoded map[string]any (which may
// contain map[string]any at every level, unlike json.Unmarshal's
// map[string]interface{}) into a structure encoding/json can marshal
// without error. gopkg.in/yaml.v3 already decodes mapping nodes as
// map[string]interface{} when the target is `any`, so this normalizes
// only nested slices/maps for safety against stray non-string keys.
func stringifyKeys(v any) map[string]any {
	out, _ := v.(map[string]any)
	if out == nil {
		return map[string]any{}
	}
	return out
}
