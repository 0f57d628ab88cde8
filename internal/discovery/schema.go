package discovery

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"
)

// templateReflector mirrors tools/schema-gen/generators/helper.go's
// newReflector: additional properties are rejected, the struct itself is
// expanded rather than wrapped in a $ref, and field names come from the
// `yaml` tag since that's the tag the template decoder uses.
func templateReflector() jsonschema.Reflector {
	return jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		ExpandedStruct:             true,
		FieldNameTag:               "yaml",
		RequiredFromJSONSchemaTags: true,
	}
}

// Schema reflects the pipeline template's JSON Schema from the Template Go
// struct, the same reflect-from-struct approach
// tools/schema-gen/generators uses for PromptKit's own resource schemas.
func Schema() *jsonschema.Schema {
	r := templateReflector()
	schema := r.Reflect(&Template{})
	schema.Version = "https://json-schema.org/draft-07/schema"
	schema.Title = "FlowForge Pipeline Template"
	schema.Description = "Build-time pipeline template consumed by the Discovery phase"
	return schema
}

// ValidateAgainstSchema validates the raw template document against the
// reflected schema, following the same
// gojsonschema.Validate(schemaLoader, documentLoader) shape as
// runtime/prompt/schema.ValidateJSONAgainstLoader.
func ValidateAgainstSchema(raw map[string]any) error {
	schemaJSON, err := json.Marshal(Schema())
	if err != nil {
		return fmt.Errorf("discovery: marshaling reflected schema: %w", err)
	}
	docJSON, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("discovery: marshaling template document: %w", err)
	}

	schemaLoader := gojsonschema.NewBytesLoader(schemaJSON)
	docLoader := gojsonschema.NewBytesLoader(docJSON)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("discovery: schema validation failed: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return &SchemaError{Violations: msgs}
	}
	return nil
}

// SchemaError reports one or more pipeline template schema violations.
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	if len(e.Violations) == 1 {
		return fmt.Sprintf("discovery: invalid pipeline template: %s", e.Violations[0])
	}
	return fmt.Sprintf("discovery: invalid pipeline template (%d violations): %v", len(e.Violations), e.Violations)
}
