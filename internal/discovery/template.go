// Package discovery implements the §4.1.1 Discovery phase: it finds the
// pipeline template (YAML) described in §6 and loads it into raw
// declarations for Semantic Analysis, validating both required fields and
// the template's shape against a reflected JSON Schema.
package discovery

// FieldDecl is one field of a step's input or output type (§6).
type FieldDecl struct {
	Name      string `yaml:"name" json:"name"`
	Type      string `yaml:"type" json:"type"`
	ProtoType string `yaml:"protoType,omitempty" json:"protoType,omitempty"`
}

// StepDecl is one `steps[]` entry of the pipeline template (§6).
type StepDecl struct {
	Name           string      `yaml:"name" json:"name" jsonschema:"required"`
	Cardinality    string      `yaml:"cardinality" json:"cardinality" jsonschema:"required,enum=ONE_TO_ONE,enum=EXPANSION,enum=REDUCTION,enum=SIDE_EFFECT,enum=MANY_TO_MANY"`
	InputTypeName  string      `yaml:"inputTypeName" json:"inputTypeName" jsonschema:"required"`
	InputFields    []FieldDecl `yaml:"inputFields,omitempty" json:"inputFields,omitempty"`
	OutputTypeName string      `yaml:"outputTypeName" json:"outputTypeName" jsonschema:"required"`
	OutputFields   []FieldDecl `yaml:"outputFields,omitempty" json:"outputFields,omitempty"`
	Parallel       string      `yaml:"parallel,omitempty" json:"parallel,omitempty"`
}

// AspectDecl is one entry of the template's `aspects` map (§6). Name is
// populated from the map key during loading; it is not itself a YAML
// field of the aspect body.
type AspectDecl struct {
	Name     string         `yaml:"-" json:"-"`
	Enabled  bool           `yaml:"enabled" json:"enabled"`
	Position string         `yaml:"position" json:"position" jsonschema:"enum=BEFORE_STEP,enum=AFTER_STEP"`
	Scope    string         `yaml:"scope" json:"scope"`
	Steps    []string       `yaml:"steps,omitempty" json:"steps,omitempty"`
	Order    int            `yaml:"order" json:"order"`
	Category string         `yaml:"category,omitempty" json:"category,omitempty"`
	Config   map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
}

// OrchestratorDecl is the template's optional `orchestrator` block.
type OrchestratorDecl struct {
	EntryInputType    string   `yaml:"entryInputType" json:"entryInputType"`
	GenerateCLI       bool     `yaml:"generateCli" json:"generateCli"`
	DownstreamModules []string `yaml:"downstreamModules,omitempty" json:"downstreamModules,omitempty"`
}

// Template is the pipeline template YAML root (§6): appName, basePackage,
// transport, ordered steps, optional aspects map and orchestrator
// declaration.
type Template struct {
	AppName      string                `yaml:"appName" json:"appName" jsonschema:"required"`
	BasePackage  string                `yaml:"basePackage" json:"basePackage" jsonschema:"required"`
	Transport    string                `yaml:"transport" json:"transport" jsonschema:"required,enum=GRPC,enum=REST"`
	Steps        []StepDecl            `yaml:"steps" json:"steps" jsonschema:"required,minItems=1"`
	Aspects      map[string]AspectDecl `yaml:"aspects,omitempty" json:"aspects,omitempty"`
	Orchestrator *OrchestratorDecl     `yaml:"orchestrator,omitempty" json:"orchestrator,omitempty"`
}
