package ir

// Binding is a transport-specific binding derived from a StepModel by
// Binding Construction (§4.1.4). Bindings are derived, immutable, and
// never escape their renderer — once a renderer consumes one it must not
// be mutated or handed to another renderer.
type Binding interface {
	// StepName returns the owning step's logical name, for diagnostics.
	StepName() string
	// Target is the generation target this binding was constructed for.
	Target() Target
}

// GrpcBinding binds a StepModel to a gRPC service/method descriptor pair.
// TargetSide distinguishes the server-side and client-side binding built
// for the same descriptor pair (§4.1.4 constructs one Binding per enabled
// target, and GRPC_SERVER/GRPC_CLIENT are both enabled for GRPC steps).
type GrpcBinding struct {
	Model             *StepModel
	ServiceDescriptor string
	MethodDescriptor  string
	TargetSide        Target
}

// StepName implements Binding.
func (b GrpcBinding) StepName() string { return b.Model.Identity.Name }

// Target implements Binding.
func (b GrpcBinding) Target() Target { return b.TargetSide }

// RestBinding binds a StepModel to a REST path, optionally overriding the
// default derived-from-name path. TargetSide distinguishes the
// REST_SERVER and REST_CLIENT bindings built for the same path.
type RestBinding struct {
	Model        *StepModel
	PathOverride string
	TargetSide   Target
}

// StepName implements Binding.
func (b RestBinding) StepName() string { return b.Model.Identity.Name }

// Target implements Binding.
func (b RestBinding) Target() Target { return b.TargetSide }

// OrchestratorBinding binds a StepModel into the orchestrator's module
// graph: the steps it owns (for a synthetic side-effect expansion this is
// the singleton owning step) and the client defaults applied to each
// downstream call.
type OrchestratorBinding struct {
	Model          *StepModel
	ModuleSteps    []string
	ClientDefaults map[string]string
}

// StepName implements Binding.
func (b OrchestratorBinding) StepName() string { return b.Model.Identity.Name }

// Target implements Binding.
func (b OrchestratorBinding) Target() Target { return TargetOrchestrator }

// PluginBinding binds a StepModel hosted behind a plugin boundary: the
// server-side handler delegates to the plugin implementation named by
// HostedStep.
type PluginBinding struct {
	Model      *StepModel
	HostedStep string
	IsServer   bool
}

// StepName implements Binding.
func (b PluginBinding) StepName() string { return b.Model.Identity.Name }

// Target implements Binding.
func (b PluginBinding) Target() Target {
	if b.IsServer {
		return TargetPluginServer
	}
	return TargetPluginClient
}
