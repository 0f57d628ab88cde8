package ir

// OrchestratorModel declares the pipeline's entry point, built by Semantic
// Analysis when an orchestrator artifact is required (explicit template
// declaration or a global CLI flag).
type OrchestratorModel struct {
	EntryInputType    string
	GenerateCLI       bool
	DownstreamModules []string
}
