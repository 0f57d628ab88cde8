package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flowforge/flowforge/internal/compiler"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Compile a pipeline template into generated step modules",
	Long: `Compile runs the pipeline template at --template through Discovery, Semantic
Analysis, Target Resolution, Binding Construction, Rendering and Order
Emission, writing role-specific source roots and the order.json /
orchestrator-clients.properties resources under --output.

Examples:
  # Compile a GRPC pipeline template
  flowforge generate --template pipeline.yaml --output build/generated

  # Mark specific steps as plugin-hosted
  flowforge generate --template pipeline.yaml --output build/generated --plugin-step ModerationFilter

  # Force orchestrator client generation even without an explicit block
  flowforge generate --template pipeline.yaml --output build/generated --generate-orchestrator`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().String("template", "", "Path to the pipeline template YAML (required)")
	generateCmd.Flags().String("output", "build/generated", "Output root for generated source roots and resources")
	generateCmd.Flags().StringSlice("source-root", []string{"."}, "Source roots Binding Construction resolves generated paths against")
	generateCmd.Flags().Bool("generate-orchestrator", false, "Force orchestrator generation even without an explicit orchestrator block")
	generateCmd.Flags().StringSlice("plugin-step", nil, "Step names that resolve to PLUGIN_SERVER/PLUGIN_CLIENT targets instead of the pipeline transport")
	generateCmd.Flags().String("cache-key-generator", "", "Global default cache-key-generator identity")
	generateCmd.Flags().StringToString("step-cache-key-generator", nil, "Per-step cache-key-generator overrides, name=generator")
	generateCmd.Flags().StringToString("orchestrator-client", nil, "Orchestrator client default tunables, key=value")

	_ = generateCmd.MarkFlagRequired("template")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	templatePath, _ := cmd.Flags().GetString("template")
	output, _ := cmd.Flags().GetString("output")
	sourceRoots, _ := cmd.Flags().GetStringSlice("source-root")
	generateOrchestrator, _ := cmd.Flags().GetBool("generate-orchestrator")
	pluginStepNames, _ := cmd.Flags().GetStringSlice("plugin-step")
	globalCacheKeyGenerator, _ := cmd.Flags().GetString("cache-key-generator")
	perStepCacheKeyGenerator, _ := cmd.Flags().GetStringToString("step-cache-key-generator")
	orchestratorClients, _ := cmd.Flags().GetStringToString("orchestrator-client")

	pluginSteps := make(map[string]bool, len(pluginStepNames))
	for _, name := range pluginStepNames {
		pluginSteps[strings.TrimSpace(name)] = true
	}

	result, err := compiler.Compile(compiler.Options{
		SourceRoots:              sourceRoots,
		TemplatePath:              templatePath,
		OutputRoot:                output,
		GenerateOrchestrator:      generateOrchestrator,
		PluginSteps:               pluginSteps,
		GlobalCacheKeyGenerator:   globalCacheKeyGenerator,
		PerStepCacheKeyGenerator:  perStepCacheKeyGenerator,
		OrchestratorClients:       orchestratorClients,
	})
	if err != nil {
		return err
	}

	fmt.Printf("compiled %d step(s) from %s\n", len(result.Models), templatePath)
	fmt.Printf("order resource:   %s\n", result.OrderPath)
	fmt.Printf("clients resource: %s\n", result.ClientsPath)
	return nil
}
