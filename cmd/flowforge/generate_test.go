package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const generateTestTemplate = `
appName: CheckoutPipeline
basePackage: com.example.checkout
transport: GRPC
steps:
  - name: Normalize
    cardinality: ONE_TO_ONE
    inputTypeName: RawOrder
    outputTypeName: Order
`

func newGenerateTestCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "generate", RunE: runGenerate}
	cmd.Flags().String("template", "", "")
	cmd.Flags().String("output", "build/generated", "")
	cmd.Flags().StringSlice("source-root", []string{"."}, "")
	cmd.Flags().Bool("generate-orchestrator", false, "")
	cmd.Flags().StringSlice("plugin-step", nil, "")
	cmd.Flags().String("cache-key-generator", "", "")
	cmd.Flags().StringToString("step-cache-key-generator", nil, "")
	cmd.Flags().StringToString("orchestrator-client", nil, "")
	return cmd
}

func TestRunGenerate_CompilesTemplate(t *testing.T) {
	dir := t.TempDir()
	templatePath := filepath.Join(dir, "pipeline.yaml")
	require.NoError(t, os.WriteFile(templatePath, []byte(generateTestTemplate), 0o644))
	output := filepath.Join(dir, "out")

	cmd := newGenerateTestCmd()
	require.NoError(t, cmd.Flags().Set("template", templatePath))
	require.NoError(t, cmd.Flags().Set("output", output))

	require.NoError(t, cmd.RunE(cmd, nil))

	_, err := os.Stat(filepath.Join(output, "META-INF", "pipeline", "order.json"))
	require.NoError(t, err)
}

func TestRunGenerate_MissingTemplateFileFails(t *testing.T) {
	dir := t.TempDir()
	cmd := newGenerateTestCmd()
	require.NoError(t, cmd.Flags().Set("template", filepath.Join(dir, "missing.yaml")))
	require.NoError(t, cmd.Flags().Set("output", filepath.Join(dir, "out")))

	require.Error(t, cmd.RunE(cmd, nil))
}
