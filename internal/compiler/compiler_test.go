package compiler_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/flowforge/internal/compiler"
)

const validTemplate = `
appName: CheckoutPipeline
basePackage: com.example.checkout
transport: GRPC
steps:
  - name: Normalize
    cardinality: ONE_TO_ONE
    inputTypeName: RawOrder
    outputTypeName: Order
  - name: FetchUser
    cardinality: ONE_TO_ONE
    inputTypeName: Order
    outputTypeName: EnrichedOrder
aspects:
  cache-writer:
    enabled: true
    position: AFTER_STEP
    scope: STEP_SUBSET
    order: 1
    category: cache
    steps: ["FetchUser"]
orchestrator:
  entryInputType: RawOrder
  generateCli: true
  downstreamModules: ["Normalize", "FetchUser"]
`

func writeTemplate(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestCompile_FullRoundProducesAllArtifacts(t *testing.T) {
	templatePath := writeTemplate(t, validTemplate)
	outputRoot := filepath.Join(t.TempDir(), "out")

	result, err := compiler.Compile(compiler.Options{
		SourceRoots:             []string{"."},
		TemplatePath:            templatePath,
		OutputRoot:               outputRoot,
		GlobalCacheKeyGenerator:  "murmur3",
		OrchestratorClients:      map[string]string{"timeout": "5s"},
	})
	require.NoError(t, err)

	assert.Len(t, result.Models, 3) // Normalize, FetchUser, FetchUser_cache-writer
	assert.Equal(t, "murmur3", result.Construction.CacheKeyGenerators["FetchUser_cache-writer"])

	for _, dir := range []string{"pipeline-server", "orchestrator-client"} {
		entries, err := os.ReadDir(filepath.Join(outputRoot, dir))
		require.NoError(t, err)
		assert.NotEmpty(t, entries)
	}

	data, err := os.ReadFile(filepath.Join(outputRoot, "META-INF", "pipeline", "order.json"))
	require.NoError(t, err)
	var names []string
	require.NoError(t, json.Unmarshal(data, &names))
	assert.Equal(t, []string{
		"com.example.checkout.Normalize",
		"com.example.checkout.FetchUser",
		"com.example.checkout.FetchUser_cache-writer",
	}, names)

	clientsData, err := os.ReadFile(filepath.Join(outputRoot, "META-INF", "pipeline", "orchestrator-clients.properties"))
	require.NoError(t, err)
	assert.Equal(t, "timeout=5s\n", string(clientsData))
}

func TestCompile_DiscoveryFailureWritesNoOutput(t *testing.T) {
	templatePath := writeTemplate(t, "appName: Broken\n")
	outputRoot := filepath.Join(t.TempDir(), "out")

	_, err := compiler.Compile(compiler.Options{
		SourceRoots:  []string{"."},
		TemplatePath: templatePath,
		OutputRoot:   outputRoot,
	})
	require.Error(t, err)

	_, statErr := os.Stat(outputRoot)
	assert.True(t, os.IsNotExist(statErr))
}

func TestCompile_RESTTransportProducesRestServerAndClient(t *testing.T) {
	templatePath := writeTemplate(t, `
appName: Checkout
basePackage: com.example
transport: REST
steps:
  - name: Validate
    cardinality: ONE_TO_ONE
    inputTypeName: Order
    outputTypeName: Order
`)
	outputRoot := filepath.Join(t.TempDir(), "out")

	_, err := compiler.Compile(compiler.Options{
		SourceRoots:  []string{"."},
		TemplatePath: templatePath,
		OutputRoot:   outputRoot,
	})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(outputRoot, "rest-server", "rest_server.go"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(outputRoot, "orchestrator-client", "rest_client.go"))
	assert.NoError(t, err)
}
