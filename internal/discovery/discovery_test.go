package discovery_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/flowforge/internal/discovery"
)

func writeTemplate(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const validTemplate = `
appName: OrderService
basePackage: com.example.orders
transport: GRPC
steps:
  - name: ValidateOrder
    cardinality: ONE_TO_ONE
    inputTypeName: Order
    outputTypeName: Order
  - name: ExpandLineItems
    cardinality: EXPANSION
    inputTypeName: Order
    outputTypeName: LineItem
aspects:
  cache-writer:
    enabled: true
    position: AFTER_STEP
    scope: GLOBAL
    order: 1
    category: cache
    config:
      ttl: 60s
orchestrator:
  entryInputType: Order
  generateCli: true
  downstreamModules:
    - ValidateOrder
`

func TestDiscover_ValidTemplate(t *testing.T) {
	path := writeTemplate(t, validTemplate)

	decls, err := discovery.Discover([]string{"./steps"}, path)
	require.NoError(t, err)

	assert.Equal(t, "OrderService", decls.AppName)
	assert.Equal(t, "com.example.orders", decls.BasePackage)
	assert.Equal(t, "GRPC", decls.Transport)
	require.Len(t, decls.Steps, 2)
	assert.Equal(t, "ValidateOrder", decls.Steps[0].Name)
	require.Len(t, decls.Aspects, 1)
	assert.Equal(t, "cache-writer", decls.Aspects[0].Name)
	require.NotNil(t, decls.Orchestrator)
	assert.True(t, decls.Orchestrator.GenerateCLI)
}

func TestDiscover_MissingRequiredField(t *testing.T) {
	path := writeTemplate(t, `
basePackage: com.example.orders
transport: GRPC
steps:
  - name: ValidateOrder
    cardinality: ONE_TO_ONE
    inputTypeName: Order
    outputTypeName: Order
`)
	_, err := discovery.Discover(nil, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "appName")
}

func TestDiscover_UnknownTransport(t *testing.T) {
	path := writeTemplate(t, `
appName: OrderService
basePackage: com.example.orders
transport: SOAP
steps:
  - name: ValidateOrder
    cardinality: ONE_TO_ONE
    inputTypeName: Order
    outputTypeName: Order
`)
	_, err := discovery.Discover(nil, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown transport")
}

func TestDiscover_StepMissingCardinality(t *testing.T) {
	path := writeTemplate(t, `
appName: OrderService
basePackage: com.example.orders
transport: GRPC
steps:
  - name: ValidateOrder
    inputTypeName: Order
    outputTypeName: Order
`)
	_, err := discovery.Discover(nil, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cardinality")
}

func TestDiscover_AspectsSortedByOrder(t *testing.T) {
	path := writeTemplate(t, `
appName: OrderService
basePackage: com.example.orders
transport: GRPC
steps:
  - name: ValidateOrder
    cardinality: ONE_TO_ONE
    inputTypeName: Order
    outputTypeName: Order
aspects:
  second:
    enabled: true
    position: AFTER_STEP
    scope: GLOBAL
    order: 2
  first:
    enabled: true
    position: BEFORE_STEP
    scope: GLOBAL
    order: 1
`)
	decls, err := discovery.Discover(nil, path)
	require.NoError(t, err)
	require.Len(t, decls.Aspects, 2)
	assert.Equal(t, "first", decls.Aspects[0].Name)
	assert.Equal(t, "second", decls.Aspects[1].Name)
}

func TestDiscover_MissingFile(t *testing.T) {
	_, err := discovery.Discover(nil, filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
