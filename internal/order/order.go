// Package order implements the §4.1.6 Order Emission phase: it writes the
// generated order.json and orchestrator-clients.properties resources
// that the runtime's runner.ReconcileOrder and the orchestrator's config
// loader consume at load time.
package order

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/flowforge/flowforge/internal/ir"
)

// Canonical resource paths, relative to the rendering output root, per §6.
const (
	OrderResourcePath              = "META-INF/pipeline/order.json"
	OrchestratorClientsResourcePath = "META-INF/pipeline/orchestrator-clients.properties"
)

// Emit writes order.json (the ordered fully-qualified step class names,
// synthetic side-effect steps included at their declared position) and
// orchestrator-clients.properties (key/value config-source lines) under
// outputRoot. It returns the paths written.
func Emit(models []*ir.StepModel, orchestratorClients map[string]string, outputRoot string) (orderPath, clientsPath string, err error) {
	names := ir.ClassNames(models)

	orderPath, err = writeOrderJSON(names, outputRoot)
	if err != nil {
		return "", "", err
	}

	clientsPath, err = writeOrchestratorClientsProperties(orchestratorClients, outputRoot)
	if err != nil {
		return "", "", err
	}

	return orderPath, clientsPath, nil
}

func writeOrderJSON(names ir.OrderedStepList, outputRoot string) (string, error) {
	data, err := json.MarshalIndent(names, "", "  ")
	if err != nil {
		return "", fmt.Errorf("order: marshaling order.json: %w", err)
	}
	return writeUnder(outputRoot, OrderResourcePath, data)
}

// writeOrchestratorClientsProperties renders a Java-properties-style
// key=value file, one line per entry, keys sorted for deterministic
// output across compile rounds.
func writeOrchestratorClientsProperties(entries map[string]string, outputRoot string) (string, error) {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf []byte
	for _, k := range keys {
		buf = append(buf, fmt.Sprintf("%s=%s\n", k, entries[k])...)
	}
	return writeUnder(outputRoot, OrchestratorClientsResourcePath, buf)
}

func writeUnder(outputRoot, relPath string, contents []byte) (string, error) {
	full := filepath.Join(outputRoot, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("order: creating %s: %w", filepath.Dir(full), err)
	}
	if err := os.WriteFile(full, contents, 0o644); err != nil {
		return "", fmt.Errorf("order: writing %s: %w", full, err)
	}
	return full, nil
}
