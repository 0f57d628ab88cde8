package render

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

// Role output directories, fixed relative to outputRoot per §6.
const (
	dirGrpcServer    = "pipeline-server"
	dirGrpcClient    = "orchestrator-client"
	dirRestServer    = "rest-server"
	dirPluginServer  = "plugin-server"
	dirPluginClient  = "plugin-client"
	dirOrchestrator  = "orchestrator-client"
)

// writeFile ensures dir exists under outputRoot and writes name with
// contents, returning the path written.
func writeFile(outputRoot, dir, name string, contents []byte) (string, error) {
	target := filepath.Join(outputRoot, dir)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(target, name)
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// renderTemplate executes tmpl against views and writes the result to
// outputRoot/dir/name. An empty views slice still produces a (near-empty)
// file, since a renderer with no bindings this round is not an error.
func renderTemplate(tmpl *template.Template, views any, outputRoot, dir, name string) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, views); err != nil {
		return fmt.Errorf("render: executing template for %s: %w", name, err)
	}
	_, err := writeFile(outputRoot, dir, name, buf.Bytes())
	return err
}
