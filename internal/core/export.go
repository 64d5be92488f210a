package core

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/barysiuk/kenv/internal/core/manager"
)

// StripPrefix removes the machine-specific top-level "prefix" key from a
// conda environment.yml export, keeping the order of everything else.
// Exports in other formats are returned unchanged.
func StripPrefix(exp manager.Export) (manager.Export, error) {
	if exp.Language != "yaml" || strings.TrimSpace(exp.Contents) == "" {
		return exp, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(exp.Contents), &doc); err != nil {
		return exp, fmt.Errorf("parsing %s: %w", exp.File, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return exp, fmt.Errorf("parsing %s: top level is not a mapping", exp.File)
	}

	root := doc.Content[0]
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == "prefix" {
			root.Content = append(root.Content[:i], root.Content[i+2:]...)
			break
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return exp, fmt.Errorf("encoding %s: %w", exp.File, err)
	}
	if err := enc.Close(); err != nil {
		return exp, fmt.Errorf("encoding %s: %w", exp.File, err)
	}
	exp.Contents = strings.TrimSpace(buf.String())
	return exp, nil
}
