// Package loader reads graph definitions and initial states from files.
// Graphs may be written in HCL, YAML or JSON; the format is chosen by
// file extension.
package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/RealZimboGuy/graphflow/pkg/graphflow/core"
	"github.com/RealZimboGuy/graphflow/pkg/graphflow/models"
)

// LoadFile reads the graph definition stored at path.
func LoadFile(path string) (models.CreateGraphRequest, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return models.CreateGraphRequest{}, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".hcl":
		return ParseHCL(src, path)
	case ".yaml", ".yml":
		return ParseYAML(src)
	case ".json":
		return ParseJSON(src)
	default:
		return models.CreateGraphRequest{}, fmt.Errorf("unsupported graph file extension %q", ext)
	}
}

func ParseYAML(src []byte) (models.CreateGraphRequest, error) {
	var req models.CreateGraphRequest
	if err := yaml.Unmarshal(src, &req); err != nil {
		return models.CreateGraphRequest{}, fmt.Errorf("failed to decode YAML graph: %w", err)
	}
	return req, nil
}

func ParseJSON(src []byte) (models.CreateGraphRequest, error) {
	var req models.CreateGraphRequest
	if err := json.Unmarshal(src, &req); err != nil {
		return models.CreateGraphRequest{}, fmt.Errorf("failed to decode JSON graph: %w", err)
	}
	return req, nil
}

// LoadState reads an initial state from a JSON or YAML mapping.
func LoadState(path string) (core.State, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw := map[string]any{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(src, &raw); err != nil {
			return nil, fmt.Errorf("failed to decode YAML state: %w", err)
		}
	default:
		var state core.State
		if err := json.Unmarshal(src, &state); err != nil {
			return nil, fmt.Errorf("failed to decode JSON state: %w", err)
		}
		return state, nil
	}
	return core.StateFromMap(raw)
}
