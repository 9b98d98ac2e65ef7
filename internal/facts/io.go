package facts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned for facts files that are neither JSON nor YAML.
var ErrUnsupportedFormat = errors.New("unsupported facts file format")

// Document is the on-disk shape of a facts file.
type Document struct {
	Version string        `json:"version,omitempty" yaml:"version,omitempty"`
	Modules []ModuleFacts `json:"modules" yaml:"modules"`
}

// Load reads a facts file. The format is chosen by extension: .json, .yaml or .yml.
func Load(path string) ([]ModuleFacts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read facts file: %w", err)
	}
	return Decode(data, formatForPath(path))
}

// Decode parses facts data in the given format ("json" or "yaml").
func Decode(data []byte, format string) ([]ModuleFacts, error) {
	var doc Document
	switch format {
	case "json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode facts json: %w", err)
		}
	case "yaml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode facts yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if doc.Modules == nil {
		doc.Modules = make([]ModuleFacts, 0)
	}
	return doc.Modules, nil
}

// Save writes records to path in the format implied by its extension.
func Save(path string, records []ModuleFacts) error {
	doc := Document{Version: "1", Modules: records}

	var (
		data []byte
		err  error
	)
	switch format := formatForPath(path); format {
	case "json":
		data, err = json.MarshalIndent(doc, "", "  ")
	case "yaml":
		data, err = yaml.Marshal(doc)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func formatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	default:
		return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
}
