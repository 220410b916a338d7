// Package loader reads configuration documents from disk and detects which
// of the two accepted shapes they use. Documents may be JSON or YAML; JSON
// is parsed as the YAML subset it is.
package loader

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/deploykit/swarmgen/internal/core/config"
)

// Load reads and parses the configuration document at path.
func Load(path string) (config.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return config.Document{}, fmt.Errorf("read config file: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return config.Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes a configuration document, detecting the array shape (a
// top-level sequence of service objects) versus the flat shape (a single
// mapping).
func Parse(data []byte) (config.Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return config.Document{}, fmt.Errorf("parse config: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return config.Document{}, fmt.Errorf("config document is empty")
	}

	switch node := root.Content[0]; node.Kind {
	case yaml.SequenceNode:
		var entries []config.ServiceEntry
		if err := node.Decode(&entries); err != nil {
			return config.Document{}, fmt.Errorf("parse service array: %w", err)
		}
		return config.Document{Array: entries}, nil
	case yaml.MappingNode:
		var flat config.FlatConfig
		if err := node.Decode(&flat); err != nil {
			return config.Document{}, fmt.Errorf("parse config object: %w", err)
		}
		return config.Document{Flat: &flat}, nil
	default:
		return config.Document{}, fmt.Errorf("config document must be an object or an array of services")
	}
}
