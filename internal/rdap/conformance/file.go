package conformance

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileSource loads the conformance list from a YAML file.
//
// The file may either be a bare YAML sequence of strings or a mapping
// with a top-level "conformance" key holding the sequence.
type FileSource struct {
	Path string
}

type fileDocument struct {
	Conformance []string `yaml:"conformance"`
}

// Load reads and parses the configured file.
func (s *FileSource) Load(_ context.Context) ([]string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read conformance file %s: %w", s.Path, err)
	}

	var list []string
	if err := yaml.Unmarshal(data, &list); err == nil && len(list) > 0 {
		return list, nil
	}

	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse conformance file %s: %w", s.Path, err)
	}
	return doc.Conformance, nil
}
