package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"datagate/internal/source"
)

// SourceEntry is one preloaded descriptor in the sources file.
type SourceEntry struct {
	Name   string         `yaml:"name"`
	Kind   string         `yaml:"kind"`
	Config map[string]any `yaml:"config"`
}

// SourcesFile is the document shape of the preload file.
type SourcesFile struct {
	Sources []SourceEntry `yaml:"sources"`
}

// LoadSourcesFile parses the yaml preload file at path.
func LoadSourcesFile(path string) (*SourcesFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	var f SourcesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}
	return &f, nil
}

// Descriptor converts the yaml entry into registry inputs.
func (e SourceEntry) Descriptor() (string, source.Kind, source.Config) {
	return e.Name, source.Kind(e.Kind), source.Config(e.Config)
}
