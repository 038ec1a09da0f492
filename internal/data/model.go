package data

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Model describes how the presentation draws one kind of object. The
// simulation only checks that required models are loaded.
type Model struct {
	Name  string  `yaml:"name"`
	Glyph string  `yaml:"glyph"`
	Color string  `yaml:"color"`
	Scale float64 `yaml:"scale"`
}

type modelFile struct {
	Model Model `yaml:"model"`
}

// ParseModel decodes a model descriptor.
func ParseModel(raw []byte) (*Model, error) {
	var f modelFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse model: %w", err)
	}
	m := &f.Model
	if m.Name == "" {
		return nil, fmt.Errorf("parse model: missing name")
	}
	if m.Glyph == "" {
		m.Glyph = "?"
	}
	if m.Scale <= 0 {
		m.Scale = 1
	}
	return m, nil
}
