package data

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ManifestEntry lists one asset in the asset manifest.
type ManifestEntry struct {
	Name     string `yaml:"name"`
	Path     string `yaml:"path"`
	Kind     string `yaml:"kind"`
	Required bool   `yaml:"required"`
}

type manifestFile struct {
	Assets []ManifestEntry `yaml:"assets"`
}

// ParseManifest decodes the asset manifest.
func ParseManifest(raw []byte) ([]ManifestEntry, error) {
	var f manifestFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	seen := make(map[string]bool, len(f.Assets))
	for i, e := range f.Assets {
		if e.Name == "" || e.Path == "" {
			return nil, fmt.Errorf("parse manifest: entry %d needs name and path", i)
		}
		if seen[e.Name] {
			return nil, fmt.Errorf("parse manifest: duplicate asset %q", e.Name)
		}
		seen[e.Name] = true
	}
	return f.Assets, nil
}
