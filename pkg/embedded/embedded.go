// Package embedded provides static assets compiled into the binary,
// currently the experiment preset catalog.
package embedded

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed presets
var Files embed.FS

// Preset is a curated, ready-to-submit experiment request.
type Preset struct {
	Name        string                 `yaml:"name" json:"name"`
	Description string                 `yaml:"description" json:"description"`
	Kind        string                 `yaml:"kind" json:"kind"`
	Request     map[string]interface{} `yaml:"request" json:"request"`
}

// Presets parses the embedded preset catalog.
func Presets() ([]Preset, error) {
	raw, err := Files.ReadFile("presets/experiments.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read preset catalog: %w", err)
	}
	var doc struct {
		Presets []Preset `yaml:"presets"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse preset catalog: %w", err)
	}
	return doc.Presets, nil
}

// PresetByName returns the named preset, if present.
func PresetByName(name string) (*Preset, bool) {
	presets, err := Presets()
	if err != nil {
		return nil, false
	}
	for i := range presets {
		if presets[i].Name == name {
			return &presets[i], true
		}
	}
	return nil, false
}
