package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

// Preset is a YAML file holding a reusable directive sequence, e.g.
//
//	description: slow colour drift
//	directives:
//	  - blur=3
//	  - roll=1
//	  - zoom=1.01
//	  - blend=0.1
type Preset struct {
	Description string   `yaml:"description"`
	Directives  []string `yaml:"directives"`
}

// LoadPreset reads and parses a preset file.
func LoadPreset(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("preset %q not found", path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(p.Directives) == 0 {
		return nil, fmt.Errorf("preset %s lists no directives", path)
	}
	return &p, nil
}

// NewPreset checks that directives parse on their own and do not reference
// another preset.
func NewPreset(description string, directives []string) (*Preset, error) {
	if len(directives) == 0 {
		return nil, fmt.Errorf("a preset needs at least one directive")
	}
	for _, d := range directives {
		if key, _, _ := strings.Cut(d, "="); strings.Contains(key, presetDirective) {
			return nil, configErrorf(presetDirective, "presets cannot include other presets")
		}
	}
	if _, err := Parse(directives); err != nil {
		return nil, err
	}
	return &Preset{Description: description, Directives: directives}, nil
}

// SavePreset writes p to path.
func SavePreset(path string, p *Preset) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal preset: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
