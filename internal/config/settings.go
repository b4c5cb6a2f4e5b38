package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ProjectSettings holds static project metadata. Editing operations never
// mutate it; it is read once per session and handed to the timeline.
type ProjectSettings struct {
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	FPS    float64 `yaml:"fps"`
}

// DefaultSettings returns the 1080p30 defaults used when no settings file
// exists.
func DefaultSettings() ProjectSettings {
	return ProjectSettings{Width: 1920, Height: 1080, FPS: 30}
}

// LoadSettings reads project settings from a YAML file. A missing file is
// not an error: defaults are returned.
func LoadSettings(path string) (ProjectSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return ProjectSettings{}, fmt.Errorf("failed to read settings: %w", err)
	}

	s := DefaultSettings()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return ProjectSettings{}, fmt.Errorf("failed to parse settings: %w", err)
	}

	if err := s.Validate(); err != nil {
		return ProjectSettings{}, err
	}
	return s, nil
}

// SaveSettings writes project settings to a YAML file.
func SaveSettings(path string, s ProjectSettings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the settings describe a renderable project.
func (s ProjectSettings) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("invalid resolution %dx%d", s.Width, s.Height)
	}
	if s.FPS <= 0 {
		return fmt.Errorf("invalid frame rate %v", s.FPS)
	}
	return nil
}
