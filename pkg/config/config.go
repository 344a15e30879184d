// Package config handles loading and saving trackmap configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/tm/config.yaml
//   - Data:    ~/.local/share/tm/ (exports, snapshots)
//   - State:   ~/.local/state/tm/ (recent libraries)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Library represents a registered track library in the config.
type Library struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"` // JSONL file or SQLite database
}

// ViewportConfig holds camera and zoom preferences.
type ViewportConfig struct {
	ZoomMin           float64       `yaml:"zoom_min,omitempty"`
	ZoomMax           float64       `yaml:"zoom_max,omitempty"`
	AnimationDuration time.Duration `yaml:"animation_duration,omitempty"`
}

// RenderConfig holds level-of-detail and rendering preferences.
type RenderConfig struct {
	LabelZoomThreshold float64 `yaml:"label_zoom_threshold,omitempty"`
	MaxRenderNodes     int     `yaml:"max_render_nodes,omitempty"`
	MaxRenderEdges     int     `yaml:"max_render_edges,omitempty"`
	ShowEdges          *bool   `yaml:"show_edges,omitempty"`
	ShowLabels         *bool   `yaml:"show_labels,omitempty"`
}

// UIConfig holds TUI preference settings.
type UIConfig struct {
	Theme       string `yaml:"theme,omitempty"` // dark, light
	ShowOverlay bool   `yaml:"show_overlay,omitempty"`
}

// Config is the top-level configuration for tm.
type Config struct {
	Libraries []Library      `yaml:"libraries,omitempty"`
	Viewport  ViewportConfig `yaml:"viewport,omitempty"`
	Render    RenderConfig   `yaml:"render,omitempty"`
	UI        UIConfig       `yaml:"ui,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Viewport: ViewportConfig{
			ZoomMin:           0.2,
			ZoomMax:           5.0,
			AnimationDuration: 400 * time.Millisecond,
		},
		Render: RenderConfig{
			LabelZoomThreshold: 0.8,
			MaxRenderNodes:     2000,
			MaxRenderEdges:     4000,
		},
		UI: UIConfig{
			Theme: "dark",
		},
	}
}

// ConfigDir returns the XDG config directory for tm.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "tm")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "tm")
}

// DataDir returns the XDG data directory for tm.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "tm")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "tm")
}

// StateDir returns the XDG state directory for tm.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "tm")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "tm")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	// Out-of-range values fall back to defaults rather than producing a
	// degenerate viewport.
	def := DefaultConfig()
	if cfg.Viewport.ZoomMin <= 0 {
		cfg.Viewport.ZoomMin = def.Viewport.ZoomMin
	}
	if cfg.Viewport.ZoomMax <= cfg.Viewport.ZoomMin {
		cfg.Viewport.ZoomMax = def.Viewport.ZoomMax
	}
	if cfg.Viewport.AnimationDuration <= 0 {
		cfg.Viewport.AnimationDuration = def.Viewport.AnimationDuration
	}

	for i := range cfg.Libraries {
		cfg.Libraries[i].Path = expandHome(cfg.Libraries[i].Path)
	}

	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// FindLibrary returns the library with the given name, or nil.
func (c Config) FindLibrary(name string) *Library {
	for i := range c.Libraries {
		if strings.EqualFold(c.Libraries[i].Name, name) {
			return &c.Libraries[i]
		}
	}
	return nil
}

// ShowEdges resolves the edge toggle, defaulting to on.
func (c Config) ShowEdges() bool {
	if c.Render.ShowEdges == nil {
		return true
	}
	return *c.Render.ShowEdges
}

// ShowLabels resolves the label toggle, defaulting to on.
func (c Config) ShowLabels() bool {
	if c.Render.ShowLabels == nil {
		return true
	}
	return *c.Render.ShowLabels
}

// ResolvedPath returns the library path with ~ expanded.
func (l Library) ResolvedPath() string {
	return expandHome(l.Path)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
