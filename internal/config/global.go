package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Dirs locates the per-user config and state directories.
type Dirs struct {
	Home string
}

// DefaultDirs resolves Dirs for the current user.
func DefaultDirs() (Dirs, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Dirs{}, fmt.Errorf("resolving home directory: %w", err)
	}
	return Dirs{Home: home}, nil
}

// ConfigDir is ~/.config/glacierbak.
func (d Dirs) ConfigDir() string {
	return filepath.Join(d.Home, ".config", "glacierbak")
}

// ConfigPath is the default location of config.yaml.
func (d Dirs) ConfigPath() string {
	return filepath.Join(d.ConfigDir(), "config.yaml")
}

// SpecFile is the default location of the include/exclude spec.
func (d Dirs) SpecFile() string {
	return filepath.Join(d.ConfigDir(), "includeexclude.json")
}

// StatePath returns name inside ~/.local/state/glacierbak.
func (d Dirs) StatePath(name string) string {
	return filepath.Join(d.Home, ".local", "state", "glacierbak", name)
}

// ExpandHome replaces a leading ~ with home.
func ExpandHome(p, home string) string {
	if p == "~" {
		return home
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(home, p[2:])
	}
	return p
}

// Save writes cfg to path. The file may hold the encryption key, so it is
// created with mode 0600.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
