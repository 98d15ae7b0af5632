package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Loaded is a resolved configuration and where it came from.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	// Exists is false when defaults were used because no file was found.
	Exists bool
}

// Load reads the config at explicitPath, or at the default location when
// explicitPath is empty. Only a missing default file falls back to defaults.
func Load(explicitPath string) (Loaded, error) {
	path, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}
	loaded := Loaded{Path: path, Config: Default()}

	content, err := os.ReadFile(path)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist) && strings.TrimSpace(explicitPath) == "":
		loaded.Warnings = []Warning{{Message: fmt.Sprintf("no config at %s; using defaults", path)}}
		return loaded, nil
	case errors.Is(err, os.ErrNotExist):
		return Loaded{}, fmt.Errorf("config %q not found", path)
	default:
		return Loaded{}, fmt.Errorf("read config %q: %w", path, err)
	}

	cfg, warnings, err := Parse(string(content), loaded.Config)
	if err != nil {
		return Loaded{}, fmt.Errorf("config %q: %w", path, err)
	}
	loaded.Config = cfg
	loaded.Warnings = warnings
	loaded.Exists = true
	return loaded, nil
}
