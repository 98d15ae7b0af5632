package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const appDir = "autojs-host"

// ResolvePath applies CLI/XDG/home fallback rules for config.jsonc location.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, appDir, "config.jsonc"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}

	return filepath.Join(home, ".config", appDir, "config.jsonc"), nil
}

// HistoryPath returns the configured history path, or the XDG state default.
func HistoryPath(cfg Config) (string, error) {
	if path := strings.TrimSpace(cfg.History.Path); path != "" {
		return path, nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, appDir, "history.json"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for history fallback")
	}
	return filepath.Join(home, ".local", "state", appDir, "history.json"), nil
}
