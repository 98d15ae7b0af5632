package config

import (
	"fmt"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if cfg.Device.Port < 1 || cfg.Device.Port > 65535 {
		return nil, fmt.Errorf("device.port must be within 1..65535")
	}
	if cfg.Device.HandshakeTimeoutMS <= 0 {
		return nil, fmt.Errorf("device.handshake_timeout_ms must be > 0")
	}
	if cfg.Device.RequestTimeoutMS < 0 {
		return nil, fmt.Errorf("device.request_timeout_ms must be >= 0")
	}
	if cfg.History.MaxEntries <= 0 {
		return nil, fmt.Errorf("history.max_entries must be > 0")
	}
	if strings.TrimSpace(cfg.Workspace.Root) == "" {
		return nil, fmt.Errorf("workspace.root must not be empty")
	}
	if strings.TrimSpace(cfg.Snapshot.Dir) == "" {
		return nil, fmt.Errorf("snapshot.dir must not be empty")
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Indicator.Backend))
	if backend == "" {
		return nil, fmt.Errorf("indicator.backend must not be empty")
	}
	if backend != "terminal" && backend != "desktop" {
		return nil, fmt.Errorf("indicator.backend must be one of: terminal, desktop")
	}
	if backend == "desktop" && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.backend=desktop")
	}
	if len(cfg.Clipboard.Argv) == 0 {
		return nil, fmt.Errorf("clipboard_cmd must not be empty")
	}

	if cfg.Device.RequestTimeoutMS > 0 && cfg.Device.RequestTimeoutMS < cfg.Device.HandshakeTimeoutMS {
		warnings = append(warnings, Warning{Message: fmt.Sprintf(
			"device.request_timeout_ms=%d is shorter than the handshake timeout; run may time out while connecting",
			cfg.Device.RequestTimeoutMS,
		)})
	}

	return warnings, nil
}
