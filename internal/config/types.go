// Package config resolves, parses, validates, and defaults autojs-host configuration.
package config

// Config is the fully materialized runtime configuration.
type Config struct {
	Device    DeviceConfig
	History   HistoryConfig
	Workspace WorkspaceConfig
	Snapshot  SnapshotConfig
	Indicator IndicatorConfig
	Clipboard CommandConfig
}

// DeviceConfig controls how the device endpoint is reached.
type DeviceConfig struct {
	// Address is used when history has no known device.
	Address            string
	Port               int
	HandshakeTimeoutMS int
	// RequestTimeoutMS bounds each device operation; zero disables the bound.
	RequestTimeoutMS int
}

// HistoryConfig controls the known-device address store.
type HistoryConfig struct {
	Path       string
	MaxEntries int
}

// WorkspaceConfig locates the local project.
type WorkspaceConfig struct {
	Root string
}

// SnapshotConfig controls where screen captures are written.
type SnapshotConfig struct {
	Dir string
}

// IndicatorConfig controls connection and running-project notifications.
type IndicatorConfig struct {
	Enable         bool
	Backend        string
	DesktopAppName string
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
