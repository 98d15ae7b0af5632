package config

const (
	// DefaultPort is the automation runtime's debug server port.
	DefaultPort               = 9317
	defaultHandshakeTimeoutMS = 5000
	defaultHistoryEntries     = 10
)

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Device: DeviceConfig{
			Port:               DefaultPort,
			HandshakeTimeoutMS: defaultHandshakeTimeoutMS,
		},
		History: HistoryConfig{
			MaxEntries: defaultHistoryEntries,
		},
		Workspace: WorkspaceConfig{Root: "."},
		Snapshot:  SnapshotConfig{Dir: "."},
		Indicator: IndicatorConfig{
			Enable:         true,
			Backend:        "terminal",
			DesktopAppName: "autojs-host",
		},
		Clipboard: CommandConfig{
			Raw:  "wl-copy --type image/png",
			Argv: []string{"wl-copy", "--type", "image/png"},
		},
	}
}
