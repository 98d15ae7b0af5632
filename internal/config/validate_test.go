package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateDefaults(t *testing.T) {
	warnings, err := Validate(Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
}

func TestValidateRejectsInvalidFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "zero port", mutate: func(c *Config) { c.Device.Port = 0 }, wantErr: "device.port"},
		{name: "port too large", mutate: func(c *Config) { c.Device.Port = 70000 }, wantErr: "device.port"},
		{name: "zero handshake timeout", mutate: func(c *Config) { c.Device.HandshakeTimeoutMS = 0 }, wantErr: "handshake_timeout_ms"},
		{name: "negative request timeout", mutate: func(c *Config) { c.Device.RequestTimeoutMS = -1 }, wantErr: "request_timeout_ms"},
		{name: "zero history entries", mutate: func(c *Config) { c.History.MaxEntries = 0 }, wantErr: "history.max_entries"},
		{name: "empty workspace root", mutate: func(c *Config) { c.Workspace.Root = " " }, wantErr: "workspace.root"},
		{name: "empty snapshot dir", mutate: func(c *Config) { c.Snapshot.Dir = "" }, wantErr: "snapshot.dir"},
		{name: "empty backend", mutate: func(c *Config) { c.Indicator.Backend = "" }, wantErr: "indicator.backend"},
		{name: "unknown backend", mutate: func(c *Config) { c.Indicator.Backend = "hypr" }, wantErr: "one of"},
		{name: "desktop without app name", mutate: func(c *Config) {
			c.Indicator.Backend = "desktop"
			c.Indicator.DesktopAppName = ""
		}, wantErr: "desktop_app_name"},
		{name: "empty clipboard argv", mutate: func(c *Config) { c.Clipboard.Argv = nil }, wantErr: "clipboard_cmd"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)

			_, err := Validate(cfg)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateWarnsOnShortRequestTimeout(t *testing.T) {
	cfg := Default()
	cfg.Device.RequestTimeoutMS = 1000

	warnings, err := Validate(cfg)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "request_timeout_ms=1000")
}
