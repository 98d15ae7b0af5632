package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEmptyContentReturnsBase(t *testing.T) {
	cfg, warnings, err := Parse("  \n", Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, Default(), cfg)
}

func TestParseJSONCOverridesDefaults(t *testing.T) {
	content := `
{
  // phone on the desk
  "device": {
    "address": " 192.168.1.20 ",
    "port": 9318,
    "handshake_timeout_ms": 2500,
    "request_timeout_ms": 30000,
  },
  "history": { "path": "/tmp/history.json", "max_entries": 3 },
  "workspace": { "root": "./scripts" },
  "snapshot": { "dir": "/tmp/shots" },
  /* notifications */
  "indicator": { "enable": true, "backend": "desktop", "desktop_app_name": "autojs" },
  "clipboard_cmd": "xclip -selection clipboard -t 'image/png'",
}
`
	cfg, warnings, err := Parse(content, Default())
	require.NoError(t, err)
	require.Empty(t, warnings)

	require.Equal(t, DeviceConfig{
		Address:            "192.168.1.20",
		Port:               9318,
		HandshakeTimeoutMS: 2500,
		RequestTimeoutMS:   30000,
	}, cfg.Device)
	require.Equal(t, HistoryConfig{Path: "/tmp/history.json", MaxEntries: 3}, cfg.History)
	require.Equal(t, "./scripts", cfg.Workspace.Root)
	require.Equal(t, "/tmp/shots", cfg.Snapshot.Dir)
	require.Equal(t, "desktop", cfg.Indicator.Backend)
	require.Equal(t, "autojs", cfg.Indicator.DesktopAppName)
	require.Equal(t, []string{"xclip", "-selection", "clipboard", "-t", "image/png"}, cfg.Clipboard.Argv)
}

func TestParsePartialSectionKeepsOtherDefaults(t *testing.T) {
	cfg, _, err := Parse(`{"device": {"address": "10.0.0.5"}}`, Default())
	require.NoError(t, err)
	require.Equal(t, "10.0.0.5", cfg.Device.Address)
	require.Equal(t, DefaultPort, cfg.Device.Port)
	require.Equal(t, Default().History, cfg.History)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, _, err := Parse(`{"device": {"adress": "10.0.0.5"}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown field")
}

func TestParseSyntaxErrorReportsLineAndColumn(t *testing.T) {
	content := "{\n  // comment\n  \"device\": { \"port\": 9317 }\n  \"history\": {}\n}"
	_, _, err := Parse(content, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 4")
}

func TestParseTypeErrorReportsLine(t *testing.T) {
	content := "{\n  \"device\": {\n    \"port\": \"9317\"\n  }\n}"
	_, _, err := Parse(content, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 3")
}

func TestParseRejectsMultipleValues(t *testing.T) {
	_, _, err := Parse(`{}{}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "multiple JSON values")
}

func TestParseRejectsInvalidClipboardCommand(t *testing.T) {
	_, _, err := Parse(`{"clipboard_cmd": "wl-copy \"oops"}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid clipboard_cmd")
}

func TestParseRunsValidation(t *testing.T) {
	_, _, err := Parse(`{"indicator": {"backend": "hypr"}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "indicator.backend")
}

func TestOffsetToLineCol(t *testing.T) {
	content := "line1\nline2\nline3"
	line, col := offsetToLineCol(content, 1)
	require.Equal(t, 1, line)
	require.Equal(t, 1, col)

	line, col = offsetToLineCol(content, 8) // line2, col2
	require.Equal(t, 2, line)
	require.Equal(t, 2, col)

	line, col = offsetToLineCol(content, 999)
	require.Equal(t, 3, line)
	require.Equal(t, 5, col)
}
