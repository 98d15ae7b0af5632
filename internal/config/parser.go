package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/jsonc"
)

type fileConfig struct {
	Device    *fileDevice    `json:"device"`
	History   *fileHistory   `json:"history"`
	Workspace *fileWorkspace `json:"workspace"`
	Snapshot  *fileSnapshot  `json:"snapshot"`
	Indicator *fileIndicator `json:"indicator"`

	ClipboardCmd json.RawMessage `json:"clipboard_cmd"`
}

type fileDevice struct {
	Address            *string `json:"address"`
	Port               *int    `json:"port"`
	HandshakeTimeoutMS *int    `json:"handshake_timeout_ms"`
	RequestTimeoutMS   *int    `json:"request_timeout_ms"`
}

type fileHistory struct {
	Path       *string `json:"path"`
	MaxEntries *int    `json:"max_entries"`
}

type fileWorkspace struct {
	Root *string `json:"root"`
}

type fileSnapshot struct {
	Dir *string `json:"dir"`
}

type fileIndicator struct {
	Enable         *bool   `json:"enable"`
	Backend        *string `json:"backend"`
	DesktopAppName *string `json:"desktop_app_name"`
}

// Parse reads JSONC configuration content over base and validates the result.
func Parse(content string, base Config) (Config, []Warning, error) {
	if strings.TrimSpace(content) == "" {
		warnings, err := Validate(base)
		if err != nil {
			return Config{}, nil, err
		}
		return base, warnings, nil
	}

	// ToJSON keeps byte offsets, so decode errors map back onto the source lines.
	normalized := string(jsonc.ToJSON([]byte(content)))

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload fileConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	if err := payload.applyTo(&cfg); err != nil {
		return Config{}, nil, err
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func (payload fileConfig) applyTo(cfg *Config) error {
	if d := payload.Device; d != nil {
		if d.Address != nil {
			cfg.Device.Address = strings.TrimSpace(*d.Address)
		}
		if d.Port != nil {
			cfg.Device.Port = *d.Port
		}
		if d.HandshakeTimeoutMS != nil {
			cfg.Device.HandshakeTimeoutMS = *d.HandshakeTimeoutMS
		}
		if d.RequestTimeoutMS != nil {
			cfg.Device.RequestTimeoutMS = *d.RequestTimeoutMS
		}
	}

	if h := payload.History; h != nil {
		if h.Path != nil {
			cfg.History.Path = strings.TrimSpace(*h.Path)
		}
		if h.MaxEntries != nil {
			cfg.History.MaxEntries = *h.MaxEntries
		}
	}

	if payload.Workspace != nil && payload.Workspace.Root != nil {
		cfg.Workspace.Root = strings.TrimSpace(*payload.Workspace.Root)
	}
	if payload.Snapshot != nil && payload.Snapshot.Dir != nil {
		cfg.Snapshot.Dir = strings.TrimSpace(*payload.Snapshot.Dir)
	}

	if i := payload.Indicator; i != nil {
		if i.Enable != nil {
			cfg.Indicator.Enable = *i.Enable
		}
		if i.Backend != nil {
			cfg.Indicator.Backend = strings.TrimSpace(*i.Backend)
		}
		if i.DesktopAppName != nil {
			cfg.Indicator.DesktopAppName = strings.TrimSpace(*i.DesktopAppName)
		}
	}

	if len(payload.ClipboardCmd) > 0 {
		cmd, err := decodeCommand(payload.ClipboardCmd)
		if err != nil {
			return fmt.Errorf("invalid clipboard_cmd: %w", err)
		}
		cfg.Clipboard = cmd
	}

	return nil
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := min(int(offset), len(content))

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
