// Package doctor runs readiness diagnostics for config, workspace, and the device.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/autojs-host/internal/config"
	"github.com/rbright/autojs-host/internal/history"
	"github.com/rbright/autojs-host/internal/session"
	"github.com/rbright/autojs-host/internal/workspace"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes every check against a loaded config.
func Run(ctx context.Context, loaded config.Loaded) Report {
	cfg := loaded.Config
	checks := []Check{{
		Name:    "config",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q", loaded.Path),
	}}
	if !loaded.Exists {
		checks[0].Message = fmt.Sprintf("%q not found; using defaults", loaded.Path)
	}

	checks = append(checks, checkWorkspace(cfg.Workspace.Root))

	addressCheck, address := checkKnownDevice(cfg)
	checks = append(checks, addressCheck)
	if address != "" {
		checks = append(checks, checkDeviceReachable(ctx, address, cfg.Device))
	}

	checks = append(checks, checkEnv("XDG_RUNTIME_DIR", func(v string) bool {
		return strings.TrimSpace(v) != ""
	}, "attach socket directory available", "XDG_RUNTIME_DIR is empty; attach and forwarding are unavailable"))

	checks = append(checks, checkCommand(cfg.Clipboard.Argv, "clipboard_cmd"))
	if cfg.Indicator.Enable && strings.EqualFold(cfg.Indicator.Backend, "desktop") {
		checks = append(checks, checkBinary("busctl", "desktop indicator backend"))
	}

	return Report{Checks: checks}
}

func checkWorkspace(root string) Check {
	provider, err := workspace.New(root)
	if err != nil {
		return Check{Name: "workspace", Pass: false, Message: err.Error()}
	}
	project, err := provider.CurrentProject()
	if err != nil {
		return Check{Name: "workspace", Pass: false, Message: err.Error()}
	}
	imports, err := provider.ImportProjectNames()
	if err != nil {
		return Check{Name: "workspace", Pass: false, Message: err.Error()}
	}
	return Check{
		Name:    "workspace",
		Pass:    true,
		Message: fmt.Sprintf("project %q at %s (%d imports)", project.Name, provider.Root, len(imports)),
	}
}

// checkKnownDevice resolves the address a connect-automatically would use.
func checkKnownDevice(cfg config.Config) (Check, string) {
	path, err := config.HistoryPath(cfg)
	if err != nil {
		return Check{Name: "history", Pass: false, Message: err.Error()}, ""
	}
	store, err := history.Open(path, cfg.History.MaxEntries)
	if err != nil {
		return Check{Name: "history", Pass: false, Message: err.Error()}, ""
	}

	if address, ok := store.MostRecent(); ok {
		return Check{Name: "history", Pass: true, Message: fmt.Sprintf("most recent device %s", address)}, address
	}
	if address := strings.TrimSpace(cfg.Device.Address); address != "" {
		return Check{Name: "history", Pass: true, Message: fmt.Sprintf("no history; using configured device %s", address)}, address
	}
	return Check{
		Name:    "history",
		Pass:    false,
		Message: "no known device; run `autojs-host connect <addr>` first",
	}, ""
}

// checkDeviceReachable completes a WebSocket handshake and closes immediately.
func checkDeviceReachable(ctx context.Context, address string, cfg config.DeviceConfig) Check {
	target, err := session.NormalizeAddress(address, cfg.Port)
	if err != nil {
		return Check{Name: "device", Pass: false, Message: err.Error()}
	}

	timeout := time.Duration(cfg.HandshakeTimeoutMS) * time.Millisecond
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	transport, err := session.WebSocketDialer{}.Dial(dialCtx, target)
	if err != nil {
		return Check{Name: "device", Pass: false, Message: fmt.Sprintf("%s unreachable: %v", target, err)}
	}
	_ = transport.Close()
	return Check{Name: "device", Pass: true, Message: fmt.Sprintf("handshake ok with %s", target)}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}
