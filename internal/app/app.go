// Package app wires configuration, the device session, and CLI commands.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/rbright/autojs-host/internal/cli"
	"github.com/rbright/autojs-host/internal/config"
	"github.com/rbright/autojs-host/internal/doctor"
	"github.com/rbright/autojs-host/internal/history"
	"github.com/rbright/autojs-host/internal/ipc"
	"github.com/rbright/autojs-host/internal/logging"
	"github.com/rbright/autojs-host/internal/output"
	"github.com/rbright/autojs-host/internal/session"
	"github.com/rbright/autojs-host/internal/version"
)

const binaryName = "autojs-host"

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
	// Dialer replaces the WebSocket dialer when set.
	Dialer session.Dialer
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(binaryName))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText(binaryName))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New(parsed.Verbose)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}
	diag := logging.NewDiagnostics(r.Stderr, logger)

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		diag.Error(err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		diag.Warn(msg)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	env := environment{
		config: cfgLoaded.Config,
		logger: logger,
		diag:   diag,
		dialer: r.Dialer,
	}

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandHistory:
		return r.commandHistory(env)
	case cli.CommandConnect:
		return r.commandConnect(ctx, env, parsed.Address)
	case cli.CommandAttach:
		return r.commandAttach(ctx, env, parsed.Address)
	case cli.CommandRun, cli.CommandStop, cli.CommandUpload, cli.CommandSnapshot, cli.CommandStatus:
		req, err := buildRequest(env, parsed)
		if err != nil {
			diag.Error(err.Error())
			return 1
		}
		return r.forwardOrRun(ctx, env, req)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

// environment is the per-invocation state shared by command handlers.
type environment struct {
	config config.Config
	logger *slog.Logger
	diag   *logging.Diagnostics
	dialer session.Dialer
}

func (r Runner) commandHistory(env environment) int {
	path, err := config.HistoryPath(env.config)
	if err != nil {
		env.diag.Error(err.Error())
		return 1
	}
	store, err := history.Open(path, env.config.History.MaxEntries)
	if err != nil {
		env.diag.Error(err.Error())
		return 1
	}

	addresses := store.List()
	if len(addresses) == 0 {
		fmt.Fprintln(r.Stdout, "no known devices")
		return 0
	}
	for _, address := range addresses {
		fmt.Fprintln(r.Stdout, address)
	}
	return 0
}

func (r Runner) commandConnect(ctx context.Context, env environment, address string) int {
	dev, err := newDevice(env, nil)
	if err != nil {
		env.diag.Error(err.Error())
		return 1
	}
	defer dev.close()

	if err := dev.manager.Connect(ctx, address); err != nil {
		env.diag.Error(fmt.Sprintf("connect: %v", err))
		return 1
	}
	fmt.Fprintf(r.Stdout, "connected to %s\n", address)
	return 0
}

// buildRequest resolves client-side arguments before a command is forwarded,
// since the owner may run in another directory.
func buildRequest(env environment, parsed cli.Parsed) (ipc.Request, error) {
	req := ipc.Request{Command: string(parsed.Command), Name: parsed.Name}
	if parsed.Command != cli.CommandSnapshot {
		return req, nil
	}

	req.Clipboard = parsed.Clipboard
	if req.Clipboard {
		return req, nil
	}

	path := parsed.OutPath
	if path == "" {
		path = output.NewSink(env.config, env.logger).DefaultPath()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return ipc.Request{}, fmt.Errorf("resolve snapshot path %q: %w", path, err)
	}
	req.Path = abs
	return req, nil
}

// forwardOrRun hands req to an attached owner, or runs it one-shot.
func (r Runner) forwardOrRun(ctx context.Context, env environment, req ipc.Request) int {
	if socketPath, err := ipc.RuntimeSocketPath(); err == nil {
		resp, handled, err := tryForward(ctx, socketPath, req, forwardTimeout(env.config))
		if handled {
			return r.reply(env, req, resp, err)
		}
	}

	dev, err := newDevice(env, nil)
	if err != nil {
		env.diag.Error(err.Error())
		return 1
	}
	defer dev.close()

	resp := dev.execute(ctx, req)
	return r.reply(env, req, resp, responseError(resp))
}

func (r Runner) reply(env environment, req ipc.Request, resp ipc.Response, err error) int {
	if err != nil {
		env.diag.Error(fmt.Sprintf("%s: %v", req.Command, err))
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// forwardTimeout bounds a forwarded round trip, which spans a whole operation.
func forwardTimeout(cfg config.Config) time.Duration {
	if cfg.Device.RequestTimeoutMS > 0 {
		return time.Duration(cfg.Device.RequestTimeoutMS+cfg.Device.HandshakeTimeoutMS)*time.Millisecond + time.Second
	}
	return 10 * time.Minute
}
