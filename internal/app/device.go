package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rbright/autojs-host/internal/commander"
	"github.com/rbright/autojs-host/internal/config"
	"github.com/rbright/autojs-host/internal/history"
	"github.com/rbright/autojs-host/internal/indicator"
	"github.com/rbright/autojs-host/internal/ipc"
	"github.com/rbright/autojs-host/internal/logging"
	"github.com/rbright/autojs-host/internal/output"
	"github.com/rbright/autojs-host/internal/protocol"
	"github.com/rbright/autojs-host/internal/session"
	"github.com/rbright/autojs-host/internal/workspace"
)

// device bundles one session with the services that drive it.
type device struct {
	env       environment
	manager   *session.Manager
	commander *commander.Commander
	workspace *workspace.Provider
	sink      *output.Sink
}

// newDevice builds a disconnected device. A nil notifier discards state changes.
func newDevice(env environment, notifier indicator.Notifier) (*device, error) {
	cfg := env.config
	if notifier == nil {
		notifier = indicator.Noop{}
	}

	historyPath, err := config.HistoryPath(cfg)
	if err != nil {
		return nil, err
	}
	store, err := history.Open(historyPath, cfg.History.MaxEntries)
	if err != nil {
		return nil, err
	}
	ws, err := workspace.New(cfg.Workspace.Root)
	if err != nil {
		return nil, err
	}

	manager := session.NewManager(session.Options{
		Logger:           env.logger,
		Diagnostics:      env.diag,
		Dialer:           env.dialer,
		History:          knownDevices{store: store, fallback: cfg.Device.Address},
		Observer:         notifier,
		DefaultPort:      cfg.Device.Port,
		HandshakeTimeout: time.Duration(cfg.Device.HandshakeTimeoutMS) * time.Millisecond,
	})
	manager.OnPush(protocol.KindLog, func(cmd protocol.Command) {
		renderDeviceLog(env.diag, cmd)
	})
	manager.OnPush(protocol.KindStatusBar, func(cmd protocol.Command) {
		if update, ok := cmd.(protocol.StatusBarUpdate); ok {
			notifier.RunningProjects(update.RunningProjectNames)
		}
	})

	cmdr := commander.New(manager, ws, commander.Options{
		Logger:         env.logger,
		Diagnostics:    env.diag,
		RequestTimeout: time.Duration(cfg.Device.RequestTimeoutMS) * time.Millisecond,
	})

	return &device{
		env:       env,
		manager:   manager,
		commander: cmdr,
		workspace: ws,
		sink:      output.NewSink(cfg, env.logger),
	}, nil
}

func (d *device) close() {
	if err := d.manager.Disconnect(); err != nil && !errors.Is(err, session.ErrNotConnected) {
		d.env.logger.Warn("disconnect failed", "error", err.Error())
	}
}

// execute runs one request against the device and describes the outcome.
func (d *device) execute(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandRun:
		if err := d.commander.Run(ctx); err != nil {
			return failure(err)
		}
		return ipc.Response{OK: true, Message: d.projectMessage("running")}
	case ipc.CommandStop:
		if err := d.commander.Stop(ctx); err != nil {
			return failure(err)
		}
		return ipc.Response{OK: true, Message: d.projectMessage("stopped")}
	case ipc.CommandUpload:
		if err := d.commander.Upload(ctx); err != nil {
			return failure(err)
		}
		return ipc.Response{OK: true, Message: "upload complete"}
	case ipc.CommandStatus:
		return d.status(ctx, req.Name)
	case ipc.CommandSnapshot:
		return d.snapshot(ctx, req)
	case ipc.CommandState:
		state := d.manager.State()
		address, _ := d.manager.Address()
		message := string(state)
		if address != "" {
			message = fmt.Sprintf("%s %s", state, address)
		}
		return ipc.Response{OK: true, State: string(state), Address: address, Message: message}
	case ipc.CommandDisconnect:
		if err := d.manager.Disconnect(); err != nil {
			return failure(err)
		}
		return ipc.Response{OK: true, Message: "disconnected"}
	default:
		return ipc.Response{OK: false, Error: fmt.Sprintf("unsupported command %q", req.Command)}
	}
}

func (d *device) status(ctx context.Context, name string) ipc.Response {
	if err := d.manager.ConnectAutomatically(ctx); err != nil {
		return failure(err)
	}
	if strings.TrimSpace(name) == "" {
		current, err := d.workspace.CurrentProjectName()
		if err != nil {
			return failure(err)
		}
		name = current
	}

	state, err := d.commander.Status(ctx, name)
	if err != nil {
		return failure(err)
	}
	return ipc.Response{OK: true, State: string(state), Message: fmt.Sprintf("%s %s", name, state)}
}

func (d *device) snapshot(ctx context.Context, req ipc.Request) ipc.Response {
	image, err := d.commander.Snapshot(ctx)
	if err != nil {
		return failure(err)
	}

	if req.Clipboard {
		if err := d.sink.Copy(ctx, image); err != nil {
			return failure(err)
		}
		return ipc.Response{OK: true, Message: "snapshot copied to clipboard"}
	}

	path, err := d.sink.Save(req.Path, image)
	if err != nil {
		return failure(err)
	}
	return ipc.Response{OK: true, Message: path}
}

func (d *device) projectMessage(verb string) string {
	name, err := d.workspace.CurrentProjectName()
	if err != nil {
		return verb
	}
	return fmt.Sprintf("%s %s", name, verb)
}

func failure(err error) ipc.Response {
	return ipc.Response{OK: false, Error: err.Error()}
}

func responseError(resp ipc.Response) error {
	if resp.OK {
		return nil
	}
	return errors.New(resp.Error)
}

// knownDevices falls back to the configured address when history is empty.
type knownDevices struct {
	store    *history.Store
	fallback string
}

func (k knownDevices) MostRecent() (string, bool) {
	if address, ok := k.store.MostRecent(); ok {
		return address, true
	}
	if address := strings.TrimSpace(k.fallback); address != "" {
		return address, true
	}
	return "", false
}

func (k knownDevices) Record(address string) error {
	return k.store.Record(address)
}

func renderDeviceLog(diag *logging.Diagnostics, cmd protocol.Command) {
	entry, ok := cmd.(protocol.Log)
	if !ok {
		return
	}
	message := "[device] " + entry.Message
	switch entry.Level {
	case protocol.LevelError:
		diag.Error(message)
	case protocol.LevelWarn:
		diag.Warn(message)
	default:
		diag.Info(message)
	}
}
