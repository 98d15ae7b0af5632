// Package indicator surfaces device connection and running-project state to the operator.
package indicator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rbright/autojs-host/internal/config"
)

// Notifier receives device state changes.
type Notifier interface {
	Connected(address string)
	Disconnected(address string)
	RunningProjects(names []string)
}

// New selects a backend from cfg. A disabled indicator returns a no-op notifier.
func New(cfg config.IndicatorConfig, out io.Writer, logger *slog.Logger) Notifier {
	if !cfg.Enable {
		return Noop{}
	}
	if strings.EqualFold(strings.TrimSpace(cfg.Backend), "desktop") {
		return NewDesktop(cfg.DesktopAppName, logger)
	}
	return NewTerminal(out)
}

// Noop discards every notification.
type Noop struct{}

func (Noop) Connected(string)         {}
func (Noop) Disconnected(string)      {}
func (Noop) RunningProjects([]string) {}

// Terminal writes one "[device]" line per state change.
type Terminal struct {
	mu      sync.Mutex
	out     io.Writer
	running []string
}

// NewTerminal writes to out.
func NewTerminal(out io.Writer) *Terminal {
	if out == nil {
		out = io.Discard
	}
	return &Terminal{out: out}
}

func (t *Terminal) Connected(address string) {
	t.write(connectedText(address))
}

func (t *Terminal) Disconnected(address string) {
	t.mu.Lock()
	t.running = nil
	t.mu.Unlock()
	t.write(disconnectedText(address))
}

// RunningProjects only prints when the set differs from the last update.
func (t *Terminal) RunningProjects(names []string) {
	t.mu.Lock()
	unchanged := t.running != nil && slices.Equal(t.running, names)
	t.running = append([]string{}, names...)
	t.mu.Unlock()
	if unchanged {
		return
	}
	t.write(runningText(names))
}

func (t *Terminal) write(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = fmt.Fprintf(t.out, "[device] %s\n", text)
}

// Desktop sends freedesktop notifications. Connection changes and running
// projects each own one replaceable notification.
type Desktop struct {
	appName string
	logger  *slog.Logger

	mu           sync.Mutex
	connectionID uint32
	runningID    uint32
}

// NewDesktop creates a desktop notifier using appName as the sender.
func NewDesktop(appName string, logger *slog.Logger) *Desktop {
	appName = strings.TrimSpace(appName)
	if appName == "" {
		appName = "autojs-host"
	}
	return &Desktop{appName: appName, logger: logger}
}

func (d *Desktop) Connected(address string) {
	d.run(func(ctx context.Context) error {
		return d.replace(ctx, &d.connectionID, connectedText(address), 4000)
	})
}

func (d *Desktop) Disconnected(address string) {
	d.run(func(ctx context.Context) error {
		if err := d.dismiss(ctx, &d.runningID); err != nil {
			return err
		}
		return d.replace(ctx, &d.connectionID, disconnectedText(address), 4000)
	})
}

// RunningProjects keeps a persistent notification while anything runs.
func (d *Desktop) RunningProjects(names []string) {
	d.run(func(ctx context.Context) error {
		if len(names) == 0 {
			return d.dismiss(ctx, &d.runningID)
		}
		return d.replace(ctx, &d.runningID, runningText(names), 0)
	})
}

func (d *Desktop) replace(ctx context.Context, slot *uint32, text string, timeoutMS int) error {
	d.mu.Lock()
	replaceID := *slot
	d.mu.Unlock()

	id, err := desktopNotify(ctx, d.appName, replaceID, text, timeoutMS)
	if err != nil {
		return err
	}

	d.mu.Lock()
	*slot = id
	d.mu.Unlock()
	return nil
}

func (d *Desktop) dismiss(ctx context.Context, slot *uint32) error {
	d.mu.Lock()
	id := *slot
	*slot = 0
	d.mu.Unlock()

	if id == 0 {
		return nil
	}
	return desktopDismiss(ctx, id)
}

// run executes a notification call with a bounded timeout.
func (d *Desktop) run(fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancel()
	if err := fn(ctx); err != nil && d.logger != nil {
		d.logger.Debug("indicator dispatch failed", "error", err.Error())
	}
}
