// Package commander composes multi-step device operations on top of a session.
package commander

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/rbright/autojs-host/internal/correlator"
	"github.com/rbright/autojs-host/internal/protocol"
	"github.com/rbright/autojs-host/internal/workspace"
)

// Link is the commander-facing subset of the session manager.
type Link interface {
	ConnectAutomatically(context.Context) error
	Send(context.Context, protocol.Command) error
	AwaitNext(correlator.Category) *correlator.Waiter
	ResetAll(correlator.Category)
}

// Workspace supplies project names and upload files.
type Workspace interface {
	CurrentProjectName() (string, error)
	ImportProjectNames() ([]string, error)
	UploadFiles() ([]workspace.File, error)
}

// Diagnostics receives operator-visible messages.
type Diagnostics interface {
	Info(string)
	Warn(string)
	Error(string)
}

type noopDiagnostics struct{}

func (noopDiagnostics) Info(string)  {}
func (noopDiagnostics) Warn(string)  {}
func (noopDiagnostics) Error(string) {}

// Options wires optional commander collaborators.
type Options struct {
	Logger      *slog.Logger
	Diagnostics Diagnostics
	// RequestTimeout bounds each composed operation; zero means no bound.
	RequestTimeout time.Duration
	ReadFile       func(string) ([]byte, error)
}

// Commander runs device operations one step at a time.
type Commander struct {
	logger         *slog.Logger
	diag           Diagnostics
	link           Link
	workspace      Workspace
	requestTimeout time.Duration
	readFile       func(string) ([]byte, error)

	// operations guards everything that awaits CategoryResult; snapshots
	// additionally keeps captures from overlapping.
	operations *semaphore.Weighted
	snapshots  *semaphore.Weighted
}

// New constructs a commander over link and ws.
func New(link Link, ws Workspace, opts Options) *Commander {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Diagnostics == nil {
		opts.Diagnostics = noopDiagnostics{}
	}
	if opts.ReadFile == nil {
		opts.ReadFile = os.ReadFile
	}

	return &Commander{
		logger:         opts.Logger,
		diag:           opts.Diagnostics,
		link:           link,
		workspace:      ws,
		requestTimeout: opts.RequestTimeout,
		readFile:       opts.ReadFile,
		operations:     semaphore.NewWeighted(1),
		snapshots:      semaphore.NewWeighted(1),
	}
}

// Run stops the project if it is running, replaces its files on the device,
// and starts it.
func (c *Commander) Run(ctx context.Context) error {
	return c.guarded(ctx, "run", func(ctx context.Context) error {
		if err := c.link.ConnectAutomatically(ctx); err != nil {
			return err
		}

		name, err := c.workspace.CurrentProjectName()
		if err != nil {
			return err
		}

		state, err := c.status(ctx, name)
		if err != nil {
			return err
		}
		if state == protocol.StateRunning {
			if err := c.request(ctx, protocol.Stop{ProjectName: name}); err != nil {
				return err
			}
		}

		if err := c.removeAll(ctx); err != nil {
			return err
		}
		if _, err := c.uploadAll(ctx); err != nil {
			return err
		}
		if err := c.request(ctx, protocol.Run{ProjectName: name}); err != nil {
			return err
		}

		c.diag.Info(fmt.Sprintf("run: %s started", name))
		return nil
	})
}

// Stop stops the current project.
func (c *Commander) Stop(ctx context.Context) error {
	return c.guarded(ctx, "stop", func(ctx context.Context) error {
		if err := c.link.ConnectAutomatically(ctx); err != nil {
			return err
		}

		name, err := c.workspace.CurrentProjectName()
		if err != nil {
			return err
		}
		if err := c.request(ctx, protocol.Stop{ProjectName: name}); err != nil {
			return err
		}

		c.diag.Info(fmt.Sprintf("stop: %s stopped", name))
		return nil
	})
}

// Upload replaces every local project's files on the device.
func (c *Commander) Upload(ctx context.Context) error {
	return c.guarded(ctx, "upload", func(ctx context.Context) error {
		if err := c.link.ConnectAutomatically(ctx); err != nil {
			return err
		}
		if err := c.removeAll(ctx); err != nil {
			return err
		}

		count, err := c.uploadAll(ctx)
		if err != nil {
			return err
		}

		c.diag.Info(fmt.Sprintf("upload: %d files uploaded", count))
		return nil
	})
}

// Status queries the device for one project's state. It does not connect.
func (c *Commander) Status(ctx context.Context, name string) (protocol.ProjectState, error) {
	var state protocol.ProjectState
	err := c.guarded(ctx, "status", func(ctx context.Context) error {
		var err error
		state, err = c.status(ctx, name)
		return err
	})
	return state, err
}

// Snapshot captures the device screen and returns the raw image bytes.
//
// A capture in progress fails a second one fast. The capture also awaits a
// result ack, so it holds the operation guard for the result queue.
func (c *Commander) Snapshot(ctx context.Context) ([]byte, error) {
	if !c.snapshots.TryAcquire(1) {
		return nil, ErrOperationInProgress
	}
	defer c.snapshots.Release(1)

	var image []byte
	err := c.guarded(ctx, "snapshot", func(ctx context.Context) error {
		var err error
		image, err = c.snapshot(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("snapshot captured", "bytes", len(image))
	return image, nil
}

// snapshot sends a capture request, waits for its ack, then for the image.
func (c *Commander) snapshot(ctx context.Context) ([]byte, error) {
	if err := c.link.ConnectAutomatically(ctx); err != nil {
		return nil, err
	}

	ack := c.link.AwaitNext(correlator.CategoryResult)
	pending := c.link.AwaitNext(correlator.CategorySnapshot)
	if err := c.link.Send(ctx, protocol.Snapshot{}); err != nil {
		c.link.ResetAll(correlator.CategoryResult)
		c.link.ResetAll(correlator.CategorySnapshot)
		return nil, err
	}

	if err := c.acknowledged(ctx, "snapshot", ack, correlator.CategorySnapshot); err != nil {
		return nil, err
	}

	reply, err := c.await(ctx, pending, correlator.CategorySnapshot)
	if err != nil {
		return nil, err
	}
	result, ok := reply.(protocol.SnapshotResult)
	if !ok {
		return nil, fmt.Errorf("unexpected snapshot reply %T", reply)
	}
	if !result.Success {
		return nil, &DeviceError{Op: "snapshot", Message: result.Message}
	}
	return result.Bytes, nil
}

// guarded applies the operation single-flight guard and the request timeout.
func (c *Commander) guarded(ctx context.Context, op string, fn func(context.Context) error) error {
	if !c.operations.TryAcquire(1) {
		return ErrOperationInProgress
	}
	defer c.operations.Release(1)

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	startedAt := time.Now()
	err := fn(ctx)
	c.logger.Info("operation finished",
		"op", op,
		"duration_ms", time.Since(startedAt).Milliseconds(),
		"ok", err == nil,
	)
	if err != nil {
		c.report(op, err)
	}
	return err
}

func (c *Commander) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.requestTimeout > 0 {
		return context.WithTimeout(ctx, c.requestTimeout)
	}
	return context.WithCancel(ctx)
}

// report logs a failure; callers surface it to the operator.
func (c *Commander) report(op string, err error) {
	c.logger.Error("operation failed", "op", op, "error", err.Error(), "device_reported", IsDeviceError(err))
}

// await waits on w. When ctx ends first, the listed categories are reset so
// a late reply finds no waiter instead of completing the next caller's.
func (c *Commander) await(ctx context.Context, w *correlator.Waiter, categories ...correlator.Category) (protocol.Command, error) {
	reply, err := w.Wait(ctx)
	if err != nil && ctx.Err() != nil {
		for _, category := range categories {
			c.link.ResetAll(category)
		}
	}
	return reply, err
}

// acknowledged waits for the result ack of a two-part reply. Any failure
// resets data, the category holding the second part.
func (c *Commander) acknowledged(ctx context.Context, op string, ack *correlator.Waiter, data correlator.Category) error {
	reply, err := c.await(ctx, ack, correlator.CategoryResult, data)
	if err != nil {
		c.link.ResetAll(data)
		return err
	}
	result, ok := reply.(protocol.OperationResult)
	if !ok {
		c.link.ResetAll(data)
		return fmt.Errorf("unexpected %s ack %T", op, reply)
	}
	if !result.Success {
		c.link.ResetAll(data)
		return &DeviceError{Op: op, Message: result.Message}
	}
	return nil
}

// request sends cmd and waits for its OperationResult.
func (c *Commander) request(ctx context.Context, cmd protocol.Command) error {
	waiter := c.link.AwaitNext(correlator.CategoryResult)
	if err := c.link.Send(ctx, cmd); err != nil {
		c.link.ResetAll(correlator.CategoryResult)
		return err
	}

	reply, err := c.await(ctx, waiter, correlator.CategoryResult)
	if err != nil {
		return err
	}
	result, ok := reply.(protocol.OperationResult)
	if !ok {
		return fmt.Errorf("unexpected %s reply %T", cmd.Kind(), reply)
	}
	if !result.Success {
		return &DeviceError{Op: string(cmd.Kind()), Message: result.Message}
	}
	return nil
}

// status sends a StatusQuery, waits for its ack, then for the StatusResult.
//
// Both waiters are queued before sending so a fast StatusResult cannot arrive
// unclaimed.
func (c *Commander) status(ctx context.Context, name string) (protocol.ProjectState, error) {
	ack := c.link.AwaitNext(correlator.CategoryResult)
	pending := c.link.AwaitNext(correlator.CategoryStatus)
	if err := c.link.Send(ctx, protocol.StatusQuery{Name: name}); err != nil {
		c.link.ResetAll(correlator.CategoryResult)
		c.link.ResetAll(correlator.CategoryStatus)
		return "", err
	}

	if err := c.acknowledged(ctx, "status", ack, correlator.CategoryStatus); err != nil {
		return "", err
	}

	reply, err := c.await(ctx, pending, correlator.CategoryStatus)
	if err != nil {
		return "", err
	}
	status, ok := reply.(protocol.StatusResult)
	if !ok {
		return "", fmt.Errorf("unexpected status reply %T", reply)
	}
	if status.Name != name {
		c.logger.Warn("status reply names a different project", "want", name, "got", status.Name)
	}
	return status.State, nil
}

func (c *Commander) projectNames() ([]string, error) {
	current, err := c.workspace.CurrentProjectName()
	if err != nil {
		return nil, err
	}
	imports, err := c.workspace.ImportProjectNames()
	if err != nil {
		return nil, err
	}
	// Imports first, matching the upload order.
	return append(imports, current), nil
}

func (c *Commander) removeAll(ctx context.Context) error {
	names, err := c.projectNames()
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := c.request(ctx, protocol.Remove{ProjectName: name}); err != nil {
			return err
		}
	}
	return nil
}

// uploadAll uploads files in enumeration order, each fully acknowledged before
// the next is sent.
func (c *Commander) uploadAll(ctx context.Context) (int, error) {
	files, err := c.workspace.UploadFiles()
	if err != nil {
		return 0, err
	}

	for _, file := range files {
		data, err := c.readFile(file.AbsolutePath)
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", file.AbsolutePath, err)
		}
		c.logger.Debug("uploading file", "dst", file.RemotePath, "bytes", len(data))
		if err := c.request(ctx, protocol.Upload{DestPath: file.RemotePath, Bytes: data}); err != nil {
			return 0, err
		}
	}
	return len(files), nil
}
