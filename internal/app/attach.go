package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rbright/autojs-host/internal/indicator"
	"github.com/rbright/autojs-host/internal/ipc"
)

// commandAttach holds the device session and serves forwarded commands until
// ctx is cancelled.
func (r Runner) commandAttach(ctx context.Context, env environment, address string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		env.diag.Error(fmt.Sprintf("attach: %v", err))
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			env.diag.Error(fmt.Sprintf("attach: %v (socket %s)", err, socketPath))
			return 1
		}
		env.diag.Error(fmt.Sprintf("attach: %v", err))
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	notifier := indicator.New(env.config.Indicator, r.Stdout, env.logger)
	dev, err := newDevice(env, notifier)
	if err != nil {
		env.diag.Error(err.Error())
		return 1
	}
	defer dev.close()

	if address != "" {
		err = dev.manager.Connect(ctx, address)
	} else {
		err = dev.manager.ConnectAutomatically(ctx)
	}
	if err != nil {
		env.diag.Error(fmt.Sprintf("attach: %v", err))
		return 1
	}
	env.diag.Info(fmt.Sprintf("serving commands on %s", socketPath))

	if err := ipc.ServeWithLogger(ctx, listener, owner{device: dev}, env.logger); err != nil {
		env.diag.Error(fmt.Sprintf("attach: ipc server failed: %v", err))
		return 1
	}
	return 0
}

// owner serves forwarded requests against the attached device.
type owner struct {
	device *device
}

func (o owner) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	o.device.env.logger.Info("forwarded command", "command", req.Command, "name", req.Name, "path", req.Path)

	resp := o.device.execute(ctx, req)
	if !resp.OK {
		o.device.env.diag.Error(fmt.Sprintf("%s: %s", req.Command, resp.Error))
	}
	return resp
}
