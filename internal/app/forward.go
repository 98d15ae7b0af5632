package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rbright/autojs-host/internal/ipc"
)

// tryForward sends req to an attached owner. handled is false when no owner
// is listening.
func tryForward(ctx context.Context, socketPath string, req ipc.Request, timeout time.Duration) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, req, timeout)
	switch {
	case err == nil:
		return resp, true, responseError(resp)
	case errors.Is(err, ipc.ErrNoOwner):
		return ipc.Response{}, false, nil
	default:
		return ipc.Response{}, true, fmt.Errorf("forward %s: %w", req.Command, err)
	}
}
