package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// SocketName is the owner socket file under XDG_RUNTIME_DIR.
const SocketName = "autojs-host.sock"

// ErrAlreadyRunning means a live attach owner answers on the socket.
var ErrAlreadyRunning = errors.New("autojs-host is already attached")

const reclaimBackoff = 25 * time.Millisecond

// RuntimeSocketPath returns where the attach owner listens for forwarded commands.
func RuntimeSocketPath() (string, error) {
	runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if runtimeDir == "" {
		return "", errors.New("XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(runtimeDir, SocketName), nil
}

// Acquire makes the caller the attach owner by listening on path.
//
// When path is taken, the current holder gets ownerTimeout to answer. A holder
// that answers keeps the socket and Acquire returns ErrAlreadyRunning; a socket
// nobody answers on is unlinked and listening is retried up to retries times.
func Acquire(ctx context.Context, path string, ownerTimeout time.Duration, retries int) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create socket dir for %s: %w", path, err)
	}

	for attempt := range retries + 1 {
		listener, err := net.Listen("unix", path)
		if err == nil {
			_ = os.Chmod(path, 0o600)
			return listener, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("listen on %s: %w", path, err)
		}

		if err := reclaim(ctx, path, ownerTimeout); err != nil {
			return nil, err
		}
		if attempt == retries {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(reclaimBackoff * time.Duration(attempt+1)):
		}
	}

	return nil, fmt.Errorf("socket %s still busy after %d retries", path, retries)
}

// reclaim removes path when no owner answers on it. A socket whose holder
// cannot be confirmed dead is left in place.
func reclaim(ctx context.Context, path string, ownerTimeout time.Duration) error {
	alive, err := Probe(ctx, path, ownerTimeout)
	switch {
	case alive:
		return ErrAlreadyRunning
	case err != nil:
		return fmt.Errorf("check attached owner at %s: %w", path, err)
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("unlink dead socket %s: %w", path, err)
	}
	return nil
}
