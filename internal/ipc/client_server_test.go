package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// serveForTest runs Serve on a fresh socket and stops it at cleanup.
func serveForTest(t *testing.T, handler HandlerFunc) string {
	t.Helper()

	socketPath := filepath.Join(t.TempDir(), "autojs-host.sock")
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, listener, handler) }()

	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return socketPath
}

// rawServer accepts one connection and hands it to fn.
func rawServer(t *testing.T, fn func(net.Conn)) string {
	t.Helper()

	socketPath := filepath.Join(t.TempDir(), "autojs-host.sock")
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		fn(conn)
	}()
	return socketPath
}

func TestSendRoundTrip(t *testing.T) {
	received := make(chan Request, 1)
	socketPath := serveForTest(t, func(_ context.Context, req Request) Response {
		received <- req
		return Response{OK: true, State: "Running", Message: "demo Running"}
	})

	resp, err := Send(context.Background(), socketPath, Request{Command: CommandStatus, Name: "demo"}, time.Second)
	require.NoError(t, err)
	require.Equal(t, Response{OK: true, State: "Running", Message: "demo Running"}, resp)
	require.Equal(t, Request{Command: CommandStatus, Name: "demo"}, <-received)
}

func TestSendWithoutOwner(t *testing.T) {
	_, err := Send(context.Background(), filepath.Join(t.TempDir(), "missing.sock"), Request{Command: CommandRun}, time.Second)
	require.ErrorIs(t, err, ErrNoOwner)
}

func TestSendDecodeResponseError(t *testing.T) {
	socketPath := rawServer(t, func(conn net.Conn) {
		_, _ = bufio.NewReader(conn).ReadBytes('\n')
		_, _ = conn.Write([]byte("not-json\n"))
	})

	_, err := Send(context.Background(), socketPath, Request{Command: CommandState}, time.Second)
	require.ErrorContains(t, err, "decode response")
}

func TestSendReadResponseError(t *testing.T) {
	socketPath := rawServer(t, func(net.Conn) {})

	_, err := Send(context.Background(), socketPath, Request{Command: CommandState}, time.Second)
	require.ErrorContains(t, err, "read response")
}

func TestSendHonoursCancellation(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	socketPath := rawServer(t, func(net.Conn) { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := Send(ctx, socketPath, Request{Command: CommandRun}, time.Minute)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestServeDecodeRequestErrorResponse(t *testing.T) {
	socketPath := serveForTest(t, func(context.Context, Request) Response {
		return Response{OK: true}
	})

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("not-json\n"))
	require.NoError(t, err)

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(line, &resp))
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "decode request")
}

func TestServeWaitsForInflightRequests(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "autojs-host.sock")
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	entered := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, listener, HandlerFunc(func(context.Context, Request) Response {
			close(entered)
			time.Sleep(50 * time.Millisecond)
			return Response{OK: true, Message: "finished"}
		}))
	}()

	replies := make(chan Response, 1)
	go func() {
		resp, _ := Send(context.Background(), socketPath, Request{Command: CommandUpload}, time.Second)
		replies <- resp
	}()

	<-entered
	cancel()
	require.NoError(t, <-done)
	require.Equal(t, "finished", (<-replies).Message)
}

func TestProbe(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "autojs-host.sock")
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, listener, HandlerFunc(func(_ context.Context, req Request) Response {
			require.Equal(t, CommandState, req.Command)
			return Response{OK: true, State: "connected"}
		}))
	}()

	alive, err := Probe(context.Background(), socketPath, 200*time.Millisecond)
	require.NoError(t, err)
	require.True(t, alive)

	cancel()
	require.NoError(t, <-done)

	alive, err = Probe(context.Background(), socketPath, 100*time.Millisecond)
	require.NoError(t, err)
	require.False(t, alive)
}
