package commander

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/autojs-host/internal/protocol"
	"github.com/rbright/autojs-host/internal/session"
	"github.com/rbright/autojs-host/internal/workspace"
)

var errWireClosed = errors.New("wire closed")

// wireDevice is an in-memory transport that answers each outbound frame with
// raw wire frames chosen by reply. Outbound snapshot requests decode as
// SnapshotResult, so reply should switch on Kind for them.
type wireDevice struct {
	reply func(protocol.Command) []string

	inbound   chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu   sync.Mutex
	sent []protocol.Kind
}

func newWireDevice(reply func(protocol.Command) []string) *wireDevice {
	return &wireDevice{
		reply:   reply,
		inbound: make(chan []byte, 64),
		closed:  make(chan struct{}),
	}
}

func (d *wireDevice) Dial(context.Context, string) (session.Transport, error) {
	return d, nil
}

func (d *wireDevice) ReadText() ([]byte, error) {
	select {
	case data := <-d.inbound:
		return data, nil
	case <-d.closed:
		return nil, errWireClosed
	}
}

func (d *wireDevice) WriteText(_ context.Context, data []byte) error {
	select {
	case <-d.closed:
		return errWireClosed
	default:
	}

	cmd, err := protocol.Decode(string(data))
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.sent = append(d.sent, cmd.Kind())
	d.mu.Unlock()

	for _, frame := range d.reply(cmd) {
		d.inbound <- []byte(frame)
	}
	return nil
}

func (d *wireDevice) Close() error {
	d.closeOnce.Do(func() { close(d.closed) })
	return nil
}

func (d *wireDevice) sentKinds() []protocol.Kind {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]protocol.Kind(nil), d.sent...)
}

// connectedManager returns a session connected to device.
func connectedManager(t *testing.T, device *wireDevice) *session.Manager {
	t.Helper()

	m := session.NewManager(session.Options{Dialer: device, HandshakeTimeout: time.Second})
	require.NoError(t, m.Connect(context.Background(), "device.local"))
	t.Cleanup(func() { _ = m.Disconnect() })
	return m
}

const wireAck = `{"cmd":"result","data":{"success":true,"message":""}}`

func TestRunOverSessionWithInterleavedPushes(t *testing.T) {
	device := newWireDevice(func(cmd protocol.Command) []string {
		switch c := cmd.(type) {
		case protocol.StatusQuery:
			return []string{
				`{"cmd":"statusBar","data":{"runningProjects":["demo"]}}`,
				wireAck,
				`{"cmd":"log","data":{"level":"Info","message":"tick"}}`,
				`{"cmd":"status","data":{"name":"` + c.Name + `","state":"Running"}}`,
			}
		case protocol.Stop:
			return []string{wireAck, `{"cmd":"statusBar","data":{"runningProjects":[]}}`}
		case protocol.Run:
			return []string{`{"cmd":"statusBar","data":{"runningProjects":["demo"]}}`, wireAck}
		default:
			return []string{`{"cmd":"log","data":{"level":"Info","message":"ok"}}`, wireAck}
		}
	})
	m := connectedManager(t, device)

	var mu sync.Mutex
	var running [][]string
	m.OnPush(protocol.KindStatusBar, func(cmd protocol.Command) {
		mu.Lock()
		defer mu.Unlock()
		running = append(running, cmd.(protocol.StatusBarUpdate).RunningProjectNames)
	})

	cmdr := New(m, fakeWorkspace{
		name:  "demo",
		files: []workspace.File{{AbsolutePath: "/w/demo/main.js", RemotePath: "Projects/demo/main.js"}},
	}, Options{
		RequestTimeout: 2 * time.Second,
		ReadFile:       readFromMap(map[string]string{"/w/demo/main.js": "main"}),
	})

	require.NoError(t, cmdr.Run(context.Background()))
	require.Equal(t, []protocol.Kind{
		protocol.KindStatus,
		protocol.KindStop,
		protocol.KindRemove,
		protocol.KindUpload,
		protocol.KindRun,
	}, device.sentKinds())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(running) == 3
	}, time.Second, 5*time.Millisecond)
	mu.Lock()
	require.Equal(t, [][]string{{"demo"}, nil, {"demo"}}, running)
	mu.Unlock()
}

func TestSnapshotOverSessionAckThenImage(t *testing.T) {
	device := newWireDevice(func(cmd protocol.Command) []string {
		if cmd.Kind() != protocol.KindSnapshot {
			return nil
		}
		return []string{
			`{"cmd":"result","data":{"success":true}}`,
			`{"cmd":"snapshot","data":{"file":[137,80,78,71]}}`,
		}
	})
	m := connectedManager(t, device)
	cmdr := New(m, fakeWorkspace{name: "demo"}, Options{RequestTimeout: 2 * time.Second})

	image, err := cmdr.Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, []byte{137, 80, 78, 71}, image)
}

func TestSnapshotOverSessionAckFailure(t *testing.T) {
	device := newWireDevice(func(protocol.Command) []string {
		return []string{`{"cmd":"result","data":{"success":false,"message":"capture permission missing"}}`}
	})
	m := connectedManager(t, device)
	cmdr := New(m, fakeWorkspace{name: "demo"}, Options{RequestTimeout: 2 * time.Second})

	_, err := cmdr.Snapshot(context.Background())
	require.EqualError(t, err, "capture permission missing")
}

func TestTimedOutStopOverSessionLeavesQueueClean(t *testing.T) {
	var mu sync.Mutex
	silent := true
	device := newWireDevice(func(protocol.Command) []string {
		mu.Lock()
		defer mu.Unlock()
		if silent {
			return nil
		}
		return []string{`{"cmd":"result","data":{"success":false,"message":"not running"}}`}
	})
	m := connectedManager(t, device)
	cmdr := New(m, fakeWorkspace{name: "demo"}, Options{RequestTimeout: 100 * time.Millisecond})

	require.ErrorIs(t, cmdr.Stop(context.Background()), context.DeadlineExceeded)

	mu.Lock()
	silent = false
	mu.Unlock()

	err := cmdr.Stop(context.Background())
	require.EqualError(t, err, "not running")
	require.True(t, IsDeviceError(err))
	require.Equal(t, []protocol.Kind{protocol.KindStop, protocol.KindStop}, device.sentKinds())
}
