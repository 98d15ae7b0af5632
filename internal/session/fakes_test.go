package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errClosed = errors.New("use of closed network connection")

type fakeTransport struct {
	inbound   chan []byte
	closed    chan struct{}
	closeOnce sync.Once
	sent      chan string
	writeErr  error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		inbound: make(chan []byte, 16),
		closed:  make(chan struct{}),
		sent:    make(chan string, 16),
	}
}

func (f *fakeTransport) ReadText() ([]byte, error) {
	select {
	case <-f.closed:
		return nil, errClosed
	default:
	}
	select {
	case data := <-f.inbound:
		return data, nil
	case <-f.closed:
		return nil, errClosed
	}
}

func (f *fakeTransport) WriteText(_ context.Context, data []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	select {
	case <-f.closed:
		return errClosed
	default:
	}
	f.sent <- string(data)
	return nil
}

func (f *fakeTransport) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeTransport) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

func (f *fakeTransport) receive(frame string) {
	f.inbound <- []byte(frame)
}

// fakeDialer hands out a fresh fakeTransport per dial, optionally blocking on gate.
type fakeDialer struct {
	mu         sync.Mutex
	transports []*fakeTransport
	targets    []string
	gate       chan struct{}
	entered    chan struct{}
	err        error
	waitCtx    bool
	dials      atomic.Int32
}

func (d *fakeDialer) Dial(ctx context.Context, target string) (Transport, error) {
	d.dials.Add(1)
	if d.entered != nil {
		d.entered <- struct{}{}
	}
	if d.gate != nil {
		<-d.gate
	}
	if d.waitCtx {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if d.err != nil {
		return nil, d.err
	}

	t := newFakeTransport()
	d.mu.Lock()
	d.transports = append(d.transports, t)
	d.targets = append(d.targets, target)
	d.mu.Unlock()
	return t, nil
}

func (d *fakeDialer) transport(i int) *fakeTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.transports[i]
}

func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.transports)
}

type fakeHistory struct {
	mu        sync.Mutex
	addresses []string
	recordErr error
}

func (h *fakeHistory) MostRecent() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.addresses) == 0 {
		return "", false
	}
	return h.addresses[len(h.addresses)-1], true
}

func (h *fakeHistory) Record(address string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.recordErr != nil {
		return h.recordErr
	}
	h.addresses = append(h.addresses, address)
	return nil
}

type fakeObserver struct {
	mu           sync.Mutex
	connected    []string
	disconnected []string
}

func (o *fakeObserver) Connected(address string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.connected = append(o.connected, address)
}

func (o *fakeObserver) Disconnected(address string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.disconnected = append(o.disconnected, address)
}

func (o *fakeObserver) disconnects() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.disconnected...)
}

type fakeDiagnostics struct {
	mu       sync.Mutex
	warnings []string
}

func (*fakeDiagnostics) Info(string)  {}
func (*fakeDiagnostics) Error(string) {}
func (d *fakeDiagnostics) Warn(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.warnings = append(d.warnings, msg)
}

func (d *fakeDiagnostics) warningCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.warnings)
}

func nextSent(t *testing.T, tr *fakeTransport) string {
	t.Helper()
	select {
	case frame := <-tr.sent:
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for outbound frame")
		return ""
	}
}

func requireEventually(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}
