// Package session owns the device transport: connection lifecycle, serialized
// sends, and routing of inbound frames to push handlers or the correlator.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/rbright/autojs-host/internal/correlator"
	"github.com/rbright/autojs-host/internal/fsm"
	"github.com/rbright/autojs-host/internal/protocol"
)

const defaultHandshakeTimeout = 5 * time.Second

// History is the session-facing subset of the connection history store.
type History interface {
	MostRecent() (string, bool)
	Record(address string) error
}

// Observer is notified about connection lifecycle changes.
type Observer interface {
	Connected(address string)
	Disconnected(address string)
}

// Diagnostics receives operator-visible messages.
type Diagnostics interface {
	Info(string)
	Warn(string)
	Error(string)
}

// PushHandler receives one push frame on the read goroutine, in arrival order.
// Handlers must not call Disconnect.
type PushHandler func(protocol.Command)

type noopHistory struct{}

func (noopHistory) MostRecent() (string, bool) { return "", false }
func (noopHistory) Record(string) error         { return nil }

type noopObserver struct{}

func (noopObserver) Connected(string)    {}
func (noopObserver) Disconnected(string) {}

type noopDiagnostics struct{}

func (noopDiagnostics) Info(string)  {}
func (noopDiagnostics) Warn(string)  {}
func (noopDiagnostics) Error(string) {}

// Options wires a Manager. Zero values fall back to safe defaults.
type Options struct {
	Logger           *slog.Logger
	Diagnostics      Diagnostics
	Dialer           Dialer
	History          History
	Observer         Observer
	Correlator       *correlator.Correlator
	DefaultPort      int
	HandshakeTimeout time.Duration
}

// connection is one open transport and its read goroutine.
type connection struct {
	id        string
	address   string
	transport Transport
	done      chan struct{}

	writeMu sync.Mutex
}

// Manager is the single owner of the device transport.
type Manager struct {
	logger           *slog.Logger
	diag             Diagnostics
	dialer           Dialer
	history          History
	observer         Observer
	correlator       *correlator.Correlator
	defaultPort      int
	handshakeTimeout time.Duration
	routes           map[protocol.Kind]route

	connectGate *semaphore.Weighted

	pushMu sync.RWMutex
	push   map[protocol.Kind][]PushHandler

	mu    sync.RWMutex
	state fsm.State
	conn  *connection
}

// NewManager constructs a disconnected session manager.
func NewManager(opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Diagnostics == nil {
		opts.Diagnostics = noopDiagnostics{}
	}
	if opts.Dialer == nil {
		opts.Dialer = WebSocketDialer{}
	}
	if opts.History == nil {
		opts.History = noopHistory{}
	}
	if opts.Observer == nil {
		opts.Observer = noopObserver{}
	}
	if opts.Correlator == nil {
		opts.Correlator = correlator.New(opts.Logger)
	}
	if opts.DefaultPort <= 0 {
		opts.DefaultPort = DefaultPort
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = defaultHandshakeTimeout
	}

	return &Manager{
		logger:           opts.Logger,
		diag:             opts.Diagnostics,
		dialer:           opts.Dialer,
		history:          opts.History,
		observer:         opts.Observer,
		correlator:       opts.Correlator,
		defaultPort:      opts.DefaultPort,
		handshakeTimeout: opts.HandshakeTimeout,
		routes:           defaultRoutes(),
		connectGate:      semaphore.NewWeighted(1),
		push:             make(map[protocol.Kind][]PushHandler),
		state:            fsm.StateDisconnected,
	}
}

// State returns the current lifecycle state snapshot.
func (m *Manager) State() fsm.State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Address returns the address of the active connection, if any.
func (m *Manager) Address() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.conn == nil {
		return "", false
	}
	return m.conn.address, true
}

// OnPush registers a handler for a push kind (log, statusBar).
func (m *Manager) OnPush(kind protocol.Kind, handler PushHandler) {
	m.pushMu.Lock()
	defer m.pushMu.Unlock()
	m.push[kind] = append(m.push[kind], handler)
}

// AwaitNext registers a waiter for the next reply of category.
func (m *Manager) AwaitNext(category correlator.Category) *correlator.Waiter {
	return m.correlator.AwaitNext(category)
}

// ResetAll rejects all pending waiters of category.
func (m *Manager) ResetAll(category correlator.Category) {
	m.correlator.ResetAll(category)
}

// transitionLocked applies one FSM event. Callers hold m.mu.
func (m *Manager) transitionLocked(event fsm.Event) error {
	next, err := fsm.Transition(m.state, event)
	if err != nil {
		return err
	}
	m.state = next
	return nil
}

// Connect opens a transport to address, replacing any active one.
//
// A concurrent Connect or ConnectAutomatically fails with ErrConnectInProgress.
func (m *Manager) Connect(ctx context.Context, address string) error {
	if !m.connectGate.TryAcquire(1) {
		return ErrConnectInProgress
	}
	defer m.connectGate.Release(1)

	return m.connect(ctx, address)
}

// ConnectAutomatically connects to the most recently used address unless
// already connected.
func (m *Manager) ConnectAutomatically(ctx context.Context) error {
	if m.State() == fsm.StateConnected {
		return nil
	}
	if !m.connectGate.TryAcquire(1) {
		return ErrConnectInProgress
	}
	defer m.connectGate.Release(1)

	if m.State() == fsm.StateConnected {
		return nil
	}

	address, ok := m.history.MostRecent()
	if !ok {
		return ErrNoKnownDevice
	}
	return m.connect(ctx, address)
}

func (m *Manager) connect(ctx context.Context, address string) error {
	address = strings.TrimSpace(address)
	target, err := NormalizeAddress(address, m.defaultPort)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}

	if m.State() == fsm.StateConnected {
		m.logger.Info("replacing active connection", "address", address)
		if err := m.Disconnect(); err != nil && !errors.Is(err, ErrNotConnected) {
			return err
		}
	}

	m.mu.Lock()
	err = m.transitionLocked(fsm.EventDial)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	dialCtx, cancel := context.WithTimeout(ctx, m.handshakeTimeout)
	defer cancel()

	startedAt := time.Now()
	transport, err := m.dialer.Dial(dialCtx, target)
	if err != nil {
		m.mu.Lock()
		_ = m.transitionLocked(fsm.EventFail)
		m.mu.Unlock()

		m.logger.Error("connect failed", "address", address, "target", target, "error", err.Error())
		if ctx.Err() == nil && isTimeout(err) {
			return fmt.Errorf("%w: %s after %s", ErrConnectTimeout, address, m.handshakeTimeout)
		}
		return fmt.Errorf("%w: %s: %w", ErrConnectFailed, address, err)
	}

	conn := &connection{
		id:        uuid.NewString(),
		address:   address,
		transport: transport,
		done:      make(chan struct{}),
	}

	m.mu.Lock()
	_ = m.transitionLocked(fsm.EventOpen)
	m.conn = conn
	m.mu.Unlock()

	m.logger.Info("connected",
		"conn_id", conn.id,
		"address", address,
		"target", target,
		"handshake_ms", time.Since(startedAt).Milliseconds(),
	)

	if err := m.history.Record(address); err != nil {
		m.diag.Warn(fmt.Sprintf("could not record %s in connection history: %v", address, err))
	}
	m.observer.Connected(address)

	go m.readLoop(conn)
	return nil
}

// Disconnect terminates the active transport and waits for its reader to exit.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	conn := m.conn
	if conn == nil {
		m.mu.Unlock()
		return ErrNotConnected
	}
	m.conn = nil
	_ = m.transitionLocked(fsm.EventClose)
	m.mu.Unlock()

	if err := conn.transport.Close(); err != nil {
		m.logger.Warn("close transport", "conn_id", conn.id, "error", err.Error())
	}
	<-conn.done

	m.resetWaiters()
	m.logger.Info("disconnected", "conn_id", conn.id, "address", conn.address)
	return nil
}

// Send encodes cmd and submits it on the active transport.
func (m *Manager) Send(ctx context.Context, cmd protocol.Command) error {
	wire, err := protocol.Encode(cmd)
	if err != nil {
		return err
	}
	return m.SendRaw(ctx, wire)
}

// SendRaw submits one wire frame. It resolves once the transport accepts the
// frame; it does not wait for any device-level acknowledgement.
func (m *Manager) SendRaw(ctx context.Context, wire string) error {
	m.mu.RLock()
	conn := m.conn
	m.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}

	conn.writeMu.Lock()
	defer conn.writeMu.Unlock()

	if err := conn.transport.WriteText(ctx, []byte(wire)); err != nil {
		return fmt.Errorf("send to %s: %w", conn.address, err)
	}
	return nil
}

// readLoop processes frames strictly in arrival order until the transport fails.
func (m *Manager) readLoop(conn *connection) {
	defer close(conn.done)

	for {
		data, err := conn.transport.ReadText()
		if err != nil {
			m.handleClosed(conn, err)
			return
		}
		m.handleFrame(conn, data)
	}
}

// handleClosed reacts to transport termination not initiated by Disconnect.
func (m *Manager) handleClosed(conn *connection, cause error) {
	m.mu.Lock()
	if m.conn != conn {
		m.mu.Unlock()
		return
	}
	m.conn = nil
	_ = m.transitionLocked(fsm.EventClose)
	m.mu.Unlock()

	_ = conn.transport.Close()
	m.resetWaiters()

	m.logger.Warn("connection lost", "conn_id", conn.id, "address", conn.address, "error", cause.Error())
	m.diag.Warn(fmt.Sprintf("device %s disconnected", conn.address))
	m.observer.Disconnected(conn.address)
}

func (m *Manager) resetWaiters() {
	for _, category := range correlator.Categories {
		m.correlator.ResetAll(category)
	}
}
