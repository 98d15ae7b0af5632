package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultPort is the runtime's debug server port.
const DefaultPort = 9317

const defaultWriteTimeout = 10 * time.Second

// Transport is one open message-oriented connection to a device.
type Transport interface {
	// ReadText blocks for the next inbound frame.
	ReadText() ([]byte, error)
	// WriteText submits one frame. Callers serialize writes.
	WriteText(ctx context.Context, data []byte) error
	// Close terminates the connection without a close handshake.
	Close() error
}

// Dialer opens transports. ctx bounds the handshake.
type Dialer interface {
	Dial(ctx context.Context, url string) (Transport, error)
}

// WebSocketDialer opens gorilla/websocket transports.
type WebSocketDialer struct {
	Dialer       *websocket.Dialer
	WriteTimeout time.Duration
}

func (d WebSocketDialer) Dial(ctx context.Context, target string) (Transport, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{Proxy: http.ProxyFromEnvironment}
	}

	conn, resp, err := dialer.DialContext(ctx, target, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if errors.Is(err, websocket.ErrBadHandshake) && resp != nil {
			return nil, fmt.Errorf("%w (HTTP %d)", err, resp.StatusCode)
		}
		return nil, err
	}

	writeTimeout := d.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &wsTransport{conn: conn, writeTimeout: writeTimeout}, nil
}

type wsTransport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func (t *wsTransport) ReadText() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	return data, err
}

func (t *wsTransport) WriteText(ctx context.Context, data []byte) error {
	deadline := time.Now().Add(t.writeTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := t.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}

// NormalizeAddress turns host, host:port, or a URL into a ws:// or wss:// URL.
func NormalizeAddress(address string, defaultPort int) (string, error) {
	raw := strings.TrimSpace(address)
	if raw == "" {
		return "", errors.New("address is empty")
	}
	if !strings.Contains(raw, "://") {
		raw = "ws://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse address %q: %w", address, err)
	}

	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q in address %q", u.Scheme, address)
	}

	if u.Hostname() == "" {
		return "", fmt.Errorf("address %q has no host", address)
	}
	if u.Port() == "" {
		if defaultPort <= 0 {
			defaultPort = DefaultPort
		}
		u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(defaultPort))
	}
	return u.String(), nil
}

// isTimeout reports handshake deadline failures.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
