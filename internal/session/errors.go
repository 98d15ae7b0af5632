package session

import "errors"

var (
	// ErrConnectFailed indicates the transport could not be opened.
	ErrConnectFailed = errors.New("connect failed")
	// ErrConnectTimeout indicates the handshake did not finish in time.
	ErrConnectTimeout = errors.New("connect timed out")
	// ErrConnectInProgress indicates another connect attempt owns the session.
	ErrConnectInProgress = errors.New("connect already in progress")
	// ErrNotConnected indicates there is no active transport.
	ErrNotConnected = errors.New("not connected to a device")
	// ErrNoKnownDevice indicates automatic connect found no address in history.
	ErrNoKnownDevice = errors.New("no known device; connect to an address first")
)
