// Package fsm defines the device session lifecycle state machine.
package fsm

import "fmt"

type State string

type Event string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

const (
	// EventDial starts a transport handshake.
	EventDial Event = "dial"
	// EventOpen reports a completed handshake.
	EventOpen Event = "open"
	// EventFail reports a failed or timed out handshake.
	EventFail Event = "fail"
	// EventClose reports transport termination, local or remote.
	EventClose Event = "close"
)

func Transition(current State, event Event) (State, error) {
	switch current {
	case StateDisconnected:
		switch event {
		case EventDial:
			return StateConnecting, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateConnecting:
		switch event {
		case EventOpen:
			return StateConnected, nil
		case EventFail:
			return StateDisconnected, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateConnected:
		switch event {
		case EventClose:
			return StateDisconnected, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
