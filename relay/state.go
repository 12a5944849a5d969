package relay

// ConnectionState represents the current state of the relay connection.
type ConnectionState int

const (
	// StateDisconnected means the client is not connected.
	StateDisconnected ConnectionState = iota

	// StateConnecting means the client is establishing a connection.
	StateConnecting

	// StateConnected means the client is connected and ready.
	StateConnected

	// StateError means automatic recovery gave up; only an explicit
	// Reconnect call leaves this state.
	StateError
)

// String returns the string representation of a ConnectionState.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// StateEvent represents a connection state transition.
type StateEvent struct {
	OldState ConnectionState
	NewState ConnectionState
	Err      error // optional error that caused the transition
}
