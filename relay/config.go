package relay

import "time"

// Config controls how the SDK connects.
type Config struct {
	URL    string
	UserID string // identity announced at connect time, appended as ?userId=

	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration

	// AutoReconnect enables automatic recovery after unclean disconnects.
	// Delays grow as ReconnectBaseDelay * 2^attempt, capped at
	// MaxReconnectDelay; after MaxReconnectAttempts consecutive failures
	// the client parks in StateError until Reconnect is called.
	AutoReconnect        bool
	ReconnectBaseDelay   time.Duration
	MaxReconnectDelay    time.Duration
	MaxReconnectAttempts int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout:     10 * time.Second,
		ReadTimeout:          0, // servers handle idle detection with ping/pong
		WriteTimeout:         10 * time.Second,
		AutoReconnect:        true,
		ReconnectBaseDelay:   time.Second,
		MaxReconnectDelay:    30 * time.Second,
		MaxReconnectAttempts: 5,
	}
}
