package relay

// ChatMessagePayload is the data shape of chat_message envelopes.
type ChatMessagePayload struct {
	ID          string `json:"id,omitempty"`
	RoomID      string `json:"roomId"`
	UserID      string `json:"userId"`
	Message     string `json:"message"`
	MessageType string `json:"messageType"`
}

// PresencePayload is the data shape of user_joined/user_left envelopes.
type PresencePayload struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

// RosterPayload is the data shape of online_users_update envelopes, an
// authoritative server-side resync of a room's occupancy.
type RosterPayload struct {
	RoomID string   `json:"roomId"`
	Users  []string `json:"users"`
}

// Notification is surfaced on the side-channel for user-facing event types
// (likes, follows, gifts, stream starts). Data stays raw; the shape varies
// per Kind and the UI layer decodes what it cares about.
type Notification struct {
	Kind      string
	UserID    string
	RoomID    string
	Data      []byte
	Timestamp int64
}
