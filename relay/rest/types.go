package rest

import "time"

// RoomKind represents the kind of a room.
type RoomKind string

const (
	RoomKindVenue  RoomKind = "venue"
	RoomKindStream RoomKind = "stream"
	RoomKindParty  RoomKind = "party"
)

// RoomInfo represents room metadata from the directory.
type RoomInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Kind        RoomKind  `json:"kind"`
	HostID      string    `json:"host_id,omitempty"`
	Live        bool      `json:"live"`
	OnlineCount int       `json:"online_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// StreamInfo represents a live stream entry.
type StreamInfo struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	CreatorID string    `json:"creator_id"`
	Title     string    `json:"title"`
	Viewers   int       `json:"viewers"`
	StartedAt time.Time `json:"started_at"`
}

// MessageInfo represents a single message in the persisted history.
type MessageInfo struct {
	ID          string    `json:"id"`
	RoomID      string    `json:"room_id"`
	UserID      string    `json:"user_id"`
	Message     string    `json:"message"`
	MessageType string    `json:"message_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// MessagesResponse contains a page of messages with pagination info.
type MessagesResponse struct {
	Messages []MessageInfo `json:"messages"`
	HasMore  bool          `json:"has_more"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
