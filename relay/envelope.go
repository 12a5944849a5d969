package relay

import "encoding/json"

// Event types carried over the relay socket. The core gives a handful of these
// built-in treatment (presence bookkeeping, notification side-channel); any
// other type string is delivered to explicit subscribers only.
const (
	EventUserConnected     = "user_connected"
	EventUserJoined        = "user_joined"
	EventUserLeft          = "user_left"
	EventOnlineUsersUpdate = "online_users_update"
	EventJoinRoom          = "join_room"
	EventLeaveRoom         = "leave_room"
	EventChatMessage       = "chat_message"
	EventNewMessage        = "new_message"
	EventNewLike           = "new_like"
	EventNewComment        = "new_comment"
	EventNewFollower       = "new_follower"
	EventLiveStreamStarted = "live_stream_started"
	EventGiftReceived      = "gift_received"
)

// Envelope is the unit of wire communication. Data is kept raw so that
// payloads round-trip through encode/decode without loss; the core only
// looks inside for the event types it handles itself.
type Envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
	UserID    string          `json:"userId,omitempty"`
	RoomID    string          `json:"roomId,omitempty"`
}

// NewEnvelope builds an envelope of the given type with data marshalled as
// the payload. Timestamp and UserID are stamped by the client at send time.
func NewEnvelope(eventType string, data any) (Envelope, error) {
	env := Envelope{Type: eventType}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Envelope{}, WrapError(ErrorSerialization, "marshal envelope data", err)
		}
		env.Data = raw
	}
	return env, nil
}

// EncodeEnvelope serializes an envelope for the wire.
func EncodeEnvelope(env Envelope) ([]byte, error) {
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, WrapError(ErrorSerialization, "encode envelope", err)
	}
	return raw, nil
}

// DecodeEnvelope parses a wire frame into an envelope. It fails on frames
// that are not valid JSON or lack a type discriminator; callers drop such
// frames rather than feeding them to the dispatcher.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, WrapError(ErrorDecode, "unparseable frame", err)
	}
	if env.Type == "" {
		return Envelope{}, NewError(ErrorDecode, "frame has no type field")
	}
	return env, nil
}

// UnmarshalData decodes an envelope payload into target.
func UnmarshalData(data json.RawMessage, v any) error {
	return json.Unmarshal(data, v)
}
