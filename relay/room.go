package relay

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ChatMessage is one confirmed entry in a room's history.
type ChatMessage struct {
	ID          string
	RoomID      string
	UserID      string
	Message     string
	MessageType string
	Timestamp   int64
}

// Room is a per-room convenience view over the dispatcher and presence
// tracker. Its history holds only messages the relay broadcast back — there
// is no local echo, so the view never runs ahead of confirmed server state.
type Room struct {
	id     string
	client *Client
	unsub  func()

	mu       sync.Mutex
	messages []ChatMessage
	left     bool
}

// JoinRoom announces membership in roomID and returns the facade. The join
// is fire-and-forget: occupancy updates arrive through the server's
// user_joined broadcast like for every other member.
func (c *Client) JoinRoom(roomID string) *Room {
	r := &Room{id: roomID, client: c}
	r.unsub = c.dispatcher.Subscribe(EventChatMessage, r.onChatMessage)

	env, err := NewEnvelope(EventJoinRoom, PresencePayload{RoomID: roomID, UserID: c.cfg.UserID})
	if err == nil {
		env.RoomID = roomID
		c.Send(env)
	}
	return r
}

// ID returns the room identifier.
func (r *Room) ID() string { return r.id }

// SendMessage stamps and sends a chat message. Empty or whitespace-only
// text is rejected as a no-op.
func (r *Room) SendMessage(text, kind string) {
	if strings.TrimSpace(text) == "" {
		r.client.logger.Debug().Str("room_id", r.id).Msg("ignoring empty chat message")
		return
	}
	r.mu.Lock()
	left := r.left
	r.mu.Unlock()
	if left {
		r.client.logger.Debug().Str("room_id", r.id).Msg("send on left room, dropping")
		return
	}

	payload := ChatMessagePayload{
		ID:          uuid.NewString(),
		RoomID:      r.id,
		UserID:      r.client.cfg.UserID,
		Message:     text,
		MessageType: kind,
	}
	env, err := NewEnvelope(EventChatMessage, payload)
	if err != nil {
		r.client.logger.Error().Err(err).Str("room_id", r.id).Msg("build chat envelope")
		return
	}
	env.RoomID = r.id
	r.client.Send(env)
}

// Messages returns a snapshot of the accumulated history.
func (r *Room) Messages() []ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ChatMessage, len(r.messages))
	copy(out, r.messages)
	return out
}

// OnlineUsers returns a snapshot of this room's occupancy.
func (r *Room) OnlineUsers() []string {
	return r.client.presence.OnlineUsers(r.id)
}

// Leave announces departure, detaches from the dispatcher and discards the
// accumulated history. Idempotent.
func (r *Room) Leave() {
	r.mu.Lock()
	if r.left {
		r.mu.Unlock()
		return
	}
	r.left = true
	r.messages = nil
	r.mu.Unlock()

	if r.unsub != nil {
		r.unsub()
	}
	env, err := NewEnvelope(EventLeaveRoom, PresencePayload{RoomID: r.id, UserID: r.client.cfg.UserID})
	if err == nil {
		env.RoomID = r.id
		r.client.Send(env)
	}
}

func (r *Room) onChatMessage(env Envelope) {
	var p ChatMessagePayload
	if len(env.Data) > 0 {
		if err := UnmarshalData(env.Data, &p); err != nil {
			r.client.logger.Warn().Err(err).Str("room_id", r.id).Msg("bad chat payload")
			return
		}
	}
	roomID := p.RoomID
	if roomID == "" {
		roomID = env.RoomID
	}
	if roomID != r.id {
		return
	}
	userID := p.UserID
	if userID == "" {
		userID = env.UserID
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.left {
		return
	}
	r.messages = append(r.messages, ChatMessage{
		ID:          p.ID,
		RoomID:      roomID,
		UserID:      userID,
		Message:     p.Message,
		MessageType: p.MessageType,
		Timestamp:   env.Timestamp,
	})
}
