package relay

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatEnvelope(t *testing.T, p ChatMessagePayload) Envelope {
	t.Helper()
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	return Envelope{Type: EventChatMessage, Data: raw, RoomID: p.RoomID, UserID: p.UserID, Timestamp: 1}
}

func findFrame(t *testing.T, fc *fakeConn, eventType string) (Envelope, bool) {
	t.Helper()
	for _, raw := range fc.writtenFrames() {
		env, err := DecodeEnvelope(raw)
		require.NoError(t, err)
		if env.Type == eventType {
			return env, true
		}
	}
	return Envelope{}, false
}

func TestRoomChatScenario(t *testing.T) {
	c, fc, _ := newConnectedClient(t, testConfig())

	room := c.JoinRoom("r1")

	require.Eventually(t, func() bool {
		_, ok := findFrame(t, fc, EventJoinRoom)
		return ok
	}, time.Second, 5*time.Millisecond)

	room.SendMessage("hello", "text")
	require.Eventually(t, func() bool {
		_, ok := findFrame(t, fc, EventChatMessage)
		return ok
	}, time.Second, 5*time.Millisecond)

	sent, _ := findFrame(t, fc, EventChatMessage)
	var sentPayload ChatMessagePayload
	require.NoError(t, UnmarshalData(sent.Data, &sentPayload))
	assert.Equal(t, "hello", sentPayload.Message)
	assert.Equal(t, "r1", sentPayload.RoomID)
	assert.Equal(t, "u1", sentPayload.UserID)

	// No local echo: history fills only when the relay broadcasts back.
	assert.Empty(t, room.Messages())

	fc.deliver(t, chatEnvelope(t, ChatMessagePayload{
		RoomID: "r1", UserID: "u1", Message: "hello", MessageType: "text",
	}))

	require.Eventually(t, func() bool {
		return len(room.Messages()) == 1
	}, time.Second, 5*time.Millisecond)

	msg := room.Messages()[0]
	assert.Equal(t, "r1", msg.RoomID)
	assert.Equal(t, "u1", msg.UserID)
	assert.Equal(t, "hello", msg.Message)
	assert.Equal(t, "text", msg.MessageType)
}

func TestRoomIgnoresOtherRoomsMessages(t *testing.T) {
	c, fc, _ := newConnectedClient(t, testConfig())

	r1 := c.JoinRoom("r1")
	r2 := c.JoinRoom("r2")

	fc.deliver(t, chatEnvelope(t, ChatMessagePayload{RoomID: "r1", UserID: "a", Message: "one"}))
	fc.deliver(t, chatEnvelope(t, ChatMessagePayload{RoomID: "r2", UserID: "b", Message: "two"}))

	require.Eventually(t, func() bool {
		return len(r1.Messages()) == 1 && len(r2.Messages()) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, "one", r1.Messages()[0].Message)
	assert.Equal(t, "two", r2.Messages()[0].Message)
}

func TestSendMessageRejectsWhitespaceOnly(t *testing.T) {
	c, fc, _ := newConnectedClient(t, testConfig())
	room := c.JoinRoom("r1")

	room.SendMessage("", "text")
	room.SendMessage("   \t\n", "text")

	// Give the write loop a moment; only announce + join_room may appear.
	time.Sleep(20 * time.Millisecond)
	_, ok := findFrame(t, fc, EventChatMessage)
	assert.False(t, ok)
}

func TestLeaveClearsHistoryAndDetaches(t *testing.T) {
	c, fc, _ := newConnectedClient(t, testConfig())
	room := c.JoinRoom("r1")

	fc.deliver(t, chatEnvelope(t, ChatMessagePayload{RoomID: "r1", UserID: "a", Message: "pre"}))
	require.Eventually(t, func() bool {
		return len(room.Messages()) == 1
	}, time.Second, 5*time.Millisecond)

	room.Leave()
	assert.Empty(t, room.Messages())

	require.Eventually(t, func() bool {
		_, ok := findFrame(t, fc, EventLeaveRoom)
		return ok
	}, time.Second, 5*time.Millisecond)

	// Broadcasts after leaving no longer accumulate.
	fc.deliver(t, chatEnvelope(t, ChatMessagePayload{RoomID: "r1", UserID: "a", Message: "post"}))
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, room.Messages())

	room.Leave() // idempotent
}

func TestRoomOnlineUsersDelegatesToTracker(t *testing.T) {
	c, fc, _ := newConnectedClient(t, testConfig())
	room := c.JoinRoom("r1")

	raw, err := json.Marshal(RosterPayload{RoomID: "r1", Users: []string{"alice", "bob"}})
	require.NoError(t, err)
	fc.deliver(t, Envelope{Type: EventOnlineUsersUpdate, Data: raw, Timestamp: 1})

	require.Eventually(t, func() bool {
		return len(room.OnlineUsers()) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"alice", "bob"}, room.OnlineUsers())
}
