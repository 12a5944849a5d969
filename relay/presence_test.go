package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPresenceJoinIsIdempotent(t *testing.T) {
	p := NewPresenceTracker()

	p.UserJoined("r1", "alice")
	p.UserJoined("r1", "alice")

	assert.Equal(t, []string{"alice"}, p.OnlineUsers("r1"))
}

func TestPresenceLeaveAbsentUserIsNoop(t *testing.T) {
	p := NewPresenceTracker()

	p.UserJoined("r1", "alice")
	p.UserLeft("r1", "bob")
	p.UserLeft("r2", "alice") // unknown room

	assert.Equal(t, []string{"alice"}, p.OnlineUsers("r1"))
}

func TestPresenceRosterUpdateReplaces(t *testing.T) {
	p := NewPresenceTracker()

	p.UserJoined("r1", "alice")
	p.UserJoined("r1", "carol")

	// Authoritative resync replaces, never merges.
	p.SetRoomUsers("r1", []string{"alice", "bob"})

	assert.Equal(t, []string{"alice", "bob"}, p.OnlineUsers("r1"))
}

func TestPresenceEmptyRosterClearsRoom(t *testing.T) {
	p := NewPresenceTracker()

	p.UserJoined("r1", "alice")
	p.SetRoomUsers("r1", nil)

	assert.Empty(t, p.OnlineUsers("r1"))
	assert.Empty(t, p.AllOnlineUsers())
}

func TestPresenceUnionAcrossRooms(t *testing.T) {
	p := NewPresenceTracker()

	p.UserJoined("r1", "alice")
	p.UserJoined("r1", "bob")
	p.UserJoined("r2", "alice")
	p.UserJoined("r2", "carol")

	assert.Equal(t, []string{"alice", "bob", "carol"}, p.AllOnlineUsers())
}

func TestPresenceLastLeavePrunesRoom(t *testing.T) {
	p := NewPresenceTracker()

	p.UserJoined("r1", "alice")
	p.UserLeft("r1", "alice")

	assert.Empty(t, p.OnlineUsers("r1"))
	assert.Empty(t, p.AllOnlineUsers())
}
