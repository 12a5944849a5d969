package relay

import (
	"sort"
	"sync"
)

// PresenceTracker derives room occupancy from the event stream. It never
// touches the network; all mutation happens through the envelope handlers
// the client feeds it.
type PresenceTracker struct {
	mu    sync.RWMutex
	rooms map[string]map[string]struct{}
}

// NewPresenceTracker creates an empty tracker.
func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{rooms: make(map[string]map[string]struct{})}
}

// UserJoined adds userID to roomID's set. Idempotent.
func (p *PresenceTracker) UserJoined(roomID, userID string) {
	if roomID == "" || userID == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	set, ok := p.rooms[roomID]
	if !ok {
		set = make(map[string]struct{})
		p.rooms[roomID] = set
	}
	set[userID] = struct{}{}
}

// UserLeft removes userID from roomID's set. Removing an absent user is a
// no-op; the room key is dropped when its set empties.
func (p *PresenceTracker) UserLeft(roomID, userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	set, ok := p.rooms[roomID]
	if !ok {
		return
	}
	delete(set, userID)
	if len(set) == 0 {
		delete(p.rooms, roomID)
	}
}

// SetRoomUsers replaces roomID's entire set with users. This is the
// authoritative resync path that corrects drift from missed join/leave
// broadcasts.
func (p *PresenceTracker) SetRoomUsers(roomID string, users []string) {
	if roomID == "" {
		return
	}
	set := make(map[string]struct{}, len(users))
	for _, u := range users {
		if u != "" {
			set[u] = struct{}{}
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(set) == 0 {
		delete(p.rooms, roomID)
		return
	}
	p.rooms[roomID] = set
}

// OnlineUsers returns a sorted snapshot of roomID's occupancy. Callers must
// re-query to observe updates.
func (p *PresenceTracker) OnlineUsers(roomID string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return sortedKeys(p.rooms[roomID])
}

// AllOnlineUsers returns a sorted snapshot of the union across all rooms.
func (p *PresenceTracker) AllOnlineUsers() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	union := make(map[string]struct{})
	for _, set := range p.rooms {
		for u := range set {
			union[u] = struct{}{}
		}
	}
	return sortedKeys(union)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for u := range set {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}
