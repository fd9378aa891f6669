package runtime

import (
	"sync"

	"github.com/samber/lo"
)

// Registry is the process-wide presence map from room id to the user
// identities currently subscribed. Each identity carries a session
// reference count: two devices of the same user in the same room keep the
// identity present until both are gone. Mutation only happens on
// connection lifecycle events; this state has no durability guarantee and
// is rebuilt from live connections.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[string]int // room id -> member id -> session count
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]map[string]int)}
}

// Join records one more session of memberID inside roomID, creating the
// room entry on first use.
func (r *Registry) Join(roomID, memberID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[string]int)
		r.rooms[roomID] = members
	}
	members[memberID]++
}

// Leave drops one session of memberID from roomID. The identity stays
// visible while other sessions hold it; the room entry is removed once its
// member set becomes empty. Leaving a non-member is a no-op.
func (r *Registry) Leave(roomID, memberID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[roomID]
	if !ok {
		return
	}
	count, ok := members[memberID]
	if !ok {
		return
	}
	if count > 1 {
		members[memberID] = count - 1
		return
	}
	delete(members, memberID)
	if len(members) == 0 {
		delete(r.rooms, roomID)
	}
}

// IsMember is the point-in-time read used for delivery status computation.
func (r *Registry) IsMember(roomID, memberID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	_, ok = members[memberID]
	return ok
}

func (r *Registry) Members(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Keys(r.rooms[roomID])
}
