package ws

import (
	"log/slog"
	"sync"

	"market-chat/domain/event"
)

// Hub maps room ids to the live sessions joined to them. It is the
// delivery half of room membership; logical presence lives in the
// registry. Broadcast is fire-and-forget with no ordering guarantee
// across distinct rooms.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[*Session]struct{}
	sessions map[*Session]map[string]struct{}
	log      *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		rooms:    make(map[string]map[*Session]struct{}),
		sessions: make(map[*Session]map[string]struct{}),
		log:      log,
	}
}

func (h *Hub) Join(roomID string, s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*Session]struct{})
	}
	h.rooms[roomID][s] = struct{}{}

	if _, ok := h.sessions[s]; !ok {
		h.sessions[s] = make(map[string]struct{})
	}
	h.sessions[s][roomID] = struct{}{}
}

func (h *Hub) Leave(roomID string, s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(roomID, s)
}

// Forget strips a session from every room it joined. Called exactly once
// from the session's disconnect cleanup; once it returns, no broadcast can
// reach the session anymore, so its send channel is safe to close.
func (h *Hub) Forget(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for roomID := range h.sessions[s] {
		h.leaveLocked(roomID, s)
	}
	delete(h.sessions, s)
}

func (h *Hub) leaveLocked(roomID string, s *Session) {
	members, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(members, s)
	if len(members) == 0 {
		delete(h.rooms, roomID)
	}
	if joined, ok := h.sessions[s]; ok {
		delete(joined, roomID)
	}
}

// Broadcast encodes the event once and delivers it to every session in any
// of the given rooms, at most once per session even when memberships
// overlap. A session whose buffer is full just misses the frame; it will
// resynchronize through the refetch events on reconnect.
func (h *Hub) Broadcast(name event.Name, payload any, roomIDs ...string) {
	frame, err := EncodeFrame(name, payload)
	if err != nil {
		h.log.Error("failed to encode broadcast frame", "event", name, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := make(map[*Session]struct{})
	for _, roomID := range roomIDs {
		for s := range h.rooms[roomID] {
			if _, done := delivered[s]; done {
				continue
			}
			delivered[s] = struct{}{}
			select {
			case s.send <- frame:
			default:
				h.log.Debug("session send buffer full, dropping frame",
					"event", name, "session_id", s.id)
			}
		}
	}
}
