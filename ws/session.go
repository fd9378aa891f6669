package ws

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"market-chat/contract"
	"market-chat/domain"
	"market-chat/domain/event"
	errs "market-chat/errors"
)

// Coordinator is the protocol logic a session dispatches into.
type Coordinator interface {
	SendMessage(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error)
	MarkSeen(ctx context.Context, cmd domain.MarkSeenCommand) error
}

// Session is one live client connection. It owns the transport channel and
// tracks which rooms it joined. The read pump is the unit of concurrency:
// every inbound event of a connection is handled on its goroutine, while
// broadcasts arrive through the buffered send channel drained by the write
// pump.
type Session struct {
	id          string
	identity    string
	conn        *websocket.Conn
	send        chan []byte
	hub         *Hub
	presence    contract.Presence
	coordinator Coordinator
	log         *slog.Logger

	writeTimeout time.Duration

	mu sync.Mutex
	// joinedPresence remembers which user id this session registered in
	// which conversation room, so disconnect cleanup decrements exactly
	// what this session added.
	joinedPresence map[string]string
}

func newSession(id, identity string, conn *websocket.Conn, hub *Hub,
	presence contract.Presence, coordinator Coordinator,
	bufferSize int, writeTimeout time.Duration, log *slog.Logger) *Session {
	return &Session{
		id:             id,
		identity:       identity,
		conn:           conn,
		send:           make(chan []byte, bufferSize),
		hub:            hub,
		presence:       presence,
		coordinator:    coordinator,
		log:            log,
		writeTimeout:   writeTimeout,
		joinedPresence: make(map[string]string),
	}
}

// joinConversation joins the broadcast group and registers presence for
// the supplied user id. Presence is keyed by logical user, not by session,
// and is only registered once per room per session.
func (s *Session) joinConversation(roomID, userID string) {
	s.hub.Join(roomID, s)
	if userID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.joinedPresence[roomID]; ok {
		return
	}
	s.presence.Join(roomID, userID)
	s.joinedPresence[roomID] = userID
}

func (s *Session) leaveConversation(roomID string) {
	s.hub.Leave(roomID, s)
	s.mu.Lock()
	defer s.mu.Unlock()
	if userID, ok := s.joinedPresence[roomID]; ok {
		s.presence.Leave(roomID, userID)
		delete(s.joinedPresence, roomID)
	}
}

func (s *Session) joinPersonal(roomID string) {
	s.hub.Join(roomID, s)
}

func (s *Session) leavePersonal(roomID string) {
	s.hub.Leave(roomID, s)
}

// readPump consumes frames until the connection drops, then runs the
// disconnect cleanup. Cleanup must complete on every exit path before the
// session is discarded, hence the defer.
func (s *Session) readPump() {
	defer s.cleanup()
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("session closed unexpectedly", "session_id", s.id, "error", err)
			}
			return
		}
		s.dispatch(raw)
	}
}

func (s *Session) cleanup() {
	s.hub.Forget(s)

	s.mu.Lock()
	registered := s.joinedPresence
	s.joinedPresence = make(map[string]string)
	s.mu.Unlock()
	for roomID, userID := range registered {
		s.presence.Leave(roomID, userID)
	}

	// Forget already detached this session from every broadcast group, so
	// nothing can write to send anymore.
	close(s.send)
	s.log.Debug("session disconnected", "session_id", s.id, "identity", s.identity)
}

// writePump drains the send channel onto the socket. It exits when the
// channel is closed by cleanup, emitting a close frame on the way out.
func (s *Session) writePump() {
	defer s.conn.Close()
	for frame := range s.send {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
		if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			s.log.Debug("write failed", "session_id", s.id, "error", err)
			return
		}
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (s *Session) dispatch(raw []byte) {
	envelope, err := DecodeFrame(raw)
	if err != nil {
		s.sendError("validation", "malformed frame")
		return
	}

	ctx := context.Background()
	switch envelope.Event {
	case event.JoinPersonalRoom:
		if roomID, ok := decodeRoomID(envelope.Data); ok {
			s.joinPersonal(roomID)
		}
	case event.LeavePersonalRoom:
		if roomID, ok := decodeRoomID(envelope.Data); ok {
			s.leavePersonal(roomID)
		}
	case event.JoinRoom:
		var cmd domain.RoomCommand
		if err := decode(envelope.Data, &cmd); err != nil {
			s.reportError(err)
			return
		}
		s.joinConversation(cmd.RoomID, cmd.UserID)
	case event.LeaveRoom:
		var cmd domain.RoomCommand
		if err := decode(envelope.Data, &cmd); err != nil {
			s.reportError(err)
			return
		}
		s.leaveConversation(cmd.RoomID)
	case event.SendMessageToRoom:
		var cmd domain.SendMessageCommand
		if err := decode(envelope.Data, &cmd); err != nil {
			s.reportError(err)
			return
		}
		if _, err := s.coordinator.SendMessage(ctx, cmd); err != nil {
			s.reportError(err)
		}
	case event.MarkAsSeen:
		var cmd domain.MarkSeenCommand
		if err := decode(envelope.Data, &cmd); err != nil {
			s.reportError(err)
			return
		}
		if err := s.coordinator.MarkSeen(ctx, cmd); err != nil {
			s.reportError(err)
		}
	default:
		s.sendError("validation", "unknown event "+string(envelope.Event))
	}
}

// reportError surfaces a failure to this session only. Errors never
// terminate the connection; the session remains usable.
func (s *Session) reportError(err error) {
	kind := "transient"
	switch {
	case errors.Is(err, errs.ErrValidation):
		kind = "validation"
	case errors.Is(err, errs.ErrConversationNotFound), errors.Is(err, errs.ErrMessageNotFound):
		kind = "notFound"
	}
	s.sendError(kind, err.Error())
}

func (s *Session) sendError(kind, message string) {
	frame, err := EncodeFrame(event.ErrorMessage, event.ErrorPayload{Kind: kind, Message: message})
	if err != nil {
		return
	}
	select {
	case s.send <- frame:
	default:
		s.log.Debug("dropping error frame, session buffer full", "session_id", s.id)
	}
}
