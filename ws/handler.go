package ws

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"market-chat/auth"
	"market-chat/contract"
	"market-chat/domain/event"
)

// Handler upgrades HTTP requests into live sessions and runs the
// connection lifecycle: connecting -> active -> disconnected.
type Handler struct {
	log          *slog.Logger
	hub          *Hub
	presence     contract.Presence
	coordinator  Coordinator
	tokens       *auth.TokenValidator
	upgrader     websocket.Upgrader
	bufferSize   int
	writeTimeout time.Duration
}

func NewHandler(log *slog.Logger, hub *Hub, presence contract.Presence,
	coordinator Coordinator, tokens *auth.TokenValidator,
	bufferSize int, writeTimeout time.Duration) *Handler {
	return &Handler{
		log:         log,
		hub:         hub,
		presence:    presence,
		coordinator: coordinator,
		tokens:      tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		bufferSize:   bufferSize,
		writeTimeout: writeTimeout,
	}
}

// ServeHTTP performs the handshake and blocks on the session read loop
// until the client disconnects.
//
// The handshake may carry a conversation room and a personal room to
// auto-rejoin. Mobile clients whose transport was suspended reconnect
// without re-emitting joinRoom, so the rejoin happens here and both sides
// are told to refetch what they may have missed.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	identity := query.Get("loggedInUserId")
	if h.tokens != nil {
		token := query.Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		claims, err := h.tokens.Validate(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		identity = claims.UserID
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	s := newSession(uuid.NewString(), identity, conn, h.hub, h.presence,
		h.coordinator, h.bufferSize, h.writeTimeout, h.log)
	h.log.Debug("session connected", "session_id", s.id, "identity", identity)
	go s.writePump()

	if roomID := query.Get("roomId"); roomID != "" {
		s.joinConversation(roomID, identity)
		h.hub.Broadcast(event.FetchMessagesAgain, event.Refetch{UserID: identity}, roomID)
	}
	if identity != "" {
		s.joinPersonal(identity)
		h.hub.Broadcast(event.FetchConvosAgain, nil, identity)
	}

	s.readPump()
}
