//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"time"

	"market-chat/domain"
	"market-chat/domain/event"
)

// Presence tracks which user identities are currently subscribed to which
// rooms. Presence is per logical user, not per transport connection: a user
// reconnecting with a new session keeps the same identity. All operations
// are safe under concurrent invocation and never fail; absence of a room or
// member is a normal state.
type Presence interface {
	Join(roomID, memberID string)
	Leave(roomID, memberID string)
	IsMember(roomID, memberID string) bool
	Members(roomID string) []string
}

// Broadcaster delivers an event to every session currently joined to any of
// the given rooms, at most once per session per call. Delivery is
// fire-and-forget: sessions gone by delivery time are silently skipped.
type Broadcaster interface {
	Broadcast(name event.Name, payload any, roomIDs ...string)
}

// Store is the durable message/conversation boundary consumed by the
// delivery coordinator. Implementations are plain request/response with no
// concurrency of their own.
type Store interface {
	// CreateConversation is an idempotent lookup-or-create on the unordered
	// participant pair.
	CreateConversation(ctx context.Context, senderID, receiverID string) (domain.Conversation, error)
	GetConversation(ctx context.Context, conversationID string) (domain.Conversation, error)
	// PersistMessage fails with ErrConversationNotFound when no conversation
	// exists for conversationID; no message record is created in that case.
	PersistMessage(ctx context.Context, conversationID, senderID, receiverID, content string,
		timestamp time.Time, status domain.Status) (domain.Message, error)
	// BulkMarkSeen advances every "sent" message not authored by viewerID to
	// "seen" and returns how many messages changed.
	BulkMarkSeen(ctx context.Context, conversationID, viewerID string) (int, error)
}
