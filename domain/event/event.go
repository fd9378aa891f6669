// Package event defines the wire-level events exchanged with clients
// over the persistent connection, and the payloads they carry.
package event

import (
	"time"

	"market-chat/domain"
)

type Name string

// Client -> server events.
const (
	JoinPersonalRoom  Name = "joinPersonalRoom"
	LeavePersonalRoom Name = "leavePersonalRoom"
	JoinRoom          Name = "joinRoom"
	LeaveRoom         Name = "leaveRoom"
	SendMessageToRoom Name = "sendMessageToRoom"
	MarkAsSeen        Name = "markAsSeen"
)

// Server -> client events.
const (
	FetchMessagesAgain           Name = "fetchMessagesAgain"
	FetchConvosAgain             Name = "fetchConvosAgain"
	DirectMessage                Name = "directMessage"
	RoomMessage                  Name = "roomMessage"
	MessageStatusUpdate          Name = "messageStatusUpdate"
	ConvoLastMessageStatusUpdate Name = "convoLastMessageStatusUpdate"
	ErrorMessage                 Name = "errorMessage"
)

// MessagePayload is carried by both directMessage (personal rooms) and
// roomMessage (conversation room) for a freshly sent message.
type MessagePayload struct {
	ConversationID string        `json:"conversationId"`
	SenderID       string        `json:"senderId"`
	Content        string        `json:"content"`
	Timestamp      time.Time     `json:"timestamp"`
	Status         domain.Status `json:"status"`
}

// Refetch tells clients of a conversation room to reload its messages,
// typically after a silent reconnect.
type Refetch struct {
	UserID string `json:"userId"`
}

// StatusUpdate announces a seen-state change inside a conversation room.
type StatusUpdate struct {
	UserSeingID string        `json:"userSeingId"`
	Status      domain.Status `json:"status"`
}

// ConvoStatusUpdate drives the conversation-list indicator on the
// viewer's personal room.
type ConvoStatusUpdate struct {
	ConversationID string        `json:"conversationId"`
	Status         domain.Status `json:"status"`
}

// ErrorPayload reports a failure back to the originating session only.
type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
