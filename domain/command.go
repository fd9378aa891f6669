package domain

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	errs "market-chat/errors"
)

var validate = validator.New()

// WireMessage is the message shape carried by a send event.
type WireMessage struct {
	SenderID   string    `json:"senderId" validate:"required"`
	ReceiverID string    `json:"receiverId" validate:"required"`
	Content    string    `json:"content" validate:"required"`
	Timestamp  time.Time `json:"timestamp"`
}

// SendMessageCommand carries a client's intent to post a message to a
// conversation room. RoomID is the conversation id.
type SendMessageCommand struct {
	RoomID  string      `json:"roomId" validate:"required"`
	Message WireMessage `json:"message" validate:"required"`
}

// MarkSeenCommand is emitted when a user opens or focuses a conversation.
type MarkSeenCommand struct {
	UserSeingID    string `json:"userSeingId" validate:"required"`
	ConversationID string `json:"conversationId" validate:"required"`
}

// RoomCommand joins or leaves a conversation room. UserID is the logical
// identity registered for presence, distinct from the transport session.
type RoomCommand struct {
	RoomID string `json:"roomId" validate:"required"`
	UserID string `json:"userId"`
}

// Validate checks a command payload and maps failures to ErrValidation.
func Validate(cmd any) error {
	if err := validate.Struct(cmd); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	return nil
}
