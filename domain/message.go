// Package domain contains core concepts of the marketplace chat.
// This file defines Message entities and their delivery lifecycle.
// No runtime, network, or storage logic should be added here.
package domain

import (
	"fmt"
	"time"

	errs "market-chat/errors"
)

// Status is the delivery lifecycle value of a message.
// It only moves forward: sent -> delivered -> seen.
type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusSeen      Status = "seen"
)

var statusRank = map[Status]int{
	StatusSent:      1,
	StatusDelivered: 2,
	StatusSeen:      3,
}

func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// CanAdvanceTo reports whether moving to next keeps the status monotonic.
// Advancing to the same status is allowed, so replays stay idempotent.
func (s Status) CanAdvanceTo(next Status) bool {
	current, ok := statusRank[s]
	if !ok {
		return false
	}
	target, ok := statusRank[next]
	if !ok {
		return false
	}
	return target >= current
}

// Message is a direct message inside a conversation.
// Content never changes after creation; only Status advances.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	ReceiverID     string    `json:"receiverId"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
	Status         Status    `json:"status"`
}

// AdvanceTo moves the message status forward.
// A regression (e.g. seen -> sent) is refused.
func (m *Message) AdvanceTo(next Status) error {
	if !m.Status.CanAdvanceTo(next) {
		return fmt.Errorf("%w: %s -> %s", errs.ErrStatusRegression, m.Status, next)
	}
	m.Status = next
	return nil
}
