package domain

import (
	"strings"
	"time"
)

// Conversation links exactly two participants.
// At most one conversation exists per unordered participant pair.
type Conversation struct {
	ID            string    `json:"id"`
	StartedBy     string    `json:"userThatStartedConvo"`
	Participants  [2]string `json:"participants"`
	LastMessageID string    `json:"lastMessageId,omitempty"`
	LastUpdated   time.Time `json:"lastUpdated"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (c Conversation) HasParticipant(userID string) bool {
	return c.Participants[0] == userID || c.Participants[1] == userID
}

// PairKey normalizes an unordered participant pair into a stable key,
// so (a,b) and (b,a) resolve to the same conversation.
func PairKey(a, b string) string {
	if strings.Compare(b, a) < 0 {
		a, b = b, a
	}
	return a + ":" + b
}

// ConversationSummary is a conversation enriched for list views.
type ConversationSummary struct {
	Conversation
	UnreadCount int `json:"unreadCount"`
}
