package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"market-chat/contract"
	"market-chat/domain"
	errs "market-chat/errors"
	"market-chat/repositories"
)

// IMessagingService is the full messaging surface: the store contract
// consumed by the delivery coordinator plus the list/delete operations
// exposed over REST.
type IMessagingService interface {
	contract.Store
	GetMessages(ctx context.Context, conversationID string) ([]domain.Message, error)
	ListConversations(ctx context.Context, userID string) ([]domain.ConversationSummary, error)
	DeleteConversation(ctx context.Context, conversationID string) error
	MarkMessageSeen(ctx context.Context, messageID string) (domain.Message, error)
}

// MessagingService implements the store over the badger repositories.
type MessagingService struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	log           *slog.Logger
}

func NewMessagingService(conversations repositories.ConversationRepository,
	messages repositories.MessageRepository, log *slog.Logger) *MessagingService {
	return &MessagingService{conversations: conversations, messages: messages, log: log}
}

func (s *MessagingService) CreateConversation(_ context.Context, senderID, receiverID string) (domain.Conversation, error) {
	if senderID == "" || receiverID == "" {
		return domain.Conversation{}, fmt.Errorf("%w: senderId and receiverId are required", errs.ErrValidation)
	}
	conversation, err := s.conversations.GetOrCreate(senderID, receiverID)
	if err != nil {
		return domain.Conversation{}, storeErr(err)
	}
	return toConversation(conversation), nil
}

func (s *MessagingService) GetConversation(_ context.Context, conversationID string) (domain.Conversation, error) {
	conversation, err := s.conversations.Get(conversationID)
	if err != nil {
		return domain.Conversation{}, storeErr(err)
	}
	return toConversation(conversation), nil
}

// PersistMessage records a message with its already-computed delivery
// status. No message exists without a conversation to attach to.
func (s *MessagingService) PersistMessage(_ context.Context, conversationID, senderID, receiverID, content string,
	timestamp time.Time, status domain.Status) (domain.Message, error) {
	if senderID == "" || receiverID == "" || content == "" {
		return domain.Message{}, fmt.Errorf("%w: senderId, receiverId and content are required", errs.ErrValidation)
	}
	if !status.Valid() {
		return domain.Message{}, fmt.Errorf("%w: unknown status %q", errs.ErrValidation, status)
	}

	conversation, err := s.conversations.Get(conversationID)
	if err != nil {
		return domain.Message{}, storeErr(err)
	}
	if !toConversation(conversation).HasParticipant(senderID) || !toConversation(conversation).HasParticipant(receiverID) {
		return domain.Message{}, errs.ErrConversationNotFound
	}

	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	message := repositories.DiskMessage{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Content:        content,
		At:             timestamp,
		Status:         string(status),
	}
	if err = s.messages.Store(message); err != nil {
		return domain.Message{}, storeErr(err)
	}
	if err = s.conversations.SetLastMessage(conversationID, message.ID, time.Now().UTC()); err != nil {
		return domain.Message{}, storeErr(err)
	}
	return toMessage(message), nil
}

func (s *MessagingService) BulkMarkSeen(_ context.Context, conversationID, viewerID string) (int, error) {
	if _, err := s.conversations.Get(conversationID); err != nil {
		return 0, storeErr(err)
	}
	updated, err := s.messages.BulkMarkSeen(conversationID, viewerID)
	if err != nil {
		return 0, storeErr(err)
	}
	return updated, nil
}

func (s *MessagingService) GetMessages(_ context.Context, conversationID string) ([]domain.Message, error) {
	messages, err := s.messages.List(conversationID)
	if err != nil {
		return nil, storeErr(err)
	}
	return lo.Map(messages, func(m repositories.DiskMessage, _ int) domain.Message {
		return toMessage(m)
	}), nil
}

// ListConversations returns the user's conversations newest-first with
// unread counts. A conversation without any message only shows up for the
// user who started it, so an empty conversation does not appear on the
// other side's list before the first message.
func (s *MessagingService) ListConversations(_ context.Context, userID string) ([]domain.ConversationSummary, error) {
	conversations, err := s.conversations.ListForUser(userID)
	if err != nil {
		return nil, storeErr(err)
	}

	var summaries []domain.ConversationSummary
	for _, conversation := range conversations {
		if conversation.StartedBy != userID && conversation.LastMessageID == "" {
			continue
		}
		unread, err := s.messages.CountUnread(conversation.ID, userID)
		if err != nil {
			return nil, storeErr(err)
		}
		summaries = append(summaries, domain.ConversationSummary{
			Conversation: toConversation(conversation),
			UnreadCount:  unread,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastUpdated.After(summaries[j].LastUpdated)
	})
	return summaries, nil
}

// DeleteConversation removes the conversation and cascades over its
// message log.
func (s *MessagingService) DeleteConversation(_ context.Context, conversationID string) error {
	if _, err := s.conversations.Get(conversationID); err != nil {
		return storeErr(err)
	}
	if err := s.messages.DeleteByConversation(conversationID); err != nil {
		return storeErr(err)
	}
	return storeErr(s.conversations.Delete(conversationID))
}

func (s *MessagingService) MarkMessageSeen(_ context.Context, messageID string) (domain.Message, error) {
	message, err := s.messages.MarkSeenByID(messageID)
	if err != nil {
		return domain.Message{}, storeErr(err)
	}
	return toMessage(message), nil
}

// storeErr classifies repository failures: domain sentinels pass through,
// anything else counts as a transient store outage.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, errs.ErrConversationNotFound) ||
		errors.Is(err, errs.ErrMessageNotFound) ||
		errors.Is(err, errs.ErrValidation) {
		return err
	}
	return fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, err)
}

func toConversation(c repositories.DiskConversation) domain.Conversation {
	return domain.Conversation{
		ID:            c.ID,
		StartedBy:     c.StartedBy,
		Participants:  c.Participants,
		LastMessageID: c.LastMessageID,
		LastUpdated:   c.LastUpdated,
		CreatedAt:     c.CreatedAt,
	}
}

func toMessage(m repositories.DiskMessage) domain.Message {
	return domain.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		Content:        m.Content,
		Timestamp:      m.At,
		Status:         domain.Status(m.Status),
	}
}
