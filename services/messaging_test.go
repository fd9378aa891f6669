package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"market-chat/domain"
	errs "market-chat/errors"
	"market-chat/repositories"
)

func newServiceUnderTest(t *testing.T) *MessagingService {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	log := slog.Default()
	return NewMessagingService(
		repositories.NewConversationRepository(db, log),
		repositories.NewMessageRepository(db, log),
		log,
	)
}

func TestMessagingService_PersistMessage_Requires_A_Conversation(t *testing.T) {
	req := require.New(t)
	svc := newServiceUnderTest(t)
	ctx := context.Background()

	// When persisting into a conversation that does not exist
	_, err := svc.PersistMessage(ctx, "c-unknown", "u1", "u2", "hi", time.Now(), domain.StatusSent)

	// Then the message is rejected and no record is created
	req.ErrorIs(err, errs.ErrConversationNotFound)
	messages, err := svc.GetMessages(ctx, "c-unknown")
	req.NoError(err)
	req.Empty(messages)
}

func TestMessagingService_PersistMessage_Updates_Last_Message(t *testing.T) {
	req := require.New(t)
	svc := newServiceUnderTest(t)
	ctx := context.Background()

	conversation, err := svc.CreateConversation(ctx, "u1", "u2")
	req.NoError(err)

	message, err := svc.PersistMessage(ctx, conversation.ID, "u1", "u2", "hi", time.Now().UTC(), domain.StatusSent)
	req.NoError(err)
	req.Equal(domain.StatusSent, message.Status)

	fetched, err := svc.GetConversation(ctx, conversation.ID)
	req.NoError(err)
	req.Equal(message.ID, fetched.LastMessageID)
}

func TestMessagingService_PersistMessage_Rejects_Strangers(t *testing.T) {
	req := require.New(t)
	svc := newServiceUnderTest(t)
	ctx := context.Background()

	conversation, err := svc.CreateConversation(ctx, "u1", "u2")
	req.NoError(err)

	// When someone outside the pair posts into the conversation
	_, err = svc.PersistMessage(ctx, conversation.ID, "intruder", "u2", "hi", time.Now(), domain.StatusSent)

	req.ErrorIs(err, errs.ErrConversationNotFound)
}

func TestMessagingService_BulkMarkSeen_Then_Replay(t *testing.T) {
	req := require.New(t)
	svc := newServiceUnderTest(t)
	ctx := context.Background()

	conversation, err := svc.CreateConversation(ctx, "u1", "u2")
	req.NoError(err)
	_, err = svc.PersistMessage(ctx, conversation.ID, "u1", "u2", "one", time.Now().UTC(), domain.StatusSent)
	req.NoError(err)
	_, err = svc.PersistMessage(ctx, conversation.ID, "u1", "u2", "two", time.Now().UTC(), domain.StatusSent)
	req.NoError(err)

	updated, err := svc.BulkMarkSeen(ctx, conversation.ID, "u2")
	req.NoError(err)
	req.Equal(2, updated)

	// Replaying the seen event leaves statuses exactly as they are
	updated, err = svc.BulkMarkSeen(ctx, conversation.ID, "u2")
	req.NoError(err)
	req.Equal(0, updated)

	messages, err := svc.GetMessages(ctx, conversation.ID)
	req.NoError(err)
	for _, message := range messages {
		req.Equal(domain.StatusSeen, message.Status)
	}
}

func TestMessagingService_ListConversations_Unread_And_Order(t *testing.T) {
	req := require.New(t)
	svc := newServiceUnderTest(t)
	ctx := context.Background()

	older, err := svc.CreateConversation(ctx, "u1", "u2")
	req.NoError(err)
	newer, err := svc.CreateConversation(ctx, "u1", "u3")
	req.NoError(err)

	_, err = svc.PersistMessage(ctx, older.ID, "u2", "u1", "hello", time.Now().UTC(), domain.StatusSent)
	req.NoError(err)
	time.Sleep(5 * time.Millisecond)
	_, err = svc.PersistMessage(ctx, newer.ID, "u3", "u1", "yo", time.Now().UTC(), domain.StatusSent)
	req.NoError(err)

	summaries, err := svc.ListConversations(ctx, "u1")
	req.NoError(err)
	req.Len(summaries, 2)

	// Newest activity first, one unread message each
	req.Equal(newer.ID, summaries[0].ID)
	req.Equal(older.ID, summaries[1].ID)
	req.Equal(1, summaries[0].UnreadCount)
	req.Equal(1, summaries[1].UnreadCount)
}

func TestMessagingService_ListConversations_Hides_Empty_Foreign_Convos(t *testing.T) {
	req := require.New(t)
	svc := newServiceUnderTest(t)
	ctx := context.Background()

	// Given u1 started a conversation with u2 but never wrote
	_, err := svc.CreateConversation(ctx, "u1", "u2")
	req.NoError(err)

	mine, err := svc.ListConversations(ctx, "u1")
	req.NoError(err)
	req.Len(mine, 1)

	// Then u2 does not see it before the first message
	theirs, err := svc.ListConversations(ctx, "u2")
	req.NoError(err)
	req.Empty(theirs)
}

func TestMessagingService_DeleteConversation_Cascades(t *testing.T) {
	req := require.New(t)
	svc := newServiceUnderTest(t)
	ctx := context.Background()

	conversation, err := svc.CreateConversation(ctx, "u1", "u2")
	req.NoError(err)
	_, err = svc.PersistMessage(ctx, conversation.ID, "u1", "u2", "hi", time.Now().UTC(), domain.StatusSent)
	req.NoError(err)

	req.NoError(svc.DeleteConversation(ctx, conversation.ID))

	_, err = svc.GetConversation(ctx, conversation.ID)
	req.ErrorIs(err, errs.ErrConversationNotFound)
	messages, err := svc.GetMessages(ctx, conversation.ID)
	req.NoError(err)
	req.Empty(messages)
}

func TestMessagingService_PersistMessage_Rejects_Unknown_Status(t *testing.T) {
	req := require.New(t)
	svc := newServiceUnderTest(t)
	ctx := context.Background()

	conversation, err := svc.CreateConversation(ctx, "u1", "u2")
	req.NoError(err)

	_, err = svc.PersistMessage(ctx, conversation.ID, "u1", "u2", "hi", time.Now(), domain.Status("read"))
	req.ErrorIs(err, errs.ErrValidation)
}
