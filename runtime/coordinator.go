// Package runtime coordinates delivery between live sessions and the
// durable store. It owns no transport or storage details of its own.
package runtime

import (
	"context"
	"log/slog"

	"market-chat/contract"
	"market-chat/domain"
	"market-chat/domain/event"
)

// Coordinator runs the send and seen protocols. Broadcast and persistence
// are deliberately not transactional with each other: clients may observe a
// message slightly before (or, on store failure, without) its durable
// write. Adding blocking coordination here would tax every message for a
// window that only affects the currently-connected view.
type Coordinator struct {
	log         *slog.Logger
	presence    contract.Presence
	broadcaster contract.Broadcaster
	store       contract.Store
}

func NewCoordinator(log *slog.Logger, presence contract.Presence,
	broadcaster contract.Broadcaster, store contract.Store) *Coordinator {
	return &Coordinator{log: log, presence: presence, broadcaster: broadcaster, store: store}
}

// SendMessage decides the delivery status, fans the message out, and
// persists it.
//
// The status read is point-in-time: a receiver joining the room
// microseconds after the check yields "sent", corrected later by the seen
// protocol, never by this call.
func (c *Coordinator) SendMessage(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	if err := domain.Validate(cmd); err != nil {
		return domain.Message{}, err
	}

	status := domain.StatusSent
	if c.presence.IsMember(cmd.RoomID, cmd.Message.ReceiverID) {
		// The receiver has the conversation open right now.
		status = domain.StatusSeen
	}

	payload := event.MessagePayload{
		ConversationID: cmd.RoomID,
		SenderID:       cmd.Message.SenderID,
		Content:        cmd.Message.Content,
		Timestamp:      cmd.Message.Timestamp,
		Status:         status,
	}

	// Personal rooms first: conversation-list UI of both parties, including
	// the sender's own other open sessions.
	c.broadcaster.Broadcast(event.DirectMessage, payload, cmd.Message.ReceiverID, cmd.Message.SenderID)
	// Then the conversation room itself, for any open chat view.
	c.broadcaster.Broadcast(event.RoomMessage, payload, cmd.RoomID)

	message, err := c.store.PersistMessage(ctx, cmd.RoomID,
		cmd.Message.SenderID, cmd.Message.ReceiverID, cmd.Message.Content,
		cmd.Message.Timestamp, status)
	if err != nil {
		// Connected clients already display this message; it is not durable.
		c.log.Error("message broadcast without durable write",
			"conversation_id", cmd.RoomID,
			"sender_id", cmd.Message.SenderID,
			"error", err)
		return domain.Message{}, err
	}
	return message, nil
}

// MarkSeen bulk-advances every "sent" message authored by someone else to
// "seen", then notifies the open chat view and the viewer's conversation
// list. Replaying the event when nothing is in "sent" is a no-op on the
// store; the notifications still go out, matching the at-most-displayed
// contract of the broadcast layer.
func (c *Coordinator) MarkSeen(ctx context.Context, cmd domain.MarkSeenCommand) error {
	if err := domain.Validate(cmd); err != nil {
		return err
	}

	updated, err := c.store.BulkMarkSeen(ctx, cmd.ConversationID, cmd.UserSeingID)
	if err != nil {
		c.log.Error("seen-state update failed",
			"conversation_id", cmd.ConversationID,
			"viewer_id", cmd.UserSeingID,
			"error", err)
		return err
	}
	c.log.Debug("marked conversation seen",
		"conversation_id", cmd.ConversationID,
		"viewer_id", cmd.UserSeingID,
		"updated", updated)

	c.broadcaster.Broadcast(event.MessageStatusUpdate,
		event.StatusUpdate{UserSeingID: cmd.UserSeingID, Status: domain.StatusSeen},
		cmd.ConversationID)
	c.broadcaster.Broadcast(event.ConvoLastMessageStatusUpdate,
		event.ConvoStatusUpdate{ConversationID: cmd.ConversationID, Status: domain.StatusSeen},
		cmd.UserSeingID)
	return nil
}
