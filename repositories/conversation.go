package repositories

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	errs "market-chat/errors"
)

const (
	conversationPrefix = "conv:"
	pairPrefix         = "pair:"
)

// DiskConversation is the persisted form of a conversation.
type DiskConversation struct {
	ID            string    `json:"id"`
	StartedBy     string    `json:"userThatStartedConvo"`
	Participants  [2]string `json:"participants"`
	LastMessageID string    `json:"lastMessageId,omitempty"`
	LastUpdated   time.Time `json:"lastUpdated"`
	CreatedAt     time.Time `json:"createdAt"`
}

type ConversationRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewConversationRepository(db *badger.DB, log *slog.Logger) ConversationRepository {
	return ConversationRepository{db: db, log: log}
}

func conversationKey(id string) []byte {
	return []byte(conversationPrefix + id)
}

// pairKey normalizes the unordered participant pair, so creation stays
// idempotent regardless of which side initiates.
func pairKey(a, b string) []byte {
	if strings.Compare(b, a) < 0 {
		a, b = b, a
	}
	return []byte(pairPrefix + a + ":" + b)
}

// GetOrCreate returns the existing conversation for the pair, or creates a
// new one inside the same transaction. The pair index guarantees at most
// one conversation per unordered pair.
func (c ConversationRepository) GetOrCreate(senderID, receiverID string) (DiskConversation, error) {
	var conversation DiskConversation
	err := c.db.Update(func(txn *badger.Txn) error {
		indexItem, err := txn.Get(pairKey(senderID, receiverID))
		switch err {
		case nil:
			id, err := indexItem.ValueCopy(nil)
			if err != nil {
				return err
			}
			return getConversation(txn, string(id), &conversation)
		case badger.ErrKeyNotFound:
			now := time.Now().UTC()
			conversation = DiskConversation{
				ID:           uuid.NewString(),
				StartedBy:    senderID,
				Participants: [2]string{senderID, receiverID},
				LastUpdated:  now,
				CreatedAt:    now,
			}
			bytes, err := json.Marshal(conversation)
			if err != nil {
				return err
			}
			if err = txn.Set(conversationKey(conversation.ID), bytes); err != nil {
				return err
			}
			if err = txn.Set(pairKey(senderID, receiverID), []byte(conversation.ID)); err != nil {
				return err
			}
			c.log.Info("conversation created",
				"conversation_id", conversation.ID,
				"started_by", senderID)
			return nil
		default:
			return err
		}
	})
	return conversation, err
}

func (c ConversationRepository) Get(id string) (DiskConversation, error) {
	var conversation DiskConversation
	err := c.db.View(func(txn *badger.Txn) error {
		return getConversation(txn, id, &conversation)
	})
	return conversation, err
}

func getConversation(txn *badger.Txn, id string, out *DiskConversation) error {
	item, err := txn.Get(conversationKey(id))
	if err == badger.ErrKeyNotFound {
		return errs.ErrConversationNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(value []byte) error {
		return json.Unmarshal(value, out)
	})
}

// SetLastMessage advances the back-reference to the most recent message
// and bumps the last-updated timestamp.
func (c ConversationRepository) SetLastMessage(id, messageID string, at time.Time) error {
	return c.db.Update(func(txn *badger.Txn) error {
		var conversation DiskConversation
		if err := getConversation(txn, id, &conversation); err != nil {
			return err
		}
		conversation.LastMessageID = messageID
		conversation.LastUpdated = at
		bytes, err := json.Marshal(conversation)
		if err != nil {
			return err
		}
		return txn.Set(conversationKey(id), bytes)
	})
}

// Delete removes a conversation record and its pair index entry. Cascading
// the message log is the service layer's job.
func (c ConversationRepository) Delete(id string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		var conversation DiskConversation
		if err := getConversation(txn, id, &conversation); err != nil {
			return err
		}
		if err := txn.Delete(pairKey(conversation.Participants[0], conversation.Participants[1])); err != nil {
			return err
		}
		return txn.Delete(conversationKey(id))
	})
}

// ListForUser scans every conversation userID participates in.
func (c ConversationRepository) ListForUser(userID string) ([]DiskConversation, error) {
	var conversations []DiskConversation
	prefix := []byte(conversationPrefix)
	err := c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var conversation DiskConversation
				if err := json.Unmarshal(value, &conversation); err != nil {
					return err
				}
				if conversation.Participants[0] == userID || conversation.Participants[1] == userID {
					conversations = append(conversations, conversation)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return conversations, err
}
