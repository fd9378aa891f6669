package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	errs "market-chat/errors"
)

const (
	messagePrefix   = "msg:"
	messageIDPrefix = "msgid:"
)

// DiskMessage is the persisted form of a message. The domain type is
// rebuilt from it by the service layer.
type DiskMessage struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	ReceiverID     string    `json:"receiverId"`
	Content        string    `json:"content"`
	At             time.Time `json:"timestamp"`
	Status         string    `json:"status"`
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

// messageKey formats "msg:{conversation_id}:{timestamp_padded}:{id}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using the message id as a collision
//     disconnector if two messages arrive at the same nanosecond.
func messageKey(m DiskMessage) []byte {
	return []byte(fmt.Sprintf("%s%s:%019d:%s",
		messagePrefix, m.ConversationID, m.At.UnixNano(), m.ID))
}

func messageIDKey(id string) []byte {
	return []byte(messageIDPrefix + id)
}

// Store persists a message and a secondary index from its id to its
// time-ordered key, so single-message lookups stay cheap.
func (m MessageRepository) Store(message DiskMessage) error {
	bytes, err := json.Marshal(message)
	if err != nil {
		return err
	}
	key := messageKey(message)
	return m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, bytes); err != nil {
			return err
		}
		return txn.Set(messageIDKey(message.ID), key)
	})
}

// List retrieves every message of a conversation in timestamp-ascending
// order. Thanks to the padded timestamp in the key, a plain prefix scan is
// naturally sorted by time.
func (m MessageRepository) List(conversationID string) ([]DiskMessage, error) {
	var messages []DiskMessage
	prefix := []byte(messagePrefix + conversationID + ":")
	err := m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var message DiskMessage
				if err := json.Unmarshal(value, &message); err != nil {
					return err
				}
				messages = append(messages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return messages, err
}

// BulkMarkSeen advances every "sent" message of the conversation not
// authored by viewerID to "seen" and returns the number of records that
// changed. Calling it again once nothing is "sent" changes nothing.
func (m MessageRepository) BulkMarkSeen(conversationID, viewerID string) (int, error) {
	prefix := []byte(messagePrefix + conversationID + ":")
	updated := 0
	err := m.db.Update(func(txn *badger.Txn) error {
		type pending struct {
			key   []byte
			value []byte
		}
		var writes []pending

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)
			err := item.Value(func(value []byte) error {
				var message DiskMessage
				if err := json.Unmarshal(value, &message); err != nil {
					return err
				}
				if message.SenderID == viewerID || message.Status != "sent" {
					return nil
				}
				message.Status = "seen"
				bytes, err := json.Marshal(message)
				if err != nil {
					return err
				}
				writes = append(writes, pending{key: key, value: bytes})
				return nil
			})
			if err != nil {
				it.Close()
				return err
			}
		}
		it.Close()

		for _, w := range writes {
			if err := txn.Set(w.key, w.value); err != nil {
				return err
			}
		}
		updated = len(writes)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// MarkSeenByID advances a single message to "seen" through the id index.
func (m MessageRepository) MarkSeenByID(messageID string) (DiskMessage, error) {
	var message DiskMessage
	err := m.db.Update(func(txn *badger.Txn) error {
		indexItem, err := txn.Get(messageIDKey(messageID))
		if err == badger.ErrKeyNotFound {
			return errs.ErrMessageNotFound
		}
		if err != nil {
			return err
		}
		key, err := indexItem.ValueCopy(nil)
		if err != nil {
			return err
		}
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		err = item.Value(func(value []byte) error {
			return json.Unmarshal(value, &message)
		})
		if err != nil {
			return err
		}
		if message.Status == "seen" {
			return nil
		}
		message.Status = "seen"
		bytes, err := json.Marshal(message)
		if err != nil {
			return err
		}
		return txn.Set(key, bytes)
	})
	return message, err
}

// CountUnread counts messages addressed to userID not yet seen, for the
// conversation-list badge.
func (m MessageRepository) CountUnread(conversationID, userID string) (int, error) {
	count := 0
	prefix := []byte(messagePrefix + conversationID + ":")
	err := m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var message DiskMessage
				if err := json.Unmarshal(value, &message); err != nil {
					return err
				}
				if message.ReceiverID == userID && message.Status != "seen" {
					count++
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return count, err
}

// DeleteByConversation removes the whole message log of a conversation,
// index entries included.
func (m MessageRepository) DeleteByConversation(conversationID string) error {
	prefix := []byte(messagePrefix + conversationID + ":")
	return m.db.Update(func(txn *badger.Txn) error {
		var keys [][]byte
		var ids []string

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			keys = append(keys, item.KeyCopy(nil))
			err := item.Value(func(value []byte) error {
				var message DiskMessage
				if err := json.Unmarshal(value, &message); err != nil {
					return err
				}
				ids = append(ids, message.ID)
				return nil
			})
			if err != nil {
				it.Close()
				return err
			}
		}
		it.Close()

		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		for _, id := range ids {
			if err := txn.Delete(messageIDKey(id)); err != nil {
				return err
			}
		}
		m.log.Debug("deleted conversation messages",
			"conversation_id", conversationID, "count", len(keys))
		return nil
	})
}
