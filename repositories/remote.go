package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"market-chat/domain"
	errs "market-chat/errors"
)

// RemoteStore implements the store contract over the messaging REST API,
// for deployments where the realtime core runs apart from the storage
// service. The realtime layer of the original system talked to its own
// REST API the same way.
type RemoteStore struct {
	baseURL string
	client  *http.Client
	log     *slog.Logger
}

func NewRemoteStore(baseURL string, timeout time.Duration, log *slog.Logger) *RemoteStore {
	return &RemoteStore{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

func (r *RemoteStore) CreateConversation(ctx context.Context, senderID, receiverID string) (domain.Conversation, error) {
	var conversation domain.Conversation
	err := r.post(ctx, "/api/messaging/createConversation",
		map[string]string{"senderId": senderID, "receiverId": receiverID},
		&conversation)
	return conversation, err
}

func (r *RemoteStore) GetConversation(ctx context.Context, conversationID string) (domain.Conversation, error) {
	var conversation domain.Conversation
	err := r.do(ctx, http.MethodGet,
		"/api/messaging/getConversationById/"+conversationID, nil, &conversation)
	return conversation, err
}

func (r *RemoteStore) PersistMessage(ctx context.Context, conversationID, senderID, receiverID, content string,
	timestamp time.Time, status domain.Status) (domain.Message, error) {
	body := map[string]any{
		"senderId":   senderID,
		"receiverId": receiverID,
		"content":    content,
		"timestamp":  timestamp,
		"status":     status,
	}
	var message domain.Message
	err := r.post(ctx, "/api/messaging/sendMessage/"+conversationID, body, &message)
	return message, err
}

func (r *RemoteStore) BulkMarkSeen(ctx context.Context, conversationID, viewerID string) (int, error) {
	var result struct {
		Updated int `json:"updated"`
	}
	err := r.post(ctx, "/api/messaging/markConversationSeen/"+conversationID,
		map[string]string{"viewerId": viewerID}, &result)
	return result.Updated, err
}

func (r *RemoteStore) post(ctx context.Context, path string, body, out any) error {
	return r.do(ctx, http.MethodPost, path, body, out)
}

func (r *RemoteStore) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errs.ErrConversationNotFound
	case resp.StatusCode == http.StatusBadRequest:
		return fmt.Errorf("%w: messaging API rejected %s", errs.ErrValidation, path)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: messaging API returned %d", errs.ErrStoreUnavailable, resp.StatusCode)
	case resp.StatusCode >= 300:
		return fmt.Errorf("messaging API returned unexpected status %d for %s", resp.StatusCode, path)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
