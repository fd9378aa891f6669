// Package api exposes the messaging REST surface: conversation CRUD and
// message reads used by the marketplace frontend, plus the store boundary
// the realtime core consumes when it runs as a separate process.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"market-chat/domain"
	errs "market-chat/errors"
	"market-chat/services"
)

type Handlers struct {
	svc services.IMessagingService
	log *slog.Logger
}

func NewHandlers(svc services.IMessagingService, log *slog.Logger) *Handlers {
	return &Handlers{svc: svc, log: log}
}

// Register mounts every messaging route under /api/messaging.
func Register(router *mux.Router, h *Handlers, middleware mux.MiddlewareFunc) {
	sub := router.PathPrefix("/api/messaging").Subrouter()
	sub.Use(middleware)

	sub.HandleFunc("/createConversation", h.CreateConversation).Methods(http.MethodPost)
	sub.HandleFunc("/getConversationById/{conversationId}", h.GetConversationByID).Methods(http.MethodGet)
	sub.HandleFunc("/getConversations/{userId}", h.GetConversations).Methods(http.MethodPost)
	sub.HandleFunc("/getMessages/{conversationId}", h.GetMessages).Methods(http.MethodPost)
	sub.HandleFunc("/sendMessage/{conversationId}", h.SendMessage).Methods(http.MethodPost)
	sub.HandleFunc("/markAsSeen/{messageId}", h.MarkAsSeen).Methods(http.MethodPost)
	sub.HandleFunc("/markConversationSeen/{conversationId}", h.MarkConversationSeen).Methods(http.MethodPost)
	sub.HandleFunc("/deleteConversation/{conversationId}", h.DeleteConversation).Methods(http.MethodPost)
}

// CreateConversation is an idempotent lookup-or-create on the participant
// pair: re-requesting an existing pair returns it unchanged.
func (h *Handlers) CreateConversation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SenderID   string `json:"senderId"`
		ReceiverID string `json:"receiverId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	conversation, err := h.svc.CreateConversation(r.Context(), body.SenderID, body.ReceiverID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, conversation)
}

func (h *Handlers) GetConversationByID(w http.ResponseWriter, r *http.Request) {
	conversationID := mux.Vars(r)["conversationId"]
	conversation, err := h.svc.GetConversation(r.Context(), conversationID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	// The caller may ask to be checked against the participant list.
	if userID := r.URL.Query().Get("userId"); userID != "" && !conversation.HasParticipant(userID) {
		writeError(w, http.StatusBadRequest, "user not in this conversation")
		return
	}
	writeJSON(w, http.StatusOK, conversation)
}

func (h *Handlers) GetConversations(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	summaries, err := h.svc.ListConversations(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if summaries == nil {
		summaries = []domain.ConversationSummary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *Handlers) GetMessages(w http.ResponseWriter, r *http.Request) {
	conversationID := mux.Vars(r)["conversationId"]
	messages, err := h.svc.GetMessages(r.Context(), conversationID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

// SendMessage persists a message with the delivery status the realtime
// layer computed. Without a conversation the message is rejected, not
// silently dropped.
func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	conversationID := mux.Vars(r)["conversationId"]
	var body struct {
		SenderID   string        `json:"senderId"`
		ReceiverID string        `json:"receiverId"`
		Content    string        `json:"content"`
		Timestamp  time.Time     `json:"timestamp"`
		Status     domain.Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	if body.Status == "" {
		body.Status = domain.StatusSent
	}
	message, err := h.svc.PersistMessage(r.Context(), conversationID,
		body.SenderID, body.ReceiverID, body.Content, body.Timestamp, body.Status)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, message)
}

func (h *Handlers) MarkAsSeen(w http.ResponseWriter, r *http.Request) {
	messageID := mux.Vars(r)["messageId"]
	message, err := h.svc.MarkMessageSeen(r.Context(), messageID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, message)
}

func (h *Handlers) MarkConversationSeen(w http.ResponseWriter, r *http.Request) {
	conversationID := mux.Vars(r)["conversationId"]
	var body struct {
		ViewerID string `json:"viewerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	updated, err := h.svc.BulkMarkSeen(r.Context(), conversationID, body.ViewerID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": updated})
}

func (h *Handlers) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	conversationID := mux.Vars(r)["conversationId"]
	if err := h.svc.DeleteConversation(r.Context(), conversationID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "conversation deleted successfully"})
}

func (h *Handlers) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrConversationNotFound):
		writeError(w, http.StatusNotFound, "conversation not found")
	case errors.Is(err, errs.ErrMessageNotFound):
		writeError(w, http.StatusNotFound, "message not found")
	case errors.Is(err, errs.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error("messaging request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
