package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"market-chat/auth"
	"market-chat/domain"
	"market-chat/repositories"
	"market-chat/services"
)

func newTestServer(t *testing.T, tokens *auth.TokenValidator) *httptest.Server {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.Default()
	svc := services.NewMessagingService(
		repositories.NewConversationRepository(db, log),
		repositories.NewMessageRepository(db, log),
		log,
	)

	router := mux.NewRouter()
	Register(router, NewHandlers(svc, log), Authenticate(tokens))
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func post(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func createConversation(t *testing.T, base, senderID, receiverID string) domain.Conversation {
	t.Helper()
	resp := post(t, base+"/api/messaging/createConversation", map[string]string{
		"senderId":   senderID,
		"receiverId": receiverID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeBody[domain.Conversation](t, resp)
}

func TestAPI_CreateConversation_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t, nil)

	first := createConversation(t, server.URL, "u1", "u2")
	req.Equal("u1", first.StartedBy)

	// Re-requesting the pair, even reversed, returns the same conversation
	again := createConversation(t, server.URL, "u2", "u1")
	req.Equal(first.ID, again.ID)
	req.Equal("u1", again.StartedBy)
}

func TestAPI_CreateConversation_Requires_Both_Parties(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t, nil)

	resp := post(t, server.URL+"/api/messaging/createConversation", map[string]string{
		"senderId": "u1",
	})
	req.Equal(http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_SendMessage_Unknown_Conversation_Is_404(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t, nil)

	resp := post(t, server.URL+"/api/messaging/sendMessage/missing", map[string]string{
		"senderId":   "u1",
		"receiverId": "u2",
		"content":    "hi",
	})
	req.Equal(http.StatusNotFound, resp.StatusCode)
}

func TestAPI_Send_Fetch_And_Mark_Seen_Round_Trip(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t, nil)
	base := server.URL + "/api/messaging"

	conversation := createConversation(t, server.URL, "u1", "u2")

	// Given two messages from u1, persisted with the default "sent" status
	for _, content := range []string{"first", "second"} {
		resp := post(t, base+"/sendMessage/"+conversation.ID, map[string]string{
			"senderId":   "u1",
			"receiverId": "u2",
			"content":    content,
		})
		req.Equal(http.StatusCreated, resp.StatusCode)
		message := decodeBody[domain.Message](t, resp)
		req.Equal(domain.StatusSent, message.Status)
	}

	// When u2 marks the conversation seen
	resp := post(t, base+"/markConversationSeen/"+conversation.ID, map[string]string{
		"viewerId": "u2",
	})
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Equal(2, decodeBody[map[string]int](t, resp)["updated"])

	// Then the message log comes back oldest-first, all seen
	resp = post(t, base+"/getMessages/"+conversation.ID, nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	messages := decodeBody[[]domain.Message](t, resp)
	req.Len(messages, 2)
	req.Equal("first", messages[0].Content)
	req.Equal("second", messages[1].Content)
	for _, message := range messages {
		req.Equal(domain.StatusSeen, message.Status)
	}
}

func TestAPI_MarkAsSeen_Single_Message(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t, nil)
	base := server.URL + "/api/messaging"

	conversation := createConversation(t, server.URL, "u1", "u2")
	resp := post(t, base+"/sendMessage/"+conversation.ID, map[string]string{
		"senderId":   "u1",
		"receiverId": "u2",
		"content":    "hi",
	})
	req.Equal(http.StatusCreated, resp.StatusCode)
	message := decodeBody[domain.Message](t, resp)

	resp = post(t, base+"/markAsSeen/"+message.ID, nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Equal(domain.StatusSeen, decodeBody[domain.Message](t, resp).Status)
}

func TestAPI_GetConversations_Orders_By_Activity(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t, nil)
	base := server.URL + "/api/messaging"

	older := createConversation(t, server.URL, "u1", "u2")
	newer := createConversation(t, server.URL, "u1", "u3")

	resp := post(t, base+"/sendMessage/"+older.ID, map[string]string{
		"senderId": "u2", "receiverId": "u1", "content": "hello",
	})
	req.Equal(http.StatusCreated, resp.StatusCode)
	time.Sleep(5 * time.Millisecond)
	resp = post(t, base+"/sendMessage/"+newer.ID, map[string]string{
		"senderId": "u3", "receiverId": "u1", "content": "yo",
	})
	req.Equal(http.StatusCreated, resp.StatusCode)

	resp = post(t, base+"/getConversations/u1", nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	summaries := decodeBody[[]domain.ConversationSummary](t, resp)
	req.Len(summaries, 2)
	req.Equal(newer.ID, summaries[0].ID)
	req.Equal(1, summaries[0].UnreadCount)
}

func TestAPI_GetConversationById_Participant_Check(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t, nil)
	base := server.URL + "/api/messaging"

	conversation := createConversation(t, server.URL, "u1", "u2")

	resp, err := http.Get(base + "/getConversationById/" + conversation.ID + "?userId=u2")
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)

	resp, err = http.Get(base + "/getConversationById/" + conversation.ID + "?userId=stranger")
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_DeleteConversation(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t, nil)
	base := server.URL + "/api/messaging"

	conversation := createConversation(t, server.URL, "u1", "u2")

	resp := post(t, base+"/deleteConversation/"+conversation.ID, nil)
	req.Equal(http.StatusOK, resp.StatusCode)

	getResp, err := http.Get(base + "/getConversationById/" + conversation.ID)
	req.NoError(err)
	defer getResp.Body.Close()
	req.Equal(http.StatusNotFound, getResp.StatusCode)
}

func TestAPI_Bearer_Token_Enforcement(t *testing.T) {
	req := require.New(t)
	tokens := auth.NewTokenValidator("shared-secret")
	server := newTestServer(t, tokens)
	url := server.URL + "/api/messaging/getConversations/u1"

	// Without a token the request is refused
	resp := post(t, url, nil)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)

	// With a forged token too
	request, err := http.NewRequest(http.MethodPost, url, nil)
	req.NoError(err)
	request.Header.Set("Authorization", "Bearer not-a-token")
	resp, err = http.DefaultClient.Do(request)
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusUnauthorized, resp.StatusCode)

	// A properly signed token passes
	token, err := tokens.Sign("u1", time.Minute)
	req.NoError(err)
	request, err = http.NewRequest(http.MethodPost, url, nil)
	req.NoError(err)
	request.Header.Set("Authorization", "Bearer "+token)
	resp, err = http.DefaultClient.Do(request)
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)
}
