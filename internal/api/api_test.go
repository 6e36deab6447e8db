package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/my3-ai/concierge/internal/actions"
	"github.com/my3-ai/concierge/internal/address"
	"github.com/my3-ai/concierge/internal/auth"
	"github.com/my3-ai/concierge/internal/convstate"
	"github.com/my3-ai/concierge/internal/dialog"
	"github.com/my3-ai/concierge/internal/model"
	"github.com/my3-ai/concierge/internal/services"
	"github.com/my3-ai/concierge/internal/store/sqlite"
	"github.com/my3-ai/concierge/internal/understanding"
)

func newTestServer(t *testing.T, stub *understanding.Stub) *httptest.Server {
	t.Helper()
	db, err := sqlite.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.EnsureSchema(db))
	s := sqlite.NewWithDB(db)

	log := zerolog.Nop()
	tokens := auth.NewManager("test-secret", time.Hour)
	router := NewRouter(Deps{
		Auth: services.NewAuthService(s, tokens),
		Chat: services.NewChatService(
			convstate.NewMemoryStore(),
			dialog.NewRouter(stub, s, log),
			actions.NewExecutor(s, address.Disabled{}, 10, log),
			log,
		),
		Contacts: services.NewContactService(s, address.Disabled{}, 10),
		Tokens:   tokens,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func registerUser(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/auth/register", "", map[string]string{
		"email": "dev@example.com", "password": "hunter22!", "displayName": "Dev",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, &understanding.Stub{})
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "healthy", body["status"])
}

func TestAuthFlow(t *testing.T) {
	srv := newTestServer(t, &understanding.Stub{})
	registerUser(t, srv)

	// Duplicate registration conflicts.
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/auth/register", "", map[string]string{
		"email": "dev@example.com", "password": "hunter22!",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	// Login works with the right password.
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/auth/login", "", map[string]string{
		"email": "dev@example.com", "password": "hunter22!",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, body["token"])

	// And fails with a wrong one.
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/auth/login", "", map[string]string{
		"email": "dev@example.com", "password": "wrong-password",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestChatRequiresToken(t *testing.T) {
	srv := newTestServer(t, &understanding.Stub{})
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/chat", "", map[string]string{"message": "hi"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestChatConfirmFlow(t *testing.T) {
	stub := &understanding.Stub{
		Classification: understanding.Classification{Intent: model.IntentAddRecipient, Confidence: 0.9},
		Person:         model.PersonFields{Name: "Ritika", Relationship: "wife"},
	}
	srv := newTestServer(t, stub)
	token := registerUser(t, srv)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/chat", token, map[string]string{
		"message": "Add my wife Ritika",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["requiresConfirmation"])
	convID, _ := body["conversationId"].(string)
	require.NotEmpty(t, convID)

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/chat/confirm", token, map[string]interface{}{
		"conversationId": convID, "confirmed": true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body["reply"], "added Ritika")

	// The contact is now visible on the management surface.
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/recipients", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 1, body["count"])
}

func TestConfirmUnknownConversation(t *testing.T) {
	srv := newTestServer(t, &understanding.Stub{})
	token := registerUser(t, srv)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/chat/confirm", token, map[string]interface{}{
		"conversationId": "no-such-conversation", "confirmed": true,
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRecipientCRUD(t *testing.T) {
	srv := newTestServer(t, &understanding.Stub{})
	token := registerUser(t, srv)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/recipients", token, map[string]interface{}{
		"name": "Ravi", "relationship": "friend", "interests": []string{"climbing"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	contactID, _ := body["contactId"].(string)
	require.NotEmpty(t, contactID)

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/recipients/"+contactID, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Ravi", body["name"])

	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/api/recipients/"+contactID, token, map[string]interface{}{
		"name": "Ravi Kumar",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/recipients/"+contactID+"/occasions", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 0, body["count"])

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/recipients/"+contactID, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = delResp.Body.Close()
	require.Equal(t, http.StatusNoContent, delResp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/recipients/"+contactID, token, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
