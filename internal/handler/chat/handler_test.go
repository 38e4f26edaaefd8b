package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chatmodel "github.com/zhouzirui/relaychat/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/relaychat/backend/internal/service/chat"
	"github.com/zhouzirui/relaychat/backend/internal/service/relay"
	"github.com/zhouzirui/relaychat/backend/internal/service/session"
)

type replyCaller string

func (c replyCaller) Call(context.Context, []chatmodel.Message) relay.Result {
	return relay.Result{Text: string(c)}
}

func setupRouter() (*chi.Mux, *session.Store) {
	store := session.NewStore()
	handler := New(store, chatservice.NewOrchestrator(store, replyCaller("assistant Hi there")))

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, store
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestCreateAndListChats(t *testing.T) {
	r, _ := setupRouter()

	resp := do(t, r, http.MethodPost, "/chats", nil)
	require.Equal(t, http.StatusCreated, resp.Code)
	var created chatSummary
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.Equal(t, "Chat 1", created.Title)

	do(t, r, http.MethodPost, "/chats", nil)

	resp = do(t, r, http.MethodGet, "/chats", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var list listResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	require.Len(t, list.Chats, 2)
	assert.Equal(t, "Chat 2", list.Chats[1].Title)
	require.NotNil(t, list.ActiveIndex)
	assert.Equal(t, 1, *list.ActiveIndex)
}

func TestListWithoutChats(t *testing.T) {
	r, _ := setupRouter()

	resp := do(t, r, http.MethodGet, "/chats", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"chats":[],"activeIndex":null}`, resp.Body.String())
}

func TestSelectRenameDelete(t *testing.T) {
	r, store := setupRouter()
	store.CreateChat()
	store.CreateChat()

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPut, "/chats/0/active", nil).Code)
	active, _ := store.Active()
	assert.Equal(t, 0, active)

	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodPut, "/chats/5/active", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodPut, "/chats/abc/active", nil).Code)

	resp := do(t, r, http.MethodPut, "/chats/1/title", map[string]string{"title": "Groceries"})
	require.Equal(t, http.StatusOK, resp.Code)
	c, _ := store.Chat(1)
	assert.Equal(t, "Groceries", c.Title)

	resp = do(t, r, http.MethodPut, "/chats/1/title", map[string]string{"title": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	c, _ = store.Chat(1)
	assert.Equal(t, "Groceries", c.Title)

	assert.Equal(t, http.StatusNoContent, do(t, r, http.MethodDelete, "/chats/0", nil).Code)
	assert.Equal(t, 1, store.Len())
	_, ok := store.Active()
	assert.False(t, ok)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodDelete, "/chats/3", nil).Code)
}

func TestSendAndExport(t *testing.T) {
	r, store := setupRouter()
	store.CreateChat()

	resp := do(t, r, http.MethodPost, "/chats/active/messages", map[string]string{"input": "Hello"})
	require.Equal(t, http.StatusOK, resp.Code)
	var outcome chatservice.Outcome
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &outcome))
	assert.Equal(t, chatservice.StateResolved, outcome.State)
	assert.Equal(t, "Hi there", outcome.Reply.Content)

	resp = do(t, r, http.MethodGet, "/chats/0/messages", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var body struct {
		Messages []chatmodel.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Messages, 2)

	resp = do(t, r, http.MethodGet, "/chats/0/export", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "User: Hello\nAI: Hi there", resp.Body.String())
	assert.Contains(t, resp.Header().Get("Content-Type"), "text/plain")
}

func TestSendErrors(t *testing.T) {
	r, store := setupRouter()

	resp := do(t, r, http.MethodPost, "/chats/active/messages", map[string]string{"input": "Hello"})
	assert.Equal(t, http.StatusConflict, resp.Code)

	store.CreateChat()
	resp = do(t, r, http.MethodPost, "/chats/active/messages", map[string]string{"input": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	req := httptest.NewRequest(http.MethodPost, "/chats/active/messages", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, _ := store.Chat(0)
	assert.Empty(t, c.Messages)
}
