package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/relaychat/backend/internal/handler/events"
	chatService "github.com/zhouzirui/relaychat/backend/internal/service/chat"
	relayService "github.com/zhouzirui/relaychat/backend/internal/service/relay"
	"github.com/zhouzirui/relaychat/backend/internal/service/session"
)

// newStack starts a backend, the relay server and wires the orchestrator to
// call the relay over HTTP.
func newStack(t *testing.T, backend http.HandlerFunc) (*httptest.Server, *session.Store) {
	t.Helper()
	backendSrv := httptest.NewServer(backend)
	t.Cleanup(backendSrv.Close)

	store := session.NewStore()
	hub := events.NewHub(store)
	t.Cleanup(hub.Close)

	deps := Dependencies{Store: store, Hub: hub, BackendURL: backendSrv.URL, AllowedOrigins: []string{"*"}}
	relaySrv := httptest.NewUnstartedServer(nil)
	deps.Orchestrator = chatService.NewOrchestrator(store, relayService.NewClient("http://"+relaySrv.Listener.Addr().String()+"/api/proxyLLM", nil))
	relaySrv.Config.Handler = NewRouter(deps)
	relaySrv.Start()
	t.Cleanup(relaySrv.Close)
	return relaySrv, store
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestEndToEndSend(t *testing.T) {
	srv, store := newStack(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"response": "assistant Hi there"})
	})

	assert.Equal(t, http.StatusCreated, post(t, srv.URL+"/api/chats", "").StatusCode)

	resp := post(t, srv.URL+"/api/chats/active/messages", `{"input":"Hello"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var outcome chatService.Outcome
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&outcome))
	assert.Equal(t, chatService.StateResolved, outcome.State)

	text, err := store.ExportText(0)
	require.NoError(t, err)
	assert.Equal(t, "User: Hello\nAI: Hi there", text)
}

func TestEndToEndBackendDown(t *testing.T) {
	srv, store := newStack(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	store.CreateChat()

	resp := post(t, srv.URL+"/api/chats/active/messages", `{"input":"Hello"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var outcome chatService.Outcome
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&outcome))
	assert.Equal(t, chatService.StateFailed, outcome.State)
	assert.Equal(t, relayService.KindUpstream, outcome.Failure)
	assert.Equal(t, chatService.FallbackReply, outcome.Reply.Content)
}

func TestRelayRoutesAndHealth(t *testing.T) {
	srv, _ := newStack(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"ok"}`))
	})

	for _, path := range []string{"/api/proxyLLM", "/.netlify/functions/proxyLLM"} {
		resp := post(t, srv.URL+path, `{"question":"hi"}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)

		getResp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		getResp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, getResp.StatusCode, path)
	}

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
