package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stupiduntilnot/reportchat/internal/chat"
	ctxpkg "github.com/stupiduntilnot/reportchat/internal/context"
	"github.com/stupiduntilnot/reportchat/internal/conversation"
	"github.com/stupiduntilnot/reportchat/internal/dummy"
	"github.com/stupiduntilnot/reportchat/internal/logging"
	"github.com/stupiduntilnot/reportchat/internal/model"
	"github.com/stupiduntilnot/reportchat/internal/report"
	"github.com/stupiduntilnot/reportchat/internal/settings"
	"github.com/stupiduntilnot/reportchat/internal/store"
)

type sendFunc func(context.Context, model.Request) (string, error)

func (f sendFunc) Send(ctx context.Context, req model.Request) (string, error) { return f(ctx, req) }

func newTestServer(t *testing.T, sender model.Sender, withKey bool) *httptest.Server {
	t.Helper()
	log := logging.Discard()
	kv := store.NewMemory()
	repo := &settings.Repository{KV: kv, Key: "settings", Defaults: model.DefaultSettings()}
	if withKey {
		st := model.DefaultSettings()
		st.APIKey = "sk-test-1234"
		require.NoError(t, repo.Save(context.Background(), st))
	}
	svc := chat.NewService(chat.Options{
		Normalizer:   report.NewNormalizer(log, nil, nil),
		Prompt:       ctxpkg.PromptBuilder{},
		Conversation: conversation.NewStore(kv, "conversation", log),
		Settings:     repo,
		Sender:       sender,
		Log:          log,
	})
	srv := NewServer(svc, Options{AllowedOrigins: []string{"https://report.example"}, Log: log})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func scripted(t *testing.T, script string) *dummy.Provider {
	t.Helper()
	p, err := dummy.NewProvider(script)
	require.NoError(t, err)
	return p
}

func do(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealthAndProviders(t *testing.T) {
	ts := newTestServer(t, scripted(t, "ok"), true)

	resp := do(t, http.MethodGet, ts.URL+"/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Content-Type"))

	resp = do(t, http.MethodGet, ts.URL+"/api/providers", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	providers := decode[[]map[string]any](t, resp)
	assert.Len(t, providers, 5)
}

func TestSettings(t *testing.T) {
	ts := newTestServer(t, scripted(t, "ok"), false)

	resp := do(t, http.MethodPut, ts.URL+"/api/settings", model.Settings{
		LLMProvider: model.ProviderDeepSeek,
		APIKey:      "sk-secret-9876",
		ModelName:   "deepseek-chat",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/api/settings", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[model.Settings](t, resp)
	assert.Equal(t, model.ProviderDeepSeek, got.LLMProvider)
	assert.NotContains(t, got.APIKey, "secret")
	assert.True(t, strings.HasSuffix(got.APIKey, "9876"))

	// An empty key keeps the stored one.
	resp = do(t, http.MethodPut, ts.URL+"/api/settings", model.Settings{
		LLMProvider: model.ProviderDeepSeek,
		ModelName:   "deepseek-reasoner",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got = decode[model.Settings](t, resp)
	assert.True(t, strings.HasSuffix(got.APIKey, "9876"))

	resp = do(t, http.MethodPut, ts.URL+"/api/settings", model.Settings{LLMProvider: "mistral"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPut, ts.URL+"/api/settings", "not an object")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSnapshotAndContext(t *testing.T) {
	ts := newTestServer(t, scripted(t, "ok"), true)

	snap := report.Snapshot{
		PageName: "Overview",
		Table: &report.TableData{
			Columns: []report.Column{{DisplayName: "Region"}, {DisplayName: "Sales", IsMeasure: true}},
			Rows:    [][]any{{"North", 10.0}, {"South", 20.0}, {"East", 30.0}},
		},
	}
	resp := do(t, http.MethodPut, ts.URL+"/api/snapshot", snap)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rc := decode[report.ReportContext](t, resp)
	assert.Equal(t, "Overview", rc.PageName)
	assert.Equal(t, 3, rc.DataRowCount)

	resp = do(t, http.MethodGet, ts.URL+"/api/context", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, rc, decode[report.ReportContext](t, resp))
}

func TestMessages(t *testing.T) {
	ts := newTestServer(t, scripted(t, "msg:Revenue grew 5%"), true)

	resp := do(t, http.MethodPost, ts.URL+"/api/messages", askRequest{Text: "How did revenue do?"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	reply := decode[conversation.Message](t, resp)
	assert.Equal(t, "Revenue grew 5%", reply.Text)

	resp = do(t, http.MethodGet, ts.URL+"/api/messages", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[messagesResponse](t, resp)
	require.Len(t, list.Messages, 2)
	assert.True(t, list.Messages[0].IsUser)
	assert.False(t, list.Busy)

	resp = do(t, http.MethodDelete, ts.URL+"/api/messages", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/api/messages", nil)
	assert.Empty(t, decode[messagesResponse](t, resp).Messages)
}

func TestPostMessage_Errors(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		ts := newTestServer(t, scripted(t, "ok"), true)
		resp := do(t, http.MethodPost, ts.URL+"/api/messages", askRequest{Text: "  "})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("missing key", func(t *testing.T) {
		ts := newTestServer(t, scripted(t, "ok"), false)
		resp := do(t, http.MethodPost, ts.URL+"/api/messages", askRequest{Text: "hi"})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, decode[errorResponse](t, resp).Error, "API key")
	})

	t.Run("backend fault", func(t *testing.T) {
		ts := newTestServer(t, scripted(t, "err:upstream"), true)
		resp := do(t, http.MethodPost, ts.URL+"/api/messages", askRequest{Text: "hi"})
		require.Equal(t, http.StatusBadGateway, resp.StatusCode)
		body := decode[errorResponse](t, resp)
		require.NotNil(t, body.Message)
		assert.True(t, body.Message.IsError)
	})

	t.Run("busy", func(t *testing.T) {
		started := make(chan struct{})
		release := make(chan struct{})
		ts := newTestServer(t, sendFunc(func(ctx context.Context, _ model.Request) (string, error) {
			close(started)
			<-release
			return "late", nil
		}), true)

		done := make(chan int, 1)
		go func() {
			resp, err := http.Post(ts.URL+"/api/messages", "application/json", strings.NewReader(`{"text":"slow"}`))
			if err != nil {
				done <- 0
				return
			}
			resp.Body.Close()
			done <- resp.StatusCode
		}()
		<-started

		resp := do(t, http.MethodPost, ts.URL+"/api/messages", askRequest{Text: "second"})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)

		close(release)
		assert.Equal(t, http.StatusOK, <-done)
	})
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t, scripted(t, "ok"), true)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/messages", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://report.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "https://report.example", resp.Header.Get("Access-Control-Allow-Origin"))
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func TestWebsocket_Ask(t *testing.T) {
	ts := newTestServer(t, scripted(t, "msg:pong"), true)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var hello wsOutgoing
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "connected", hello.Type)
	assert.NotEmpty(t, hello.ID)

	require.NoError(t, conn.WriteJSON(wsIncoming{Type: "ask", Text: "ping"}))

	for {
		var e chat.Event
		require.NoError(t, conn.ReadJSON(&e))
		if e.Type == chat.EventMessage && e.Message != nil && !e.Message.IsUser {
			assert.Equal(t, "pong", e.Message.Text)
			return
		}
	}
}

func TestWebsocket_RejectsOrigin(t *testing.T) {
	ts := newTestServer(t, scripted(t, "ok"), true)

	header := http.Header{}
	header.Set("Origin", "https://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWebsocket_EmptyAskReportsError(t *testing.T) {
	ts := newTestServer(t, scripted(t, "ok"), true)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var hello wsOutgoing
	require.NoError(t, conn.ReadJSON(&hello))

	require.NoError(t, conn.WriteJSON(wsIncoming{Type: "ask", Text: " "}))
	var out wsOutgoing
	require.NoError(t, conn.ReadJSON(&out))
	assert.Equal(t, "error", out.Type)
	assert.Contains(t, out.Error, "empty")
}

func TestWebsocket_AnswerSurvivesDisconnect(t *testing.T) {
	started := make(chan struct{})
	sender := sendFunc(func(ctx context.Context, _ model.Request) (string, error) {
		close(started)
		select {
		case <-time.After(300 * time.Millisecond):
			return "the answer", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
	ts := newTestServer(t, sender, true)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	require.NoError(t, err)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var hello wsOutgoing
	require.NoError(t, conn.ReadJSON(&hello))

	require.NoError(t, conn.WriteJSON(wsIncoming{Type: "ask", Text: "ping"}))
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("request never reached the backend")
	}
	require.NoError(t, conn.Close())

	var list messagesResponse
	require.Eventually(t, func() bool {
		resp, err := http.Get(ts.URL + "/api/messages")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		list = messagesResponse{}
		if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
			return false
		}
		return !list.Busy && len(list.Messages) == 2
	}, 5*time.Second, 20*time.Millisecond)

	assert.Equal(t, "ping", list.Messages[0].Text)
	assert.Equal(t, "the answer", list.Messages[1].Text)
	assert.False(t, list.Messages[1].IsError)
}
