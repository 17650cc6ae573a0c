package generation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	chatPath     = "/v3/chat"
	retrievePath = "/v3/chat/retrieve"
	messagesPath = "/v3/chat/message/list"
)

// fakeCoze serves the three chat endpoints from canned data
type fakeCoze struct {
	t        *testing.T
	statuses []string
	messages []Message
	created  map[string]any
	auth     string
}

func (f *fakeCoze) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(chatPath, func(w http.ResponseWriter, r *http.Request) {
		f.auth = r.Header.Get("Authorization")
		assert.Equal(f.t, http.MethodPost, r.Method)
		assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&f.created))
		writeEnvelope(w, map[string]any{"id": "chat-1", "conversation_id": "conv-1", "status": "created"})
	})
	mux.HandleFunc(retrievePath, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(f.t, "chat-1", r.URL.Query().Get("chat_id"))
		assert.Equal(f.t, "conv-1", r.URL.Query().Get("conversation_id"))
		status := f.statuses[0]
		if len(f.statuses) > 1 {
			f.statuses = f.statuses[1:]
		}
		writeEnvelope(w, map[string]any{"id": "chat-1", "status": status})
	})
	mux.HandleFunc(messagesPath, func(w http.ResponseWriter, r *http.Request) {
		wire := make([]map[string]any, 0, len(f.messages))
		for _, m := range f.messages {
			wire = append(wire, map[string]any{
				"role":         m.Role,
				"type":         m.Type,
				"content":      m.Content,
				"content_type": m.ContentType,
			})
		}
		writeEnvelope(w, wire)
	})
	return mux
}

func writeEnvelope(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"code": 0, "msg": "", "data": data})
}

func TestClientEndToEnd(t *testing.T) {
	coze := &fakeCoze{
		t:        t,
		statuses: []string{"in_progress", "completed"},
		messages: []Message{
			assistant(`{"code":0,"data":{"SongDetail":{"AudioUrl":"https://x/y.wav","Lyrics":"hi"}}}`),
		},
	}
	server := httptest.NewServer(coze.handler())
	defer server.Close()

	client := NewClient(server.URL, "tok", "bot-1", "", server.Client())
	clock := newFakeClock()
	res := NewGenerator(client, WithClock(clock)).Generate(context.Background(), bgmPrompt())

	require.True(t, res.Success, res.Message)
	assert.Equal(t, "https://x/y.wav", res.AudioURL)
	assert.Equal(t, "hi", res.Lyrics)
	assert.Len(t, clock.sleeps, 1)

	assert.Equal(t, "Bearer tok", coze.auth)
	assert.Equal(t, "bot-1", coze.created["bot_id"])
	assert.Equal(t, DefaultUserID, coze.created["user_id"])
	assert.Equal(t, false, coze.created["stream"])
	assert.Equal(t, true, coze.created["auto_save_history"])
	additional, ok := coze.created["additional_messages"].([]any)
	require.True(t, ok)
	require.Len(t, additional, 1)
	first, ok := additional[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "user", first["role"])
	assert.Contains(t, first["content"], "gen_bgm")
	meta, ok := coze.created["meta_data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "gen_bgm", meta["interface_type"])
}

func TestClientUpstreamErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"non-200", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		}},
		{"error code", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"code":4100,"msg":"authentication is invalid"}`))
		}},
		{"no chat id", func(w http.ResponseWriter, r *http.Request) {
			writeEnvelope(w, map[string]any{"status": "created"})
		}},
		{"not json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := NewClient(server.URL, "tok", "bot", "u", server.Client())
			_, err := client.CreateChat(context.Background(), "hello", nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUpstreamUnavailable))
		})
	}
}

func TestClientRetrieveLastError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, map[string]any{"status": "failed", "last_error": map[string]any{"code": 1, "msg": "plugin crashed"}})
	}))
	defer server.Close()

	status, err := NewClient(server.URL, "tok", "bot", "u", server.Client()).Retrieve(context.Background(), Chat{ID: "c", ConversationID: "v"})
	require.NoError(t, err)
	assert.Equal(t, "failed", status.Status)
	assert.Equal(t, "plugin crashed", status.LastError)
}

func TestClientConfigured(t *testing.T) {
	assert.True(t, NewClient("", "tok", "bot", "", nil).Configured())
	assert.False(t, NewClient("", "tok", "", "", nil).Configured())
}
