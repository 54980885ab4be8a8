package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbie-bot/orbie/internal/config"
	"github.com/orbie-bot/orbie/internal/logger"
)

func newTestGemini(t *testing.T, handler http.HandlerFunc) *Gemini {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewGemini(context.Background(), config.GeminiConfig{
		BaseURL:     srv.URL,
		Model:       "gemini-chat",
		SearchModel: "gemini-search",
		Temperature: 0.5,
		Timeout:     5 * time.Second,
	}, "gem-key", testPrompts, logger.Discard())
	require.NoError(t, err)
	return client
}

func TestGeminiChat(t *testing.T) {
	t.Parallel()

	bodies := make(chan map[string]any, 1)
	client := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-chat:generateContent"), r.URL.Path)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies <- body
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"hello "},{"text":"world"}]}}]}`))
	})

	reply, err := client.Chat(context.Background(), "hi", "pookie")
	require.NoError(t, err)
	assert.Equal(t, "hello world", reply)

	raw, err := json.Marshal(<-bodies)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Be sweet.")
	assert.Contains(t, string(raw), "hi")
}

func TestGeminiSearchUsesSearchModel(t *testing.T) {
	t.Parallel()

	client := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-search")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"answer"}]}}]}`))
	})

	reply, err := client.Search(context.Background(), "query")
	require.NoError(t, err)
	assert.Equal(t, "answer", reply)
}

func TestGeminiEmptyCandidates(t *testing.T) {
	t.Parallel()

	client := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := client.Chat(context.Background(), "hi", "default")
	assert.Error(t, err)
}

func TestGeminiNonOKStatus(t *testing.T) {
	t.Parallel()

	client := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":500,"message":"internal","status":"INTERNAL"}}`))
	})

	_, err := client.Chat(context.Background(), "hi", "default")
	require.Error(t, err)
}

func TestNewGeminiRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewGemini(context.Background(), config.GeminiConfig{}, "", testPrompts, logger.Discard())
	assert.Error(t, err)
}
