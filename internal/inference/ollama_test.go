package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
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

type staticPrompts map[string]string

func (p staticPrompts) Load(name string) (string, error) {
	if s, ok := p[name]; ok {
		return s, nil
	}
	if s, ok := p["default"]; ok {
		return s, nil
	}
	return "", errors.New("no prompt")
}

var testPrompts = staticPrompts{
	"default": "You are helpful.",
	"pookie":  "Be sweet.",
	"search":  "Summarize these results.",
}

func newTestOllama(t *testing.T, handler http.HandlerFunc) *Ollama {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOllama(config.OllamaConfig{
		URL:     srv.URL + "/api/generate",
		Model:   "llama-test",
		Timeout: 5 * time.Second,
		Buffer:  2,
	}, testPrompts, logger.Discard())
}

func drain(ch <-chan Fragment) []Fragment {
	var out []Fragment
	for f := range ch {
		out = append(out, f)
	}
	return out
}

func texts(fs []Fragment) []string {
	out := make([]string, 0, len(fs))
	for _, f := range fs {
		out = append(out, f.Text)
	}
	return out
}

func TestOllamaStreamYieldsFragments(t *testing.T) {
	t.Parallel()

	client := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "{\"response\":\"A\"}\n{\"response\":\"B\"}\n")
	})

	got := drain(client.Stream(context.Background(), "hello", "default"))

	assert.Equal(t, []string{"A", "B"}, texts(got))
	for _, f := range got {
		assert.NoError(t, f.Err)
	}
}

func TestOllamaStreamRequestPayload(t *testing.T) {
	t.Parallel()

	payloads := make(chan ollamaRequest, 1)
	client := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var req ollamaRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		payloads <- req
		fmt.Fprint(w, "{\"response\":\"ok\",\"done\":true}\n")
	})

	text, err := Collect(client.Stream(context.Background(), "what's up", "pookie"))
	require.NoError(t, err)
	assert.Equal(t, "ok", text)

	payload := <-payloads

	assert.Equal(t, "llama-test", payload.Model)
	assert.Equal(t, "Be sweet.", payload.System)
	assert.Equal(t, "role: user, content: \"what's up\"\n", payload.Prompt)
	assert.True(t, payload.Stream)
}

func TestOllamaStreamPromptKeepsMessageVerbatim(t *testing.T) {
	t.Parallel()

	prompts := make(chan string, 1)
	client := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		var req ollamaRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		prompts <- req.Prompt
		fmt.Fprint(w, "{\"response\":\"ok\",\"done\":true}\n")
	})

	_, err := Collect(client.Stream(context.Background(), `say "hi" to C:\dir`, "pookie"))
	require.NoError(t, err)
	assert.Equal(t, "role: user, content: \"say \"hi\" to C:\\dir\"\n", <-prompts)
}

func TestOllamaStreamSkipsEmptyAndNonResponseLines(t *testing.T) {
	t.Parallel()

	client := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "\n{\"response\":\"Hel\"}\n\n{\"model\":\"x\"}\n{\"response\":\"lo\"}\n{\"response\":\"\",\"done\":true}\n")
	})

	got := drain(client.Stream(context.Background(), "hi", "default"))
	assert.Equal(t, []string{"Hel", "lo"}, texts(got))
}

func TestOllamaStreamHandlesPartialWrites(t *testing.T) {
	t.Parallel()

	client := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Error("response writer does not flush")
			return
		}
		for _, part := range []string{"{\"resp", "onse\":\"A\"}\n{\"response\"", ":\"B\"}", "\n"} {
			fmt.Fprint(w, part)
			flusher.Flush()
			time.Sleep(5 * time.Millisecond)
		}
	})

	got := drain(client.Stream(context.Background(), "hi", "default"))
	assert.Equal(t, []string{"A", "B"}, texts(got))
}

func TestOllamaStreamNonOKStatus(t *testing.T) {
	t.Parallel()

	client := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	})

	got := drain(client.Stream(context.Background(), "hi", "default"))

	require.Len(t, got, 1)
	assert.Contains(t, got[0].Text, "Sorry, I encountered an error")
	assert.Contains(t, got[0].Text, "500")
	assert.NotContains(t, got[0].Text, "model not loaded")

	var statusErr *StatusError
	require.ErrorAs(t, got[0].Err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.Code)
	assert.ErrorIs(t, got[0].Err, ErrUpstreamStatus)
}

func TestOllamaStreamDecodeErrorIsTerminal(t *testing.T) {
	t.Parallel()

	client := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "{\"response\":\"A\"}\nnot json\n{\"response\":\"B\"}\n")
	})

	got := drain(client.Stream(context.Background(), "hi", "default"))

	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Text)
	assert.NoError(t, got[0].Err)
	assert.Error(t, got[1].Err)
	assert.True(t, strings.HasPrefix(got[1].Text, "Sorry, I encountered an error"))
}

func TestOllamaStreamUpstreamErrorField(t *testing.T) {
	t.Parallel()

	client := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "{\"response\":\"A\"}\n{\"error\":\"out of memory\"}\n")
	})

	text, err := Collect(client.Stream(context.Background(), "hi", "default"))
	assert.Equal(t, "A", text)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of memory")
}

func TestOllamaStreamConnectionRefused(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewOllama(config.OllamaConfig{URL: url, Model: "m", Timeout: time.Second}, testPrompts, logger.Discard())
	got := drain(client.Stream(context.Background(), "hi", "default"))

	require.Len(t, got, 1)
	assert.Error(t, got[0].Err)
	assert.Equal(t, "Sorry, I encountered an error: the response stream was interrupted", got[0].Text)
}

func TestOllamaStreamStopsOnCancel(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	client := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for i := 0; i < 100; i++ {
			fmt.Fprintf(w, "{\"response\":\"%d\"}\n", i)
			flusher.Flush()
		}
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	stream := client.Stream(ctx, "hi", "default")

	first := <-stream
	assert.Equal(t, "0", first.Text)
	cancel()

	done := make(chan struct{})
	go func() {
		for range stream {
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream was not closed after cancellation")
	}
}

func TestCollect(t *testing.T) {
	t.Parallel()

	ch := make(chan Fragment, 3)
	ch <- Fragment{Text: "a"}
	ch <- Fragment{Text: "b"}
	ch <- Fragment{Text: "oops", Err: errors.New("boom")}
	close(ch)

	text, err := Collect(ch)
	assert.Equal(t, "ab", text)
	assert.EqualError(t, err, "boom")
}
