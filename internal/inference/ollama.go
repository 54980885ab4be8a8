package inference

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/orbie-bot/orbie/internal/config"
)

const (
	maxStreamLine     = 1 << 20
	maxErrorBody      = 512
	errorFragmentText = "Sorry, I encountered an error: %s"
)

// Fragment is one item of a streamed response. The last item of a failed
// stream carries Err and an explanatory Text meant for the end user.
type Fragment struct {
	Text string
	Err  error
}

// Ollama streams completions from an Ollama /api/generate endpoint.
type Ollama struct {
	url        string
	model      string
	timeout    time.Duration
	buffer     int
	prompts    PromptSource
	httpClient *http.Client
	log        *slog.Logger
}

type ollamaRequest struct {
	Model  string `json:"model"`
	System string `json:"system"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaChunk struct {
	Response string `json:"response"`
	Error    string `json:"error"`
	Done     bool   `json:"done"`
}

// NewOllama creates a streaming client for the configured endpoint.
func NewOllama(cfg config.OllamaConfig, prompts PromptSource, log *slog.Logger) *Ollama {
	if log == nil {
		log = slog.Default()
	}
	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = config.DefaultOllamaBuffer
	}
	return &Ollama{
		url:        cfg.URL,
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		buffer:     buffer,
		prompts:    prompts,
		httpClient: &http.Client{},
		log:        log.With("component", "ollama_client"),
	}
}

// Stream sends message to the model and returns a bounded channel of
// fragments. The channel is closed when the upstream connection ends, after
// a single terminal error fragment on failure, or when ctx is cancelled.
// Callers must drain the channel or cancel ctx.
func (o *Ollama) Stream(ctx context.Context, message, promptName string) <-chan Fragment {
	out := make(chan Fragment, o.buffer)

	go func() {
		defer close(out)

		err := o.stream(ctx, message, promptName, out)
		if err == nil || ctx.Err() != nil {
			return
		}
		o.log.WarnContext(ctx, "Ollama stream failed", "error", err)
		emit(ctx, out, Fragment{Text: fmt.Sprintf(errorFragmentText, describe(err)), Err: err})
	}()

	return out
}

func (o *Ollama) stream(ctx context.Context, message, promptName string, out chan<- Fragment) error {
	system, err := o.prompts.Load(promptName)
	if err != nil {
		return err
	}

	body, err := json.Marshal(ollamaRequest{
		Model:  o.model,
		System: system,
		Prompt: fmt.Sprintf("role: user, content: \"%s\"\n", message),
		Stream: true,
	})
	if err != nil {
		return fmt.Errorf("ollama: marshal request: %w", err)
	}

	reqCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, o.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ollama: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Backend: "ollama", Code: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStreamLine)

	count := 0
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var chunk ollamaChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return fmt.Errorf("ollama: decode stream line: %w", err)
		}
		if chunk.Error != "" {
			return fmt.Errorf("ollama: stream error: %s", chunk.Error)
		}
		if chunk.Response == "" {
			continue
		}
		if !emit(ctx, out, Fragment{Text: chunk.Response}) {
			return ctx.Err()
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("ollama: read stream: %w", err)
	}

	o.log.DebugContext(ctx, "Ollama stream finished", "fragments", count)
	return nil
}

// Collect drains a stream. It returns the concatenated text of the
// successful fragments and the error carried by the terminal fragment.
func Collect(stream <-chan Fragment) (string, error) {
	var sb strings.Builder
	var streamErr error
	for f := range stream {
		if f.Err != nil {
			streamErr = f.Err
			continue
		}
		sb.WriteString(f.Text)
	}
	return sb.String(), streamErr
}

func emit(ctx context.Context, out chan<- Fragment, f Fragment) bool {
	select {
	case out <- f:
		return true
	case <-ctx.Done():
		return false
	}
}

// describe turns a stream failure into text safe to show the end user.
func describe(err error) string {
	var statusErr *StatusError
	switch {
	case errors.As(err, &statusErr):
		return fmt.Sprintf("the local model returned HTTP %d", statusErr.Code)
	case errors.Is(err, context.DeadlineExceeded):
		return "the local model took too long to answer"
	default:
		return "the response stream was interrupted"
	}
}

func readErrorBody(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
