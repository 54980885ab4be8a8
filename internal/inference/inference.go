// Package inference talks to the LLM backends: a local Ollama endpoint that
// streams newline-delimited JSON, and a cloud endpoint (Groq or Gemini) that
// answers single-shot requests.
package inference

import (
	"context"
	"errors"
	"fmt"
)

// ErrUpstreamStatus is matched by every StatusError.
var ErrUpstreamStatus = errors.New("upstream returned non-success status")

// StatusError reports a non-success HTTP status from a backend.
type StatusError struct {
	Backend string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: HTTP %d", e.Backend, e.Code)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Backend, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrUpstreamStatus }

// PromptSource resolves named system prompts.
type PromptSource interface {
	Load(name string) (string, error)
}

// Completer is a single-shot inference backend.
type Completer interface {
	// Chat answers message using the named system prompt as the system turn.
	Chat(ctx context.Context, message, promptName string) (string, error)
	// Search answers message with the search model, prepending the
	// search prompt to the user turn.
	Search(ctx context.Context, message string) (string, error)
}

// Streamer is a backend that produces a response incrementally.
type Streamer interface {
	Stream(ctx context.Context, message, promptName string) <-chan Fragment
}

// SearchPromptName is the prompt used by Completer.Search.
const SearchPromptName = "search"

func searchMessage(prompts PromptSource, message string) (string, error) {
	system, err := prompts.Load(SearchPromptName)
	if err != nil {
		return "", err
	}
	return system + " " + message, nil
}
