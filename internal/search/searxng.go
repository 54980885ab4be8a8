// Package search queries a SearXNG instance and reduces its JSON response to
// a compact summary suitable for an LLM prompt.
package search

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/orbie-bot/orbie/internal/config"
)

const maxErrorBody = 512

// ErrUpstreamStatus is matched by every StatusError.
var ErrUpstreamStatus = errors.New("search backend returned non-success status")

// StatusError reports a non-200 reply from SearXNG.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("searxng: HTTP %d: %s", e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrUpstreamStatus }

// Searcher runs a web search.
type Searcher interface {
	Search(ctx context.Context, query string) (*Summary, error)
}

// Result keeps the fields of a SearXNG result worth sending to the model.
type Result struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Summary is the reduced search response.
type Summary struct {
	Query   string
	Results []Result
}

// String renders the summary as "Query: ...\nResults: [...]".
func (s *Summary) String() string {
	results := s.Results
	if results == nil {
		results = []Result{}
	}
	encoded, err := json.Marshal(results)
	if err != nil {
		encoded = []byte("[]")
	}
	return fmt.Sprintf("Query: %s\nResults: %s", s.Query, encoded)
}

// SearXNG implements Searcher for a SearXNG instance.
type SearXNG struct {
	endpoint   string
	numResults int
	httpClient *http.Client
	log        *slog.Logger
}

type searxngResponse struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
}

// NewSearXNG creates a client for the search endpoint in cfg (for example
// "http://localhost:8080/search").
func NewSearXNG(cfg config.SearchConfig, log *slog.Logger) *SearXNG {
	if log == nil {
		log = slog.Default()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // self-hosted instances commonly use self-signed certs
	}

	numResults := cfg.NumResults
	if numResults <= 0 {
		numResults = config.DefaultSearchNumResults
	}

	return &SearXNG{
		endpoint:   cfg.URL,
		numResults: numResults,
		httpClient: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		log:        log.With("component", "searxng_client"),
	}
}

// Search runs query and keeps at most the configured number of results.
func (s *SearXNG) Search(ctx context.Context, query string) (*Summary, error) {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("searxng: parse endpoint: %w", err)
	}
	params := u.Query()
	params.Set("q", query)
	params.Set("format", "json")
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("searxng: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searxng: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var sr searxngResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("searxng: decode response: %w", err)
	}

	results := sr.Results
	if len(results) > s.numResults {
		results = results[:s.numResults]
	}

	queryText := sr.Query
	if queryText == "" {
		queryText = query
	}

	s.log.DebugContext(ctx, "Search completed", "returned", len(sr.Results), "kept", len(results))
	return &Summary{Query: queryText, Results: results}, nil
}
