// Package todo reads task lists from Microsoft To Do through the Graph API
// and formats them into the daily digest.
package todo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

const (
	maxErrorBody = 512
	maxPages     = 20
)

// ErrUpstreamStatus is matched by every StatusError.
var ErrUpstreamStatus = errors.New("graph returned non-success status")

// StatusError reports a non-200 reply from the Graph API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("graph: HTTP %d: %s", e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrUpstreamStatus }

// TaskList is a Microsoft To Do list.
type TaskList struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Task is a single To Do item.
type Task struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

// HTTPClientSource hands out an authenticated HTTP client.
type HTTPClientSource interface {
	HTTPClient(ctx context.Context) (*http.Client, error)
}

// Client queries the To Do endpoints of the Graph API.
type Client struct {
	baseURL string
	source  HTTPClientSource
	log     *slog.Logger
}

// NewClient creates a Graph client rooted at graphURL
// (for example "https://graph.microsoft.com/v1.0").
func NewClient(graphURL string, source HTTPClientSource, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(graphURL, "/"),
		source:  source,
		log:     log.With("component", "graph_client"),
	}
}

type page[T any] struct {
	Value    []T    `json:"value"`
	NextLink string `json:"@odata.nextLink"`
}

// Lists returns every task list of the signed-in user.
func (c *Client) Lists(ctx context.Context) ([]TaskList, error) {
	return getAll[TaskList](ctx, c, c.baseURL+"/me/todo/lists")
}

// Tasks returns the tasks of listID that are not completed.
func (c *Client) Tasks(ctx context.Context, listID string) ([]Task, error) {
	q := url.Values{}
	q.Set("$filter", "status ne 'completed'")
	endpoint := fmt.Sprintf("%s/me/todo/lists/%s/tasks?%s", c.baseURL, url.PathEscape(listID), q.Encode())
	return getAll[Task](ctx, c, endpoint)
}

func getAll[T any](ctx context.Context, c *Client, endpoint string) ([]T, error) {
	httpClient, err := c.source.HTTPClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("graph: authenticate: %w", err)
	}

	var items []T
	for i := 0; endpoint != "" && i < maxPages; i++ {
		var p page[T]
		if err := getJSON(ctx, httpClient, endpoint, &p); err != nil {
			return nil, err
		}
		items = append(items, p.Value...)
		endpoint = p.NextLink
	}

	c.log.DebugContext(ctx, "Fetched Graph collection", "items", len(items))
	return items, nil
}

func getJSON(ctx context.Context, httpClient *http.Client, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("graph: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graph: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("graph: decode response: %w", err)
	}
	return nil
}

// FormatDigest renders the digest: the header line, then "- <list>" per list,
// with the open tasks of each list indented beneath it when tasks has an
// entry for the list ID.
func FormatDigest(header string, lists []TaskList, tasks map[string][]Task) string {
	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("\n")
	for _, l := range lists {
		sb.WriteString("- ")
		sb.WriteString(l.DisplayName)
		sb.WriteString("\n")
		for _, t := range tasks[l.ID] {
			sb.WriteString("  • ")
			sb.WriteString(t.Title)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
