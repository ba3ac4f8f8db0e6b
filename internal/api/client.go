// Package api is the HTTP client for the remote task server.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrConflict means the server already has a task with that id (409)
	ErrConflict = errors.New("task already exists on server")
	// ErrNotFound means the server has no task with that id (404)
	ErrNotFound = errors.New("task not found on server")
)

// StatusError is a non-success HTTP response
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, body)
}

// Is lets errors.Is match 409 and 404 against the sentinels
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrConflict:
		return e.Code == http.StatusConflict
	case ErrNotFound:
		return e.Code == http.StatusNotFound
	}
	return false
}

// TokenSource supplies the bearer credential, empty when signed out
type TokenSource interface {
	Token() string
}

// Client talks to the task server
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

// NewClient creates a client for baseURL. tokens may be nil.
func NewClient(baseURL string, tokens TokenSource, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the server address
func (c *Client) BaseURL() string {
	return c.baseURL
}

// List returns every task on the server
func (c *Client) List(ctx context.Context) ([]TaskDto, error) {
	var tasks []TaskDto
	if _, err := c.do(ctx, http.MethodGet, "/tasks", nil, &tasks); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// ListSince returns tasks updated at or after since. The zero time lists all.
func (c *Client) ListSince(ctx context.Context, since time.Time) ([]TaskDto, error) {
	if since.IsZero() {
		return c.List(ctx)
	}

	query := url.Values{"since": {FormatTime(since)}}
	var tasks []TaskDto
	if _, err := c.do(ctx, http.MethodGet, "/tasks?"+query.Encode(), nil, &tasks); err != nil {
		return nil, fmt.Errorf("list tasks since %s: %w", FormatTime(since), err)
	}
	return tasks, nil
}

// Create posts a new task. A nil result means the server sent no body.
func (c *Client) Create(ctx context.Context, task TaskDto) (*TaskDto, error) {
	var created TaskDto
	ok, err := c.do(ctx, http.MethodPost, "/tasks", task, &created)
	if err != nil {
		return nil, fmt.Errorf("create task %s: %w", task.ID, err)
	}
	if !ok {
		return nil, nil
	}
	return &created, nil
}

// Update replaces the task with id. A nil result means the server sent no body.
func (c *Client) Update(ctx context.Context, id string, task TaskDto) (*TaskDto, error) {
	var updated TaskDto
	ok, err := c.do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(id), task, &updated)
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", id, err)
	}
	if !ok {
		return nil, nil
	}
	return &updated, nil
}

// Login exchanges an email for a credential
func (c *Client) Login(ctx context.Context, email string) (*LoginResponse, error) {
	var resp LoginResponse
	ok, err := c.do(ctx, http.MethodPost, "/auth/login", LoginRequest{Email: email}, &resp)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	if !ok || resp.Token == "" {
		return nil, errors.New("login failed: server issued no token")
	}
	return &resp, nil
}

// Health checks that the server is reachable
func (c *Client) Health(ctx context.Context) error {
	if _, err := c.do(ctx, http.MethodGet, "/health", nil, nil); err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	return nil
}

// do sends a JSON request and decodes a JSON response into out. It reports
// false when the response had no body.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (bool, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to connect: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, &StatusError{Code: resp.StatusCode, Body: string(respBody)}
	}

	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(respBody)) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}
	return true, nil
}
