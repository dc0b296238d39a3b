package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a hand-written SDK for the scheduler's task CRUD and
// read-only admin HTTP surface, plus a WebSocket client for the live
// event feed. There is no generated-from-OpenAPI variant here: nothing in
// this tree carries an openapi.yaml to generate from, so this talks to
// internal/api/routes.go's handlers directly with the same functional-
// options shape the rest of the corpus uses for client configuration.
type Client struct {
	baseURL string
	opts    *options
	ws      *WebSocketClient
}

// New creates a new Client.
func New(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimSuffix(baseURL, "/")
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Client{baseURL: baseURL, opts: o}
}

// ConnectWebSocket establishes a WebSocket connection for real-time events.
func (c *Client) ConnectWebSocket(ctx context.Context) error {
	if c.ws != nil && c.ws.IsConnected() {
		return nil
	}
	c.ws = newWebSocketClient(c.baseURL, c.opts.apiKey)
	return c.ws.Connect(ctx)
}

// Events returns a channel that receives WebSocket events. Call
// ConnectWebSocket first.
func (c *Client) Events() <-chan *Event {
	if c.ws == nil {
		ch := make(chan *Event)
		close(ch)
		return ch
	}
	return c.ws.Events()
}

// CloseWebSocket closes the WebSocket connection.
func (c *Client) CloseWebSocket() error {
	if c.ws == nil {
		return nil
	}
	return c.ws.Close()
}

// CreateTaskRequest is the wire shape for CreateTask.
type CreateTaskRequest struct {
	Def         json.RawMessage `json:"def"`
	ScheduledAt *time.Time      `json:"scheduled_at,omitempty"`
}

// TaskResponse is the wire shape returned for a task.
type TaskResponse struct {
	ID          string          `json:"id"`
	Def         json.RawMessage `json:"def"`
	WorkerID    *string         `json:"worker_id,omitempty"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	ScheduledAt *time.Time      `json:"scheduled_at,omitempty"`
}

// TaskListResponse is the wire shape for ListTasks.
type TaskListResponse struct {
	Tasks []TaskResponse `json:"tasks"`
	Count int            `json:"count"`
}

// WorkerResponse is the wire shape for a worker row.
type WorkerResponse struct {
	ID          string    `json:"id"`
	LastHeardAt time.Time `json:"last_heard_at"`
}

// HealthResponse is the wire shape for CheckHealth.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Error    string `json:"error,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// CreateTask creates a new task.
func (c *Client) CreateTask(ctx context.Context, req CreateTaskRequest) (*TaskResponse, error) {
	var out TaskResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/tasks", req, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTask retrieves a task by its ID.
func (c *Client) GetTask(ctx context.Context, taskID string) (*TaskResponse, error) {
	var out TaskResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/tasks/"+taskID, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTask deletes a task by its ID.
func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/tasks/"+taskID, nil, http.StatusNoContent, nil)
}

// ListTasks lists tasks, optionally filtered by status.
func (c *Client) ListTasks(ctx context.Context, status string) (*TaskListResponse, error) {
	path := "/api/v1/tasks"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var out TaskListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListWorkers lists every persisted worker.
func (c *Client) ListWorkers(ctx context.Context) ([]WorkerResponse, error) {
	var out struct {
		Workers []WorkerResponse `json:"workers"`
		Count   int              `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/workers", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out.Workers, nil
}

// CheckHealth checks the health of the server. Unlike the other methods,
// it reports an unhealthy server (HTTP 503) as a populated HealthResponse
// rather than an error, since that response body is itself the answer to
// "is it healthy".
func (c *Client) CheckHealth(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/admin/health", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.opts.apiKey != "" {
		req.Header.Set("X-API-Key", c.opts.apiKey)
	}

	resp, err := c.opts.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	var out HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("scheduler client: status %d: %s", e.StatusCode, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, wantStatus int, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.opts.apiKey != "" {
		req.Header.Set("X-API-Key", c.opts.apiKey)
	}
	for k, v := range c.opts.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.opts.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		var apiErr errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Message}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
