// Package client implements the synchronizing front-end half of the system:
// an HTTP API client, a local shadow cache, and a controller that applies
// every mutation optimistically when the server cannot be reached.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/listkeep/apiserver/types"
)

// ErrUnauthorized reports that the server rejected the session token. The
// controller treats it as total auth loss, never as a retryable failure.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-auth error response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Client is a thin typed wrapper over the HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// SetToken installs the bearer token attached to subsequent requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) Register(ctx context.Context, username, password string) error {
	body := map[string]string{"username": username, "password": password}
	return c.do(ctx, http.MethodPost, "/api/auth/register", body, nil)
}

func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	body := map[string]string{"username": username, "password": password}
	var resp struct {
		Token    string `json:"token"`
		Username string `json:"username"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &resp); err != nil {
		return "", err
	}
	c.token = resp.Token
	return resp.Token, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

func (c *Client) Verify(ctx context.Context) (string, error) {
	var resp struct {
		Username string `json:"username"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/verify", nil, &resp); err != nil {
		return "", err
	}
	return resp.Username, nil
}

func (c *Client) ListTodos(ctx context.Context) ([]types.Todo, error) {
	var todos []types.Todo
	if err := c.do(ctx, http.MethodGet, "/api/todos", nil, &todos); err != nil {
		return nil, err
	}
	if todos == nil {
		todos = []types.Todo{}
	}
	return todos, nil
}

func (c *Client) CreateTodo(ctx context.Context, text string, completed bool) (types.Todo, error) {
	body := map[string]any{"text": text, "completed": completed}
	var todo types.Todo
	if err := c.do(ctx, http.MethodPost, "/api/todos", body, &todo); err != nil {
		return types.Todo{}, err
	}
	return todo, nil
}

// UpdateTodo sends a partial update; nil fields are omitted from the request.
func (c *Client) UpdateTodo(ctx context.Context, id int64, text *string, completed *bool) (types.Todo, error) {
	body := map[string]any{}
	if text != nil {
		body["text"] = *text
	}
	if completed != nil {
		body["completed"] = *completed
	}
	var todo types.Todo
	path := fmt.Sprintf("/api/todos/%d", id)
	if err := c.do(ctx, http.MethodPut, path, body, &todo); err != nil {
		return types.Todo{}, err
	}
	return todo, nil
}

func (c *Client) DeleteTodo(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/todos/%d", id), nil, nil)
}

func (c *Client) ClearCompleted(ctx context.Context) (int, error) {
	var resp struct {
		ClearedCount int `json:"clearedCount"`
	}
	if err := c.do(ctx, http.MethodDelete, "/api/todos/clear-completed", nil, &resp); err != nil {
		return 0, err
	}
	return resp.ClearedCount, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport-level failure: the server never answered.
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &APIError{Status: resp.StatusCode, Message: apiErr.Error}
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
