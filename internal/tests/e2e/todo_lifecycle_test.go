package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/listkeep/apiserver/config"
	"github.com/listkeep/apiserver/internal/server"
	"github.com/listkeep/apiserver/types"
)

func startServer(t *testing.T) string {
	t.Helper()
	srv, err := server.New(context.Background(), config.Config{
		DataDir:       t.TempDir(),
		SessionSecret: "e2e-secret",
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts.URL
}

func TestTodoLifecycle(t *testing.T) {
	baseURL := startServer(t)

	// register("alice","secret1") -> 201
	status, _ := request(t, http.MethodPost, baseURL+"/api/auth/register", "",
		map[string]string{"username": "alice", "password": "secret1"})
	if status != http.StatusCreated {
		t.Fatalf("register returned %d", status)
	}

	// login -> 200 with token
	var login struct {
		Token    string `json:"token"`
		Username string `json:"username"`
	}
	status, body := request(t, http.MethodPost, baseURL+"/api/auth/login", "",
		map[string]string{"username": "alice", "password": "secret1"})
	if status != http.StatusOK {
		t.Fatalf("login returned %d: %s", status, body)
	}
	mustDecode(t, body, &login)
	if login.Token == "" || login.Username != "alice" {
		t.Fatalf("unexpected login response: %+v", login)
	}
	token := login.Token

	// verify accepts the token
	status, body = request(t, http.MethodGet, baseURL+"/api/auth/verify", token, nil)
	if status != http.StatusOK {
		t.Fatalf("verify returned %d: %s", status, body)
	}

	// POST /api/todos {text:"buy milk"} -> 201, completed=false
	var created types.Todo
	status, body = request(t, http.MethodPost, baseURL+"/api/todos", token,
		map[string]string{"text": "buy milk"})
	if status != http.StatusCreated {
		t.Fatalf("create returned %d: %s", status, body)
	}
	mustDecode(t, body, &created)
	if created.Text != "buy milk" || created.Completed {
		t.Fatalf("unexpected created todo: %+v", created)
	}

	// PUT /api/todos/:id {completed:true} -> 200 completed=true
	var updated types.Todo
	status, body = request(t, http.MethodPut,
		fmt.Sprintf("%s/api/todos/%d", baseURL, created.ID), token,
		map[string]bool{"completed": true})
	if status != http.StatusOK {
		t.Fatalf("update returned %d: %s", status, body)
	}
	mustDecode(t, body, &updated)
	if !updated.Completed {
		t.Fatal("expected completed=true")
	}

	// DELETE /api/todos/clear-completed -> clearedCount=1
	var cleared struct {
		ClearedCount int `json:"clearedCount"`
	}
	status, body = request(t, http.MethodDelete, baseURL+"/api/todos/clear-completed", token, nil)
	if status != http.StatusOK {
		t.Fatalf("clear returned %d: %s", status, body)
	}
	mustDecode(t, body, &cleared)
	if cleared.ClearedCount != 1 {
		t.Fatalf("expected clearedCount=1, got %d", cleared.ClearedCount)
	}

	// GET /api/todos -> []
	var todos []types.Todo
	status, body = request(t, http.MethodGet, baseURL+"/api/todos", token, nil)
	if status != http.StatusOK {
		t.Fatalf("list returned %d: %s", status, body)
	}
	mustDecode(t, body, &todos)
	if len(todos) != 0 {
		t.Fatalf("expected empty list, got %+v", todos)
	}

	// logout, then both verify and task routes reject the token
	status, _ = request(t, http.MethodPost, baseURL+"/api/auth/logout", token, nil)
	if status != http.StatusOK {
		t.Fatalf("logout returned %d", status)
	}
	status, _ = request(t, http.MethodGet, baseURL+"/api/auth/verify", token, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("verify after logout returned %d", status)
	}
	status, _ = request(t, http.MethodGet, baseURL+"/api/todos", token, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("todos after logout returned %d", status)
	}
}

func TestCORSPreflight(t *testing.T) {
	baseURL := startServer(t)

	req, err := http.NewRequest(http.MethodOptions, baseURL+"/api/todos", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type, Authorization")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("preflight returned %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow-origin = %q", got)
	}
}

func TestTaskRoutesRejectMissingToken(t *testing.T) {
	baseURL := startServer(t)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/todos"},
		{http.MethodPost, "/api/todos"},
		{http.MethodPut, "/api/todos/1"},
		{http.MethodDelete, "/api/todos/1"},
		{http.MethodDelete, "/api/todos/clear-completed"},
	}
	for _, route := range routes {
		status, _ := request(t, route.method, baseURL+route.path, "", nil)
		if status != http.StatusUnauthorized {
			t.Fatalf("%s %s returned %d, want 401", route.method, route.path, status)
		}
	}
}

func request(t *testing.T, method, url, token string, body any) (int, []byte) {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, data
}

func mustDecode(t *testing.T, data []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode %q: %v", data, err)
	}
}
