package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"github.com/listkeep/apiserver/types"
)

// Session is the locally persisted identity: the bearer token and the
// username it belongs to.
type Session struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// ShadowCache persists the client's local state under one directory: the
// session and a per-username shadow copy of that user's todo list, used when
// the server is unreachable.
type ShadowCache struct {
	dir string
}

func NewShadowCache(dir string) *ShadowCache {
	return &ShadowCache{dir: dir}
}

func (c *ShadowCache) sessionPath() string {
	return filepath.Join(c.dir, "session.json")
}

func (c *ShadowCache) todosPath(username string) string {
	// Usernames may contain path-hostile characters.
	return filepath.Join(c.dir, "todos-"+url.PathEscape(username)+".json")
}

func (c *ShadowCache) LoadSession() (Session, error) {
	var session Session
	if err := c.read(c.sessionPath(), &session); err != nil {
		return Session{}, err
	}
	return session, nil
}

func (c *ShadowCache) SaveSession(session Session) error {
	return c.write(c.sessionPath(), session)
}

func (c *ShadowCache) ClearSession() error {
	if err := os.Remove(c.sessionPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (c *ShadowCache) LoadTodos(username string) ([]types.Todo, error) {
	var todos []types.Todo
	if err := c.read(c.todosPath(username), &todos); err != nil {
		return nil, err
	}
	if todos == nil {
		todos = []types.Todo{}
	}
	return todos, nil
}

func (c *ShadowCache) SaveTodos(username string, todos []types.Todo) error {
	return c.write(c.todosPath(username), todos)
}

func (c *ShadowCache) ClearTodos(username string) error {
	if err := os.Remove(c.todosPath(username)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (c *ShadowCache) read(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func (c *ShadowCache) write(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
