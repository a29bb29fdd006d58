package client

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/listkeep/apiserver/types"
)

// Filter selects which todos are visible.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

// Controller owns the client-side application state: the authenticated
// identity, the in-memory todo list, and the active filter. Every mutation
// goes to the server first; when the server cannot be reached the same
// mutation is applied locally so the user never waits on the network, and the
// result is persisted to the shadow cache either way. A 401 from any call is
// treated as total auth loss: stored identity and cache are wiped and the
// caller must return to the login view.
//
// Provisional todos created offline get negative ids so they can never
// collide with server-assigned ones; Sync replays them as fresh creates.
type Controller struct {
	api   *Client
	cache *ShadowCache

	username    string
	token       string
	todos       []types.Todo
	filter      Filter
	nextLocalID int64
}

func NewController(api *Client, cache *ShadowCache) *Controller {
	return &Controller{
		api:    api,
		cache:  cache,
		filter: FilterAll,
		todos:  []types.Todo{},
	}
}

// Restore resumes a previously saved session. It returns true when a stored
// token exists and the server still accepts it. Any verify failure wipes the
// stored identity.
func (c *Controller) Restore(ctx context.Context) (bool, error) {
	session, err := c.cache.LoadSession()
	if err != nil {
		return false, err
	}
	if session.Token == "" || session.Username == "" {
		return false, nil
	}

	c.api.SetToken(session.Token)
	username, err := c.api.Verify(ctx)
	if err != nil {
		c.api.SetToken("")
		_ = c.cache.ClearSession()
		return false, nil
	}

	c.token = session.Token
	c.username = username
	c.loadTodos(ctx)
	return true, nil
}

// Register creates an account. The caller logs in separately.
func (c *Controller) Register(ctx context.Context, username, password string) error {
	return c.api.Register(ctx, username, password)
}

// Login authenticates, stores the session, and loads the todo list — from
// the server when possible, else from the shadow cache.
func (c *Controller) Login(ctx context.Context, username, password string) error {
	token, err := c.api.Login(ctx, username, password)
	if err != nil {
		return err
	}

	c.token = token
	c.username = username
	if err := c.cache.SaveSession(Session{Token: token, Username: username}); err != nil {
		return err
	}

	c.loadTodos(ctx)
	c.Sync(ctx)
	return nil
}

// Logout revokes the session server-side (best effort) and clears the local
// identity. The shadow cache for the user is kept for the next login.
func (c *Controller) Logout(ctx context.Context) {
	_ = c.api.Logout(ctx)
	c.api.SetToken("")
	_ = c.cache.ClearSession()
	c.username = ""
	c.token = ""
	c.todos = []types.Todo{}
}

// Add creates a todo. Offline creates get a provisional negative id.
func (c *Controller) Add(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("text must not be empty")
	}

	todo, err := c.api.CreateTodo(ctx, text, false)
	switch {
	case err == nil:
		c.todos = append(c.todos, todo)
	case errors.Is(err, ErrUnauthorized):
		c.resetAuth()
		return ErrUnauthorized
	default:
		now := time.Now()
		c.nextLocalID--
		c.todos = append(c.todos, types.Todo{
			ID:        c.nextLocalID,
			Text:      text,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	c.saveShadow()
	return nil
}

// Toggle flips a todo's completed state.
func (c *Controller) Toggle(ctx context.Context, id int64) error {
	idx := c.indexOf(id)
	if idx < 0 {
		return errors.New("no such todo")
	}
	completed := !c.todos[idx].Completed
	return c.update(ctx, idx, nil, &completed)
}

// Edit replaces a todo's text.
func (c *Controller) Edit(ctx context.Context, id int64, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("text must not be empty")
	}
	idx := c.indexOf(id)
	if idx < 0 {
		return errors.New("no such todo")
	}
	return c.update(ctx, idx, &text, nil)
}

func (c *Controller) update(ctx context.Context, idx int, text *string, completed *bool) error {
	todo := c.todos[idx]
	updated, err := c.api.UpdateTodo(ctx, todo.ID, text, completed)
	switch {
	case err == nil:
		c.todos[idx] = updated
	case errors.Is(err, ErrUnauthorized):
		c.resetAuth()
		return ErrUnauthorized
	default:
		if text != nil {
			c.todos[idx].Text = *text
		}
		if completed != nil {
			c.todos[idx].Completed = *completed
		}
		c.todos[idx].UpdatedAt = time.Now()
	}
	c.saveShadow()
	return nil
}

// Delete removes a todo.
func (c *Controller) Delete(ctx context.Context, id int64) error {
	idx := c.indexOf(id)
	if idx < 0 {
		return errors.New("no such todo")
	}

	err := c.api.DeleteTodo(ctx, id)
	if errors.Is(err, ErrUnauthorized) {
		c.resetAuth()
		return ErrUnauthorized
	}
	c.todos = append(c.todos[:idx], c.todos[idx+1:]...)
	c.saveShadow()
	return nil
}

// ClearCompleted removes every completed todo.
func (c *Controller) ClearCompleted(ctx context.Context) error {
	_, err := c.api.ClearCompleted(ctx)
	if errors.Is(err, ErrUnauthorized) {
		c.resetAuth()
		return ErrUnauthorized
	}

	kept := make([]types.Todo, 0, len(c.todos))
	for _, todo := range c.todos {
		if !todo.Completed {
			kept = append(kept, todo)
		}
	}
	c.todos = kept
	c.saveShadow()
	return nil
}

// Sync replays offline-created todos to the server and adopts the
// authoritative list. Failures are silent; the next call tries again.
func (c *Controller) Sync(ctx context.Context) {
	if c.username == "" {
		return
	}

	replayed := false
	for _, todo := range c.todos {
		if todo.ID >= 0 {
			continue
		}
		if _, err := c.api.CreateTodo(ctx, todo.Text, todo.Completed); err != nil {
			if errors.Is(err, ErrUnauthorized) {
				c.resetAuth()
			}
			return
		}
		replayed = true
	}

	todos, err := c.api.ListTodos(ctx)
	if err != nil {
		return
	}
	c.todos = todos
	if replayed {
		c.nextLocalID = 0
	}
	c.saveShadow()
}

// SetFilter switches the visible subset. Filter state is client-only.
func (c *Controller) SetFilter(filter Filter) {
	c.filter = filter
}

func (c *Controller) Filter() Filter {
	return c.filter
}

// Visible returns the todos matching the active filter, a pure function of
// {list, filter}.
func (c *Controller) Visible() []types.Todo {
	visible := make([]types.Todo, 0, len(c.todos))
	for _, todo := range c.todos {
		switch c.filter {
		case FilterActive:
			if todo.Completed {
				continue
			}
		case FilterCompleted:
			if !todo.Completed {
				continue
			}
		}
		visible = append(visible, todo)
	}
	return visible
}

// ActiveCount reports how many todos remain uncompleted.
func (c *Controller) ActiveCount() int {
	count := 0
	for _, todo := range c.todos {
		if !todo.Completed {
			count++
		}
	}
	return count
}

func (c *Controller) Todos() []types.Todo {
	return c.todos
}

func (c *Controller) Username() string {
	return c.username
}

func (c *Controller) Authenticated() bool {
	return c.token != ""
}

func (c *Controller) indexOf(id int64) int {
	for i, todo := range c.todos {
		if todo.ID == id {
			return i
		}
	}
	return -1
}

// loadTodos prefers the server copy and falls back to the shadow cache.
func (c *Controller) loadTodos(ctx context.Context) {
	todos, err := c.api.ListTodos(ctx)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			c.resetAuth()
			return
		}
		cached, cacheErr := c.cache.LoadTodos(c.username)
		if cacheErr != nil {
			cached = []types.Todo{}
		}
		c.todos = cached
		c.restoreLocalIDFloor()
		return
	}
	c.todos = todos
	c.saveShadow()
}

// restoreLocalIDFloor keeps new provisional ids below any already cached.
func (c *Controller) restoreLocalIDFloor() {
	c.nextLocalID = 0
	for _, todo := range c.todos {
		if todo.ID < c.nextLocalID {
			c.nextLocalID = todo.ID
		}
	}
}

func (c *Controller) saveShadow() {
	if c.username == "" {
		return
	}
	_ = c.cache.SaveTodos(c.username, c.todos)
}

// resetAuth handles total auth loss: wipe identity, shadow cache, and
// in-memory list so the UI returns to the unauthenticated view.
func (c *Controller) resetAuth() {
	if c.username != "" {
		_ = c.cache.ClearTodos(c.username)
	}
	_ = c.cache.ClearSession()
	c.api.SetToken("")
	c.username = ""
	c.token = ""
	c.todos = []types.Todo{}
}
