package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/listkeep/apiserver/types"
)

// TodoPatch describes a partial update. Nil fields are left unchanged.
type TodoPatch struct {
	Text      *string
	Completed *bool
}

// TodoRepository handles persistence for per-user todo lists. The backing
// store is a single JSON document mapping username to an ordered task array,
// rewritten wholesale on every mutation. List order is insertion order and
// survives round-trips.
type TodoRepository struct {
	path string
	mu   sync.Mutex
}

func NewTodoRepository(path string) *TodoRepository {
	return &TodoRepository{path: path}
}

func (r *TodoRepository) load() (map[string][]types.Todo, error) {
	todos := make(map[string][]types.Todo)
	if err := readDocument(r.path, &todos); err != nil {
		return nil, err
	}
	return todos, nil
}

// ListByUser returns the user's todos in insertion order. A user with no list
// yet gets an empty slice, never an error.
func (r *TodoRepository) ListByUser(ctx context.Context, username string) ([]types.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	todos, err := r.load()
	if err != nil {
		return nil, err
	}
	list := todos[username]
	if list == nil {
		list = []types.Todo{}
	}
	return list, nil
}

// Provision creates an empty list for a new user. Existing lists are left
// untouched.
func (r *TodoRepository) Provision(ctx context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	todos, err := r.load()
	if err != nil {
		return err
	}
	if _, exists := todos[username]; exists {
		return nil
	}
	todos[username] = []types.Todo{}
	return writeDocument(r.path, todos)
}

// Create appends a new todo to the user's list. The id is a millisecond
// timestamp bumped past the user's current maximum so that two creates within
// the same millisecond still get distinct ids.
func (r *TodoRepository) Create(ctx context.Context, username, text string, completed bool) (types.Todo, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return types.Todo{}, ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	todos, err := r.load()
	if err != nil {
		return types.Todo{}, err
	}

	now := time.Now()
	id := now.UnixMilli()
	for _, todo := range todos[username] {
		if todo.ID >= id {
			id = todo.ID + 1
		}
	}

	created := types.Todo{
		ID:        id,
		Text:      text,
		Completed: completed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	todos[username] = append(todos[username], created)
	if err := writeDocument(r.path, todos); err != nil {
		return types.Todo{}, err
	}
	return created, nil
}

// Update applies the non-nil fields of patch to the user's todo with the
// given id and refreshes its updatedAt.
func (r *TodoRepository) Update(ctx context.Context, username string, id int64, patch TodoPatch) (types.Todo, error) {
	if patch.Text != nil {
		trimmed := strings.TrimSpace(*patch.Text)
		if trimmed == "" {
			return types.Todo{}, ErrInvalidInput
		}
		patch.Text = &trimmed
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	todos, err := r.load()
	if err != nil {
		return types.Todo{}, err
	}

	list := todos[username]
	for i := range list {
		if list[i].ID != id {
			continue
		}
		if patch.Text != nil {
			list[i].Text = *patch.Text
		}
		if patch.Completed != nil {
			list[i].Completed = *patch.Completed
		}
		list[i].UpdatedAt = time.Now()
		todos[username] = list
		if err := writeDocument(r.path, todos); err != nil {
			return types.Todo{}, err
		}
		return list[i], nil
	}
	return types.Todo{}, ErrNotFound
}

// Delete removes the user's todo with the given id.
func (r *TodoRepository) Delete(ctx context.Context, username string, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	todos, err := r.load()
	if err != nil {
		return err
	}

	list := todos[username]
	kept := list[:0:0]
	for _, todo := range list {
		if todo.ID != id {
			kept = append(kept, todo)
		}
	}
	if len(kept) == len(list) {
		return ErrNotFound
	}
	todos[username] = kept
	return writeDocument(r.path, todos)
}

// ClearCompleted removes every completed todo for the user and returns the
// number removed. Zero is a valid result, not an error.
func (r *TodoRepository) ClearCompleted(ctx context.Context, username string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	todos, err := r.load()
	if err != nil {
		return 0, err
	}

	list := todos[username]
	kept := make([]types.Todo, 0, len(list))
	for _, todo := range list {
		if !todo.Completed {
			kept = append(kept, todo)
		}
	}
	cleared := len(list) - len(kept)
	if cleared == 0 {
		return 0, nil
	}
	todos[username] = kept
	if err := writeDocument(r.path, todos); err != nil {
		return 0, err
	}
	return cleared, nil
}
