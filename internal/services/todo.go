package services

import (
	"context"

	"github.com/listkeep/apiserver/internal/store"
	"github.com/listkeep/apiserver/types"
)

// TodoRepository defines persistence operations for per-user todo lists.
type TodoRepository interface {
	ListByUser(ctx context.Context, username string) ([]types.Todo, error)
	Provision(ctx context.Context, username string) error
	Create(ctx context.Context, username, text string, completed bool) (types.Todo, error)
	Update(ctx context.Context, username string, id int64, patch store.TodoPatch) (types.Todo, error)
	Delete(ctx context.Context, username string, id int64) error
	ClearCompleted(ctx context.Context, username string) (int, error)
}

// TodoService encapsulates todo use-cases, all scoped to one user key.
type TodoService struct {
	repo TodoRepository
}

func NewTodoService(repo TodoRepository) *TodoService {
	return &TodoService{repo: repo}
}

func (s *TodoService) List(ctx context.Context, username string) ([]types.Todo, error) {
	return s.repo.ListByUser(ctx, username)
}

func (s *TodoService) Add(ctx context.Context, username, text string, completed bool) (types.Todo, error) {
	return s.repo.Create(ctx, username, text, completed)
}

func (s *TodoService) Update(ctx context.Context, username string, id int64, patch store.TodoPatch) (types.Todo, error) {
	return s.repo.Update(ctx, username, id, patch)
}

func (s *TodoService) Remove(ctx context.Context, username string, id int64) error {
	return s.repo.Delete(ctx, username, id)
}

func (s *TodoService) ClearCompleted(ctx context.Context, username string) (int, error) {
	return s.repo.ClearCompleted(ctx, username)
}
