package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestTodoRepo(t *testing.T) (*TodoRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "todos.json")
	return NewTodoRepository(path), path
}

func TestListForNewUserIsEmptyNotError(t *testing.T) {
	repo, _ := newTestTodoRepo(t)

	todos, err := repo.ListByUser(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if todos == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(todos) != 0 {
		t.Fatalf("expected no todos, got %d", len(todos))
	}
}

func TestCreateThenList(t *testing.T) {
	repo, _ := newTestTodoRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, "alice", "buy milk", false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected an assigned id")
	}
	if created.Completed {
		t.Fatal("expected completed=false")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps to be set")
	}

	todos, err := repo.ListByUser(ctx, "alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(todos) != 1 {
		t.Fatalf("expected 1 todo, got %d", len(todos))
	}
	if todos[0].ID != created.ID || todos[0].Text != "buy milk" {
		t.Fatalf("unexpected todo: %+v", todos[0])
	}
}

func TestCreateRejectsEmptyText(t *testing.T) {
	repo, _ := newTestTodoRepo(t)

	if _, err := repo.Create(context.Background(), "alice", "   ", false); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCreateTrimsText(t *testing.T) {
	repo, _ := newTestTodoRepo(t)

	created, err := repo.Create(context.Background(), "alice", "  buy milk  ", false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Text != "buy milk" {
		t.Fatalf("expected trimmed text, got %q", created.Text)
	}
}

func TestIDsAreUniquePerUser(t *testing.T) {
	repo, _ := newTestTodoRepo(t)
	ctx := context.Background()

	// Rapid-fire creates can land in the same millisecond.
	seen := make(map[int64]bool)
	for i := 0; i < 20; i++ {
		todo, err := repo.Create(ctx, "alice", "task", false)
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if seen[todo.ID] {
			t.Fatalf("duplicate id %d", todo.ID)
		}
		seen[todo.ID] = true
	}
}

func TestListsAreIsolatedPerUser(t *testing.T) {
	repo, _ := newTestTodoRepo(t)
	ctx := context.Background()

	if _, err := repo.Create(ctx, "alice", "alice task", false); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.Create(ctx, "bob", "bob task", false); err != nil {
		t.Fatalf("create: %v", err)
	}

	aliceTodos, err := repo.ListByUser(ctx, "alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(aliceTodos) != 1 || aliceTodos[0].Text != "alice task" {
		t.Fatalf("unexpected alice todos: %+v", aliceTodos)
	}

	bobTodos, err := repo.ListByUser(ctx, "bob")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(bobTodos) != 1 || bobTodos[0].Text != "bob task" {
		t.Fatalf("unexpected bob todos: %+v", bobTodos)
	}
}

func TestUpdateAppliesOnlyPresentFields(t *testing.T) {
	repo, _ := newTestTodoRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, "alice", "original", false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	completed := true
	updated, err := repo.Update(ctx, "alice", created.ID, TodoPatch{Completed: &completed})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.Completed {
		t.Fatal("expected completed=true")
	}
	if updated.Text != "original" {
		t.Fatalf("text should be unchanged, got %q", updated.Text)
	}

	text := "edited"
	updated2, err := repo.Update(ctx, "alice", created.ID, TodoPatch{Text: &text})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated2.Text != "edited" {
		t.Fatalf("expected edited text, got %q", updated2.Text)
	}
	if !updated2.Completed {
		t.Fatal("completed should be unchanged")
	}
}

func TestUpdatedAtIsMonotonic(t *testing.T) {
	repo, _ := newTestTodoRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, "alice", "task", false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	prev := created.UpdatedAt
	for i := 0; i < 3; i++ {
		completed := i%2 == 0
		updated, err := repo.Update(ctx, "alice", created.ID, TodoPatch{Completed: &completed})
		if err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
		if updated.UpdatedAt.Before(prev) {
			t.Fatalf("updatedAt went backwards: %v -> %v", prev, updated.UpdatedAt)
		}
		prev = updated.UpdatedAt
	}
}

func TestUpdateUnknownIDReturnsNotFound(t *testing.T) {
	repo, _ := newTestTodoRepo(t)

	text := "x"
	if _, err := repo.Update(context.Background(), "alice", 42, TodoPatch{Text: &text}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateCannotCrossUsers(t *testing.T) {
	repo, _ := newTestTodoRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, "alice", "alice task", false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	completed := true
	if _, err := repo.Update(ctx, "bob", created.ID, TodoPatch{Completed: &completed}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other user, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo, _ := newTestTodoRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, "alice", "task", false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := repo.Delete(ctx, "alice", created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, "alice", created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}

	todos, err := repo.ListByUser(ctx, "alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(todos) != 0 {
		t.Fatalf("expected empty list, got %d", len(todos))
	}
}

func TestClearCompletedCountsExactly(t *testing.T) {
	repo, _ := newTestTodoRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := repo.Create(ctx, "alice", "done task", true); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	for i := 0; i < 2; i++ {
		if _, err := repo.Create(ctx, "alice", "active task", false); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	cleared, err := repo.ClearCompleted(ctx, "alice")
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if cleared != 3 {
		t.Fatalf("expected 3 cleared, got %d", cleared)
	}

	cleared, err = repo.ClearCompleted(ctx, "alice")
	if err != nil {
		t.Fatalf("second clear: %v", err)
	}
	if cleared != 0 {
		t.Fatalf("expected 0 cleared, got %d", cleared)
	}

	todos, err := repo.ListByUser(ctx, "alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(todos) != 2 {
		t.Fatalf("expected 2 remaining, got %d", len(todos))
	}
}

func TestOrderSurvivesPersistenceRoundTrip(t *testing.T) {
	repo, path := newTestTodoRepo(t)
	ctx := context.Background()

	texts := []string{"first", "second", "third", "fourth"}
	for _, text := range texts {
		if _, err := repo.Create(ctx, "alice", text, false); err != nil {
			t.Fatalf("create %q: %v", text, err)
		}
	}

	before, err := repo.ListByUser(ctx, "alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	// A fresh repository over the same file must see the identical list.
	reloaded := NewTodoRepository(path)
	after, err := reloaded.ListByUser(ctx, "alice")
	if err != nil {
		t.Fatalf("list after reload: %v", err)
	}

	beforeJSON, err := json.Marshal(before)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	afterJSON, err := json.Marshal(after)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(beforeJSON) != string(afterJSON) {
		t.Fatalf("round-trip mismatch:\n%s\n%s", beforeJSON, afterJSON)
	}

	for i, text := range texts {
		if after[i].Text != text {
			t.Fatalf("order not preserved at %d: got %q want %q", i, after[i].Text, text)
		}
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	repo, path := newTestTodoRepo(t)

	if _, err := repo.Create(context.Background(), "alice", "task", false); err != nil {
		t.Fatalf("create: %v", err)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, entry := range entries {
		if entry.Name() != filepath.Base(path) {
			t.Fatalf("unexpected leftover file %q", entry.Name())
		}
	}
}

func TestProvisionCreatesEmptyListOnce(t *testing.T) {
	repo, _ := newTestTodoRepo(t)
	ctx := context.Background()

	if err := repo.Provision(ctx, "alice"); err != nil {
		t.Fatalf("provision: %v", err)
	}
	if _, err := repo.Create(ctx, "alice", "task", false); err != nil {
		t.Fatalf("create: %v", err)
	}
	// Provisioning again must not wipe the existing list.
	if err := repo.Provision(ctx, "alice"); err != nil {
		t.Fatalf("second provision: %v", err)
	}

	todos, err := repo.ListByUser(ctx, "alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(todos) != 1 {
		t.Fatalf("expected 1 todo after re-provision, got %d", len(todos))
	}
}
