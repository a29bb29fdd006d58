package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/listkeep/apiserver/internal/services"
	"github.com/listkeep/apiserver/internal/store"
)

// TodoHandler provides HTTP handlers for a user's todo list. Every route is
// guarded by the auth middleware, so the username is always in context.
type TodoHandler struct {
	todoService *services.TodoService
}

// NewTodoHandler constructs a handler with the provided service.
func NewTodoHandler(todoService *services.TodoService) *TodoHandler {
	return &TodoHandler{todoService: todoService}
}

// TodoRouter registers todo routes on the given router.
func TodoRouter(r chi.Router, todoService *services.TodoService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewTodoHandler(todoService)

	r.Use(authMiddleware)
	r.Get("/", handler.ListTodos)
	r.Post("/", handler.CreateTodo)
	r.Delete("/clear-completed", handler.ClearCompleted)
	r.Route("/{todoID}", func(r chi.Router) {
		r.Put("/", handler.UpdateTodo)
		r.Delete("/", handler.DeleteTodo)
	})
}

func (h *TodoHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	username, err := usernameFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	todos, err := h.todoService.List(r.Context(), username)
	if err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "failed to list todos", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, todos)
}

func (h *TodoHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	username, err := usernameFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	todo, err := h.todoService.Add(r.Context(), username, req.Text, req.Completed)
	if err != nil {
		if errors.Is(err, store.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "text is required")
			return
		}
		writeErrorDetails(w, http.StatusInternalServerError, "failed to create todo", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, todo)
}

func (h *TodoHandler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	username, err := usernameFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseTodoID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid todo id")
		return
	}

	var req UpdateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	todo, err := h.todoService.Update(r.Context(), username, id, store.TodoPatch{
		Text:      req.Text,
		Completed: req.Completed,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "todo not found")
		case errors.Is(err, store.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "text must not be empty")
		default:
			writeErrorDetails(w, http.StatusInternalServerError, "failed to update todo", err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

func (h *TodoHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	username, err := usernameFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseTodoID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid todo id")
		return
	}

	if err := h.todoService.Remove(r.Context(), username, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "todo not found")
			return
		}
		writeErrorDetails(w, http.StatusInternalServerError, "failed to delete todo", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "todo deleted"})
}

func (h *TodoHandler) ClearCompleted(w http.ResponseWriter, r *http.Request) {
	username, err := usernameFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	cleared, err := h.todoService.ClearCompleted(r.Context(), username)
	if err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "failed to clear completed todos", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ClearCompletedResponse{
		Message:      "completed todos cleared",
		ClearedCount: cleared,
	})
}

type CreateTodoRequest struct {
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

type UpdateTodoRequest struct {
	Text      *string `json:"text"`
	Completed *bool   `json:"completed"`
}

type ClearCompletedResponse struct {
	Message      string `json:"message"`
	ClearedCount int    `json:"clearedCount"`
}

func parseTodoID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "todoID"), 10, 64)
}
