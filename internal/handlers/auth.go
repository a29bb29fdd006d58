package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/listkeep/apiserver/internal/services"
	"github.com/listkeep/apiserver/internal/store"
)

// AuthHandler provides session authentication endpoints.
type AuthHandler struct {
	userService *services.UserService
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService) *AuthHandler {
	return &AuthHandler{userService: userService}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, userService *services.UserService) {
	handler := NewAuthHandler(userService)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.Post("/logout", handler.Logout)
	r.With(handler.RequireAuth).Get("/verify", handler.Verify)
}

// RequireAuth enforces bearer-token authentication and injects the resolved
// username into the request context.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "missing authentication token")
			return
		}

		user, err := h.userService.ResolveToken(r.Context(), token)
		if err != nil {
			if errors.Is(err, store.ErrNoSuchSession) {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			writeErrorDetails(w, http.StatusInternalServerError, "failed to resolve session", err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), contextUsernameKey, user.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Register creates a new account with an empty todo list.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "empty request body")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	_, err := h.userService.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "username and password are required")
		case errors.Is(err, store.ErrDuplicateUser):
			writeError(w, http.StatusBadRequest, "username already exists")
		default:
			writeErrorDetails(w, http.StatusInternalServerError, "failed to register", err.Error())
		}
		return
	}

	writeJSON(w, http.StatusCreated, MessageResponse{Message: "registered"})
}

// Login verifies credentials and returns a fresh session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	user, err := h.userService.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid username or password")
			return
		}
		writeErrorDetails(w, http.StatusInternalServerError, "failed to authenticate", err.Error())
		return
	}

	token, err := h.userService.IssueToken(r.Context(), user.Username)
	if err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "failed to create session", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{Token: token, Username: user.Username})
}

// Logout revokes the presented token. It always reports success, even when
// the token is missing or unknown.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, err := bearerToken(r); err == nil {
		_ = h.userService.RevokeToken(r.Context(), token)
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "logged out"})
}

// Verify reports the identity behind a valid token.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	username, err := usernameFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, VerifyResponse{Username: username})
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

type VerifyResponse struct {
	Username string `json:"username"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
