package store

import (
	"context"
	"sync"
	"time"

	"github.com/listkeep/apiserver/types"
)

// UserRepository handles persistence for user accounts. The backing store is
// a single JSON document mapping username to user record, rewritten wholesale
// on every mutation.
type UserRepository struct {
	path string
	mu   sync.Mutex
}

func NewUserRepository(path string) *UserRepository {
	return &UserRepository{path: path}
}

func (r *UserRepository) load() (map[string]types.User, error) {
	users := make(map[string]types.User)
	if err := readDocument(r.path, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return types.User{}, err
	}
	user, ok := users[username]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return user, nil
}

// Create stores a new user record. The username must not already exist.
func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return types.User{}, err
	}
	if _, exists := users[user.Username]; exists {
		return types.User{}, ErrDuplicateUser
	}

	user.CreatedAt = time.Now()
	users[user.Username] = user
	if err := writeDocument(r.path, users); err != nil {
		return types.User{}, err
	}
	return user, nil
}

// SetSessionToken overwrites the user's active token. Passing an empty token
// clears the session.
func (r *UserRepository) SetSessionToken(ctx context.Context, username, token string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return types.User{}, err
	}
	user, ok := users[username]
	if !ok {
		return types.User{}, ErrNotFound
	}

	user.SessionToken = token
	users[username] = user
	if err := writeDocument(r.path, users); err != nil {
		return types.User{}, err
	}
	return user, nil
}
