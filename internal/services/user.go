package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/listkeep/apiserver/internal/store"
	"github.com/listkeep/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// UserRepository defines persistence operations for user accounts.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	SetSessionToken(ctx context.Context, username, token string) (types.User, error)
}

// TodoProvisioner creates an empty todo list for a new user.
type TodoProvisioner interface {
	Provision(ctx context.Context, username string) error
}

// UserService encapsulates account and session use-cases: registration,
// credential verification, and bearer-token issue/resolve/revoke.
//
// Tokens are HS256-signed JWTs whose subject names the owning user. The
// signed string itself is stored on the user record as the single active
// session; resolving requires both a valid signature and equality with the
// stored token, so issuing a new token or logging out revokes the old one.
type UserService struct {
	users  UserRepository
	todos  TodoProvisioner
	secret []byte
}

func NewUserService(users UserRepository, todos TodoProvisioner, secret string) *UserService {
	return &UserService{
		users:  users,
		todos:  todos,
		secret: []byte(secret),
	}
}

// Register creates a new account and provisions its empty todo list.
func (s *UserService) Register(ctx context.Context, username, password string) (types.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return types.User{}, store.ErrInvalidInput
	}
	if len(password) < minPasswordLength {
		return types.User{}, store.ErrInvalidInput
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.users.Create(ctx, types.User{
		Username:     username,
		PasswordHash: string(hashed),
	})
	if err != nil {
		return types.User{}, err
	}

	if err := s.todos.Provision(ctx, username); err != nil {
		return types.User{}, err
	}
	return user, nil
}

// Authenticate verifies a username/password pair.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (types.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return types.User{}, store.ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, store.ErrInvalidCredentials
		}
		return types.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, store.ErrInvalidCredentials
	}
	return user, nil
}

// IssueToken signs a fresh session token and stores it on the user record,
// overwriting any previous session for that user.
func (s *UserService) IssueToken(ctx context.Context, username string) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	claims := jwt.RegisteredClaims{
		Subject:  username,
		IssuedAt: jwt.NewNumericDate(time.Now()),
		ID:       hex.EncodeToString(nonce),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", err
	}

	if _, err := s.users.SetSessionToken(ctx, username, token); err != nil {
		return "", err
	}
	return token, nil
}

// ResolveToken maps a bearer token back to its owning user. The subject claim
// locates the record; the stored active token must then match exactly.
func (s *UserService) ResolveToken(ctx context.Context, token string) (types.User, error) {
	username, err := s.parseSubject(token)
	if err != nil {
		return types.User{}, store.ErrNoSuchSession
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, store.ErrNoSuchSession
		}
		return types.User{}, err
	}

	if user.SessionToken == "" ||
		subtle.ConstantTimeCompare([]byte(user.SessionToken), []byte(token)) != 1 {
		return types.User{}, store.ErrNoSuchSession
	}
	return user, nil
}

// RevokeToken clears the session owning the token. Unknown or malformed
// tokens are a no-op, not an error.
func (s *UserService) RevokeToken(ctx context.Context, token string) error {
	user, err := s.ResolveToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNoSuchSession) {
			return nil
		}
		return err
	}
	_, err = s.users.SetSessionToken(ctx, user.Username, "")
	return err
}

func (s *UserService) parseSubject(tokenString string) (string, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("missing subject")
	}
	return claims.Subject, nil
}
