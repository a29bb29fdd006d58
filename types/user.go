package types

import "time"

// User represents an account in the system.
// It is persisted verbatim in the user document; API responses never
// marshal a full User, so the hash and token fields stay server-side.
type User struct {
	// Username is the unique login name chosen by the user. It is the
	// primary key of the user document and the key that scopes the
	// user's todo list.
	Username string `json:"username"`

	// PasswordHash stores the bcrypt hash of the user's password.
	PasswordHash string `json:"passwordHash"`

	// SessionToken is the currently active bearer token, or empty when
	// the user has no session. Issuing a new token overwrites it;
	// logout clears it.
	SessionToken string `json:"sessionToken,omitempty"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"createdAt"`
}
