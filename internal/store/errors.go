package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateUser is returned when registering a username that already exists.
var ErrDuplicateUser = errors.New("username already exists")

// ErrInvalidInput is returned when a required field is missing or malformed.
var ErrInvalidInput = errors.New("invalid input")

// ErrInvalidCredentials is returned when a username/password pair does not match.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrNoSuchSession is returned when a bearer token does not resolve to an
// active session.
var ErrNoSuchSession = errors.New("no such session")
