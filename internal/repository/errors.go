package repository

import "errors"

var (
	// ErrUserExists is returned when registering a username that is taken.
	ErrUserExists = errors.New("user already exists")

	// ErrUnknownUser is returned when a message references a principal
	// that has no row in the users table.
	ErrUnknownUser = errors.New("unknown user")
)
