package model

import "time"

// User mirrors the 'users' table.  Username is the principal: unique,
// immutable, and the key the revocation cache is indexed by.
type User struct {
	ID           uint64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}
