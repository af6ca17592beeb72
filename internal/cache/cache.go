// Package cache implements the token revocation cache: a mapping from
// principal name to the single currently-valid token identifier (jti).
// A token whose jti no longer matches the cached value is revoked, either
// because the user logged out (explicit delete) or because a newer login
// overwrote the entry.  Entries expire on their own after the token TTL, so
// the cache never outlives the tokens it vouches for.
package cache

import (
	"context"
	"errors"
)

// ErrNoSession is returned by Get when a principal has no active session,
// either because it never logged in, logged out, or the entry expired.
var ErrNoSession = errors.New("no active session")

// SessionStore is the revocation cache contract consumed by the HTTP
// handlers and the websocket authenticator.  Set overwrites any previous
// jti for the principal, which is what gives the service its
// single-active-session-per-user semantics.
type SessionStore interface {
	// Set records jti as the only valid token identifier for name.
	Set(ctx context.Context, name, jti string) error

	// Get returns the active jti for name, or ErrNoSession.
	Get(ctx context.Context, name string) (string, error)

	// Delete removes the entry for name, revoking its active token.
	Delete(ctx context.Context, name string) error

	// IsActive reports whether (name, jti) is the currently-active pair.
	// Any lookup failure counts as inactive: revocation fails closed.
	IsActive(ctx context.Context, name, jti string) bool
}
