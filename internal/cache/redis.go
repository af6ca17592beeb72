package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

// RedisSessions is the production SessionStore backed by Redis.  Keys carry
// a TTL equal to the token lifetime, so an entry can never vouch for a
// token that has already expired structurally.
type RedisSessions struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisSessions(rdb *redis.Client, ttl time.Duration) *RedisSessions {
	return &RedisSessions{rdb: rdb, ttl: ttl}
}

// Set stores name -> jti with the configured TTL, overwriting any prior
// value.  The overwrite is what invalidates an older session's token.
func (s *RedisSessions) Set(ctx context.Context, name, jti string) error {
	return s.rdb.Set(ctx, sessionKeyPrefix+name, jti, s.ttl).Err()
}

// Get returns the active jti for name, or ErrNoSession when the key is
// absent (expired or deleted).
func (s *RedisSessions) Get(ctx context.Context, name string) (string, error) {
	v, err := s.rdb.Get(ctx, sessionKeyPrefix+name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNoSession
		}
		return "", err
	}
	return v, nil
}

// Delete removes the session entry for name.
func (s *RedisSessions) Delete(ctx context.Context, name string) error {
	return s.rdb.Del(ctx, sessionKeyPrefix+name).Err()
}

// IsActive reports whether jti is the currently-active identifier for name.
// Redis errors count as inactive; an unreachable cache must not let a
// possibly-revoked token through.
func (s *RedisSessions) IsActive(ctx context.Context, name, jti string) bool {
	v, err := s.Get(ctx, name)
	return err == nil && v == jti
}
