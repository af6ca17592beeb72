package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	jti     string
	expires time.Time
}

// MemorySessions is an in-process SessionStore with the same semantics as
// the Redis implementation.  It exists for tests and single-node
// development where running Redis is overkill; production deployments use
// RedisSessions so revocation survives process restarts.
type MemorySessions struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

func NewMemorySessions(ttl time.Duration) *MemorySessions {
	return &MemorySessions{ttl: ttl, entries: make(map[string]memoryEntry)}
}

func (s *MemorySessions) Set(_ context.Context, name, jti string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[name] = memoryEntry{jti: jti, expires: time.Now().Add(s.ttl)}
	return nil
}

func (s *MemorySessions) Get(_ context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	if !ok {
		return "", ErrNoSession
	}
	if time.Now().After(e.expires) {
		delete(s.entries, name)
		return "", ErrNoSession
	}
	return e.jti, nil
}

func (s *MemorySessions) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, name)
	return nil
}

func (s *MemorySessions) IsActive(ctx context.Context, name, jti string) bool {
	v, err := s.Get(ctx, name)
	return err == nil && v == jti
}
