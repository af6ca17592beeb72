package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySessionsSetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySessions(time.Minute)

	_, err := s.Get(ctx, "alice")
	assert.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, s.Set(ctx, "alice", "j1"))
	v, err := s.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "j1", v)

	require.NoError(t, s.Delete(ctx, "alice"))
	_, err = s.Get(ctx, "alice")
	assert.ErrorIs(t, err, ErrNoSession)
}

// A second login overwrites the jti, which revokes the first session.
func TestMemorySessionsSingleActiveSession(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySessions(time.Minute)

	require.NoError(t, s.Set(ctx, "alice", "j1"))
	require.NoError(t, s.Set(ctx, "alice", "j2"))

	v, err := s.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "j2", v)
	assert.False(t, s.IsActive(ctx, "alice", "j1"))
	assert.True(t, s.IsActive(ctx, "alice", "j2"))
}

func TestMemorySessionsExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySessions(30 * time.Millisecond)

	require.NoError(t, s.Set(ctx, "alice", "j1"))
	assert.True(t, s.IsActive(ctx, "alice", "j1"))

	time.Sleep(60 * time.Millisecond)
	assert.False(t, s.IsActive(ctx, "alice", "j1"))
	_, err := s.Get(ctx, "alice")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestMemorySessionsIsActiveWrongPrincipal(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySessions(time.Minute)

	require.NoError(t, s.Set(ctx, "alice", "j1"))
	assert.False(t, s.IsActive(ctx, "bob", "j1"))
}
