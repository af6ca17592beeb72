package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type savedMessage struct {
	user string
	body string
}

// recordingStore captures Save calls and signals each one, so tests can
// wait for the asynchronous persistence goroutine.
type recordingStore struct {
	mu    sync.Mutex
	saves []savedMessage
	saved chan struct{}
	err   error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{saved: make(chan struct{}, 64)}
}

func (s *recordingStore) Save(_ context.Context, user, body string, _ time.Time) error {
	s.mu.Lock()
	s.saves = append(s.saves, savedMessage{user: user, body: body})
	s.mu.Unlock()
	s.saved <- struct{}{}
	return s.err
}

func (s *recordingStore) all() []savedMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]savedMessage(nil), s.saves...)
}

func waitSaved(t *testing.T, s *recordingStore) {
	t.Helper()
	select {
	case <-s.saved:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message persistence")
	}
}

func newTestClient(name string, buf int) *Client {
	return &Client{name: name, send: make(chan []byte, buf)}
}

// register adds a client to the live set without the join announcement, for
// tests that want a quiet starting state.
func register(r *Room, c *Client) {
	r.mu.Lock()
	r.clients[c] = struct{}{}
	r.mu.Unlock()
}

func decodeLine(t *testing.T, raw []byte) Line {
	t.Helper()
	var l Line
	require.NoError(t, json.Unmarshal(raw, &l))
	return l
}

// recvLine reads one rendered line from a client's buffer.
func recvLine(t *testing.T, c *Client) Line {
	t.Helper()
	select {
	case raw := <-c.send:
		return decodeLine(t, raw)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a line")
		return Line{}
	}
}

func TestBroadcastDeliversToAllClients(t *testing.T) {
	store := newRecordingStore()
	room := NewRoom(store, nil)

	a := newTestClient("alice", 8)
	b := newTestClient("bob", 8)
	register(room, a)
	register(room, b)

	room.Broadcast("alice", "hi")

	for _, c := range []*Client{a, b} {
		line := recvLine(t, c)
		assert.Equal(t, "alice", line.User)
		assert.Equal(t, "hi", line.Message)
		assert.Regexp(t, `^\d{2}:\d{2}:\d{2}$`, line.Time)
	}

	waitSaved(t, store)
	assert.Equal(t, []savedMessage{{user: "alice", body: "hi"}}, store.all())
}

func TestBroadcastEmptyBodyIsNoOp(t *testing.T) {
	store := newRecordingStore()
	room := NewRoom(store, nil)
	a := newTestClient("alice", 8)
	register(room, a)

	room.Broadcast("alice", "")
	room.Broadcast("alice", "   ")
	room.Broadcast("", "hello")

	assert.Equal(t, 0, room.history.Len())
	assert.Empty(t, a.send)
	assert.Empty(t, store.all())
}

func TestBroadcastHistoryBound(t *testing.T) {
	room := NewRoom(newRecordingStore(), nil)

	for i := 0; i < HistorySize+3; i++ {
		room.Broadcast("alice", fmt.Sprintf("msg-%d", i))
	}

	lines := room.history.Lines()
	require.Len(t, lines, HistorySize)
	for i, raw := range lines {
		assert.Equal(t, fmt.Sprintf("msg-%d", i+3), decodeLine(t, raw).Message)
	}
}

// A failed send drops only the failing client; the rest of the room still
// receives the message and no panic escapes Broadcast.
func TestBroadcastIsolatesFailingClient(t *testing.T) {
	store := newRecordingStore()
	room := NewRoom(store, nil)

	a := newTestClient("alice", 8)
	b := newTestClient("bob", 0) // unbuffered, nobody reading: send fails
	c := newTestClient("carol", 8)
	register(room, a)
	register(room, b)
	register(room, c)

	room.Broadcast("alice", "hi")

	assert.Equal(t, "hi", recvLine(t, a).Message)
	assert.Equal(t, "hi", recvLine(t, c).Message)
	assert.Equal(t, 2, room.Len())

	// bob's buffer was closed when it was dropped.
	_, open := <-b.send
	assert.False(t, open)
}

func TestJoinAnnouncesThenReplays(t *testing.T) {
	room := NewRoom(newRecordingStore(), nil)

	a := newTestClient("alice", 16)
	register(room, a)
	room.Broadcast("alice", "first")
	room.Broadcast("alice", "second")

	b := newTestClient("bob", 16)
	room.Join(b)

	// Everyone already live hears the announcement.
	for _, want := range []string{"first", "second", "User bob joined the server"} {
		assert.Equal(t, want, recvLine(t, a).Message)
	}

	// The newcomer sees the full ring, its own join line last, before any
	// new broadcast.
	replay := []Line{recvLine(t, b), recvLine(t, b), recvLine(t, b)}
	assert.Equal(t, "first", replay[0].Message)
	assert.Equal(t, "second", replay[1].Message)
	assert.Equal(t, "User bob joined the server", replay[2].Message)
	assert.Equal(t, serverUser, replay[2].User)
	assert.Equal(t, 2, room.Len())
}

func TestLeaveAnnounces(t *testing.T) {
	room := NewRoom(newRecordingStore(), nil)

	a := newTestClient("alice", 16)
	b := newTestClient("bob", 16)
	register(room, a)
	register(room, b)

	room.Leave(b)

	assert.Equal(t, 1, room.Len())
	assert.Equal(t, "User bob left the server", recvLine(t, a).Message)
	_, open := <-b.send
	assert.False(t, open)
}

// Leaving after being dropped by a failed send must not close the buffer a
// second time, and the departure is still announced.
func TestLeaveAfterDrop(t *testing.T) {
	room := NewRoom(newRecordingStore(), nil)

	a := newTestClient("alice", 16)
	b := newTestClient("bob", 0)
	register(room, a)
	register(room, b)

	room.Broadcast("alice", "hi") // drops bob
	require.Equal(t, 1, room.Len())

	room.Leave(b)

	assert.Equal(t, "hi", recvLine(t, a).Message)
	assert.Equal(t, "User bob left the server", recvLine(t, a).Message)
}

// Persistence failures are swallowed: the fan-out already happened.
func TestBroadcastSurvivesStoreFailure(t *testing.T) {
	store := newRecordingStore()
	store.err = fmt.Errorf("storage unavailable")
	room := NewRoom(store, nil)

	a := newTestClient("alice", 8)
	register(room, a)

	room.Broadcast("alice", "hi")

	assert.Equal(t, "hi", recvLine(t, a).Message)
	waitSaved(t, store)
	assert.Equal(t, 1, room.history.Len())
}

// Concurrent broadcasts keep the live set and ring consistent.
func TestBroadcastConcurrent(t *testing.T) {
	room := NewRoom(newRecordingStore(), nil)

	clients := make([]*Client, 4)
	for i := range clients {
		clients[i] = newTestClient(fmt.Sprintf("user%d", i), 1024)
		register(room, clients[i])
	}

	var wg sync.WaitGroup
	const perSender = 20
	for i := range clients {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < perSender; j++ {
				room.Broadcast(fmt.Sprintf("user%d", n), fmt.Sprintf("m-%d-%d", n, j))
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, HistorySize, room.history.Len())
	assert.Equal(t, len(clients), room.Len())
	for _, c := range clients {
		assert.Len(t, c.send, len(clients)*perSender)
	}
}
