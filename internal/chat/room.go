// Package chat implements the session/broadcast engine: the room holding
// all live websocket connections, the bounded ring of recent lines replayed
// to newcomers, and the per-connection protocol driver that authenticates
// and pumps frames.
package chat

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"
)

// HistorySize is the number of rendered lines kept for replay to newcomers.
const HistorySize = 10

// serverUser attributes join/leave announcements.
const serverUser = "server"

// persistTimeout bounds the background save of a single message.
const persistTimeout = 5 * time.Second

// MessageStore is the persistence contract for accepted messages.  Save is
// best-effort: it runs outside the room lock, after fan-out, and its errors
// are logged rather than propagated.
type MessageStore interface {
	Save(ctx context.Context, username, body string, at time.Time) error
}

// EventSink receives a notification for every rendered line, after the
// in-memory fan-out.  It feeds the broker-backed audit pipeline and, like
// the store, is best-effort.
type EventSink interface {
	MessagePosted(username, body string, at time.Time)
}

// Room is the session registry: the set of live clients plus the history
// ring.  A single mutex guards both, so Join, Leave and Broadcast observe
// them atomically with respect to each other.  Sends into client buffers
// are non-blocking channel writes and therefore safe to perform inside the
// critical section; the slow work (socket writes, persistence, broker
// publishes) always happens outside it.
type Room struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
	history *HistoryRing

	store  MessageStore
	events EventSink // optional
	now    func() time.Time
}

// NewRoom creates a room persisting through store.  events may be nil.
func NewRoom(store MessageStore, events EventSink) *Room {
	return &Room{
		clients: make(map[*Client]struct{}),
		history: NewHistoryRing(HistorySize),
		store:   store,
		events:  events,
		now:     time.Now,
	}
}

// Join announces the newcomer to everyone already connected, replays the
// full history ring to the newcomer only, and then adds it to the live set.
// The announcement goes out first, before the client is live, so the joiner
// sees its own join line through the replay rather than the fan-out.
// Replay and registration share one critical section so no broadcast can
// slip between them and be missed or delivered twice.
func (r *Room) Join(c *Client) {
	r.Broadcast(serverUser, "User "+c.name+" joined the server")

	r.mu.Lock()
	for _, line := range r.history.Lines() {
		select {
		case c.send <- line:
		default:
		}
	}
	r.clients[c] = struct{}{}
	r.mu.Unlock()
}

// Leave removes the client from the live set (a no-op when it was already
// dropped by a failed send) and announces the departure.
func (r *Room) Leave(c *Client) {
	r.mu.Lock()
	_, ok := r.clients[c]
	if ok {
		delete(r.clients, c)
		c.closed = true
	}
	r.mu.Unlock()
	if ok {
		close(c.send)
	}
	r.Broadcast(serverUser, "User "+c.name+" left the server")
}

// Broadcast renders a line, appends it to the history ring and queues it to
// every live client.  A client whose buffer is full is dropped from the
// room on the spot; the remaining clients are unaffected.  Persistence and
// the event publish run in the background so a slow store can never stall
// the fan-out.  Empty input produces nothing: no line, no row.
func (r *Room) Broadcast(user, text string) {
	user = strings.TrimSpace(user)
	text = strings.TrimSpace(text)
	if user == "" || text == "" {
		return
	}
	at := r.now()
	line, err := json.Marshal(Line{User: user, Message: text, Time: at.Format(lineTimeFormat)})
	if err != nil {
		log.Printf("chat-room: render line failed: %v", err)
		return
	}

	var dropped []*Client
	r.mu.Lock()
	r.history.Push(line)
	for c := range r.clients {
		select {
		case c.send <- line:
		default:
			delete(r.clients, c)
			c.closed = true
			dropped = append(dropped, c)
		}
	}
	r.mu.Unlock()

	// Close buffers outside the lock; the write pump exits and closes the
	// socket, which in turn unblocks the client's read loop.
	for _, c := range dropped {
		log.Printf("chat-room: dropping %s, send buffer full", c.name)
		close(c.send)
	}

	go r.persist(user, text, at)
}

// persist saves the line and notifies the event sink.  Both are best-effort:
// the fan-out already happened and is never rolled back.
func (r *Room) persist(user, text string, at time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := r.store.Save(ctx, user, text, at); err != nil {
		log.Printf("chat-room: save message from %s failed: %v", user, err)
	}
	if r.events != nil {
		r.events.MessagePosted(user, text, at)
	}
}

// Len reports the number of live clients.
func (r *Room) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}
