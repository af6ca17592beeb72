package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// authTimeout is how long a freshly-upgraded connection gets to present its
// auth envelope.  The handshake fails fast instead of parking a goroutine
// on an anonymous socket forever.
const authTimeout = 10 * time.Second

// sendBuffer is the per-client outgoing queue.  A client that falls this
// far behind the room is dropped rather than allowed to stall broadcasts.
const sendBuffer = 256

// Conn is the transport seam for a single websocket connection.  It is the
// subset of *websocket.Conn the handler needs, so tests can drive the
// protocol without a network.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	Close() error
}

// AuthFunc validates a raw token string and returns the principal it
// belongs to.  It bundles the structural token check and the revocation
// cache lookup; any failure means the handshake is rejected.
type AuthFunc func(ctx context.Context, token string) (string, error)

// Client is one authenticated connection.  The room owns it from the
// moment Join succeeds until Leave; name never changes afterwards.  closed
// is only touched under the room's lock.
type Client struct {
	conn Conn
	room *Room
	name string
	send chan []byte

	closed bool
	left   sync.Once
}

// Serve drives the full lifetime of one upgraded connection: the one-shot
// auth handshake, registration with the room, the receive loop, and a
// guaranteed single Leave on every exit path.  It blocks until the
// connection is finished.
func Serve(ctx context.Context, conn Conn, room *Room, auth AuthFunc) {
	name, err := authenticate(ctx, conn, auth)
	if err != nil {
		// One shot, fail closed: notify and drop without touching the room.
		log.Printf("chat: handshake rejected: %v", err)
		_ = conn.WriteMessage(websocket.TextMessage, []byte(notAuthorized))
		_ = conn.Close()
		return
	}

	c := &Client{
		conn: conn,
		room: room,
		name: name,
		send: make(chan []byte, sendBuffer),
	}
	go c.writePump()

	room.Join(c)
	defer c.leave()

	c.readLoop()
}

// authenticate reads the first frame under a deadline and validates it as
// an auth envelope.  Any other first frame is a rejection.
func authenticate(ctx context.Context, conn Conn, auth AuthFunc) (string, error) {
	if err := conn.SetReadDeadline(time.Now().Add(authTimeout)); err != nil {
		return "", err
	}
	mt, data, err := conn.ReadMessage()
	if err != nil {
		return "", err
	}
	if mt != websocket.TextMessage {
		return "", errors.New("first frame is not text")
	}
	var env AuthEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", errors.New("malformed auth envelope")
	}
	if env.Message != authMessage || env.Token == "" {
		return "", errors.New("first frame is not an auth envelope")
	}
	name, err := auth(ctx, env.Token)
	if err != nil {
		return "", err
	}
	// Active phase has no idle deadline; a client may sit quiet for hours.
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return "", err
	}
	return name, nil
}

// leave deregisters from the room exactly once, no matter how many exit
// paths race to call it.
func (c *Client) leave() {
	c.left.Do(func() {
		c.room.Leave(c)
	})
}

// readLoop receives frames until the connection dies.  Malformed or
// non-text frames are ignored; valid chat envelopes are handed to the room.
func (c *Client) readLoop() {
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			if !isExpectedClose(err) {
				log.Printf("chat: read from %s failed: %v", c.name, err)
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		var env ChatEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		c.room.Broadcast(c.name, env.Message)
	}
}

// writePump is the single writer on the socket, as gorilla requires.  It
// drains the send buffer until the room closes it (leave or drop) and then
// closes the socket, which unblocks the read loop.
func (c *Client) writePump() {
	defer func() { _ = c.conn.Close() }()
	for line := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, line); err != nil {
			if !isExpectedClose(err) {
				log.Printf("chat: write to %s failed: %v", c.name, err)
			}
			return
		}
	}
}

// isExpectedClose reports whether err is one of the mundane ways a
// websocket dies, which are not worth logging at error level.
func isExpectedClose(err error) bool {
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure) {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "use of closed network connection") ||
		strings.Contains(s, "websocket: close sent") ||
		strings.Contains(s, "broken pipe")
}
