package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/realtime-chat/internal/cache"
	"github.com/iliyamo/realtime-chat/internal/chat"
	"github.com/iliyamo/realtime-chat/internal/handler"
	"github.com/iliyamo/realtime-chat/internal/utils"
)

// nopStore satisfies chat.MessageStore; the websocket tests only exercise
// the in-memory path.
type nopStore struct {
	mu    sync.Mutex
	bodys []string
}

func (s *nopStore) Save(_ context.Context, _, body string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bodys = append(s.bodys, body)
	return nil
}

type wsEnv struct {
	srv      *httptest.Server
	sessions *cache.MemorySessions
	room     *chat.Room
}

func newWSEnv(t *testing.T) *wsEnv {
	t.Helper()
	sessions := cache.NewMemorySessions(15 * time.Minute)
	room := chat.NewRoom(&nopStore{}, nil)
	ws := handler.NewWSHandler(room, testSecret, sessions, []string{"*"})

	e := echo.New()
	e.GET("/ws", ws.Chat)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	return &wsEnv{srv: srv, sessions: sessions, room: room}
}

func (env *wsEnv) wsURL() string {
	return "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/ws"
}

// login mints a token and records its jti as the active session, the same
// two steps the login endpoint performs.
func (env *wsEnv) login(t *testing.T, name string) string {
	t.Helper()
	jti, err := utils.NewJTI()
	require.NoError(t, err)
	token, err := utils.NewChatToken(testSecret, name, jti, 15*time.Minute)
	require.NoError(t, err)
	require.NoError(t, env.sessions.Set(context.Background(), name, jti))
	return token
}

func dial(t *testing.T, env *wsEnv) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(env.wsURL(), nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, b))
}

func readLine(t *testing.T, conn *websocket.Conn) chat.Line {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var l chat.Line
	require.NoError(t, json.Unmarshal(data, &l))
	return l
}

func authConn(t *testing.T, conn *websocket.Conn, token string) {
	t.Helper()
	sendJSON(t, conn, chat.AuthEnvelope{Token: token, Message: "auth"})
}

func TestWebSocketEndToEnd(t *testing.T) {
	env := newWSEnv(t)
	alice := env.login(t, "alice")

	conn := dial(t, env)
	authConn(t, conn, alice)

	// The join announcement is in the replayed history.
	join := readLine(t, conn)
	assert.Equal(t, "server", join.User)
	assert.Equal(t, "User alice joined the server", join.Message)

	sendJSON(t, conn, chat.ChatEnvelope{Message: "hi"})
	line := readLine(t, conn)
	assert.Equal(t, "alice", line.User)
	assert.Equal(t, "hi", line.Message)
	assert.Regexp(t, `^\d{2}:\d{2}:\d{2}$`, line.Time)
}

func TestWebSocketBroadcastReachesAllClients(t *testing.T) {
	env := newWSEnv(t)

	aliceConn := dial(t, env)
	authConn(t, aliceConn, env.login(t, "alice"))
	assert.Equal(t, "User alice joined the server", readLine(t, aliceConn).Message)

	bobConn := dial(t, env)
	authConn(t, bobConn, env.login(t, "bob"))

	// Bob replays the ring: alice's join line, then his own.
	assert.Equal(t, "User alice joined the server", readLine(t, bobConn).Message)
	assert.Equal(t, "User bob joined the server", readLine(t, bobConn).Message)
	// Alice hears bob join live.
	assert.Equal(t, "User bob joined the server", readLine(t, aliceConn).Message)

	sendJSON(t, aliceConn, chat.ChatEnvelope{Message: "hello bob"})
	for _, conn := range []*websocket.Conn{aliceConn, bobConn} {
		line := readLine(t, conn)
		assert.Equal(t, "alice", line.User)
		assert.Equal(t, "hello bob", line.Message)
	}
}

func TestWebSocketRejectsRevokedToken(t *testing.T) {
	env := newWSEnv(t)
	token := env.login(t, "alice")

	// Logging out deletes the cache entry; the token is now revoked.
	require.NoError(t, env.sessions.Delete(context.Background(), "alice"))

	conn := dial(t, env)
	authConn(t, conn, token)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "Not authorized", string(data))

	// The server closes right after the notice.
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, env.room.Len())
}

func TestWebSocketRejectsNonAuthFirstFrame(t *testing.T) {
	env := newWSEnv(t)

	conn := dial(t, env)
	sendJSON(t, conn, chat.ChatEnvelope{Message: "hi"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "Not authorized", string(data))
}

func TestWebSocketSupersededSessionCannotAuth(t *testing.T) {
	env := newWSEnv(t)
	first := env.login(t, "alice")
	_ = env.login(t, "alice") // second login overwrites the jti

	conn := dial(t, env)
	authConn(t, conn, first)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "Not authorized", string(data))
}

func TestWebSocketLeaveAnnounced(t *testing.T) {
	env := newWSEnv(t)

	aliceConn := dial(t, env)
	authConn(t, aliceConn, env.login(t, "alice"))
	assert.Equal(t, "User alice joined the server", readLine(t, aliceConn).Message)

	bobConn := dial(t, env)
	authConn(t, bobConn, env.login(t, "bob"))
	assert.Equal(t, "User alice joined the server", readLine(t, bobConn).Message)
	assert.Equal(t, "User bob joined the server", readLine(t, bobConn).Message)
	assert.Equal(t, "User bob joined the server", readLine(t, aliceConn).Message)

	require.NoError(t, bobConn.Close())

	line := readLine(t, aliceConn)
	assert.Equal(t, "server", line.User)
	assert.Equal(t, "User bob left the server", line.Message)
}

func TestWebSocketOriginRejected(t *testing.T) {
	sessions := cache.NewMemorySessions(15 * time.Minute)
	room := chat.NewRoom(&nopStore{}, nil)
	ws := handler.NewWSHandler(room, testSecret, sessions, []string{"http://app.example.com"})

	e := echo.New()
	e.GET("/ws", ws.Chat)
	srv := httptest.NewServer(e)
	defer srv.Close()

	header := http.Header{"Origin": []string{"http://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", header)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// The allowed origin passes the check and upgrades.
	header = http.Header{"Origin": []string{"http://app.example.com"}}
	conn, resp2, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", header)
	require.NoError(t, err)
	if resp2 != nil && resp2.Body != nil {
		resp2.Body.Close()
	}
	conn.Close()
}
