package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/realtime-chat/internal/cache"
	"github.com/iliyamo/realtime-chat/internal/chat"
	"github.com/iliyamo/realtime-chat/internal/utils"
)

// WSHandler upgrades chat connections and hands them to the room.  The
// origin allow-list is enforced during the upgrade, before any frame is
// read; authentication happens in-band as the connection's first frame.
type WSHandler struct {
	room     *chat.Room
	secret   string
	sessions cache.SessionStore
	upgrader websocket.Upgrader
}

// NewWSHandler builds the websocket endpoint.  origins is the configured
// allow-list; "*" allows any origin (used by tests and local tooling).
func NewWSHandler(room *chat.Room, secret string, sessions cache.SessionStore, origins []string) *WSHandler {
	h := &WSHandler{room: room, secret: secret, sessions: sessions}

	allowed, allowAll := normalizeOrigins(origins)
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if allowAll {
				return true
			}
			origin, ok := normalizeOrigin(r.Header.Get("Origin"))
			if !ok || !allowed[origin] {
				log.Printf("ws: blocked connection from disallowed origin %q", r.Header.Get("Origin"))
				return false
			}
			return true
		},
	}
	return h
}

// Chat handles GET /ws.  The handler blocks for the lifetime of the
// connection; echo runs each request on its own goroutine, so that is the
// one-goroutine-per-connection model.
func (h *WSHandler) Chat(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error (403 on origin rejection).
		log.Printf("ws: upgrade failed: %v", err)
		return nil
	}
	chat.Serve(c.Request().Context(), conn, h.room, h.authenticate)
	return nil
}

// authenticate is the AuthFunc for the in-band handshake: structural token
// verification followed by the revocation cache check.
func (h *WSHandler) authenticate(ctx context.Context, token string) (string, error) {
	claims, err := utils.VerifyChatToken(h.secret, token)
	if err != nil {
		return "", err
	}
	if !h.sessions.IsActive(ctx, claims.Name, claims.ID) {
		return "", errors.New("token is not active")
	}
	return claims.Name, nil
}

// normalizeOrigins lowercases and validates the configured allow-list,
// reporting whether a wildcard was present.
func normalizeOrigins(origins []string) (map[string]bool, bool) {
	allowed := make(map[string]bool)
	allowAll := false
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if o == "*" {
			allowAll = true
			continue
		}
		if n, ok := normalizeOrigin(o); ok {
			allowed[n] = true
		} else {
			log.Printf("ws: ignoring invalid origin in configuration: %q", o)
		}
	}
	return allowed, allowAll
}

// normalizeOrigin reduces an Origin value to lowercase scheme://host.
func normalizeOrigin(origin string) (string, bool) {
	u, err := url.Parse(origin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), true
}
