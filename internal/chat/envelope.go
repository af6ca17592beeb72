package chat

// Wire envelopes exchanged over the websocket.  Every frame is a small JSON
// object; anything that does not parse into the expected shape is dropped
// at the boundary instead of being passed around as a loose map.

// AuthEnvelope must be the first frame a client sends after the upgrade.
// Message has to be the literal "auth" and Token a signed chat token.
type AuthEnvelope struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

// ChatEnvelope is every subsequent client frame: just the message text.
type ChatEnvelope struct {
	Message string `json:"message"`
}

// Line is the rendered server-to-client chat line.  Time is server-local
// time of day without a date, matching what the chat page displays.
type Line struct {
	User    string `json:"user"`
	Message string `json:"message"`
	Time    string `json:"time"`
}

// authMessage is the required Message value of the first frame.
const authMessage = "auth"

// notAuthorized is sent as a plain text frame when the handshake fails,
// before the connection is closed.
const notAuthorized = "Not authorized"

// lineTimeFormat renders timestamps as HH:MM:SS.
const lineTimeFormat = "15:04:05"
