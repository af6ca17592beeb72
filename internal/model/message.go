package model

import "time"

// Message mirrors the 'messages' table joined with its author's username.
// Rows are append-only; nothing in the service mutates or deletes them.
type Message struct {
	ID       uint64    `json:"id"`
	User     string    `json:"user"`
	Body     string    `json:"message"`
	PostedAt time.Time `json:"posted_at"`
}
