package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/realtime-chat/internal/model"
)

// MessageRepo persists accepted chat messages.  It is the message store
// adapter behind the broadcast path: Save is called asynchronously and its
// failure never reaches the in-memory fan-out.
type MessageRepo struct{ DB *sql.DB }

func NewMessageRepo(db *sql.DB) *MessageRepo { return &MessageRepo{DB: db} }

// Save appends one message row attributed to an existing principal.  The
// "server" pseudo-user that announces joins and leaves has no row, so those
// lines come back as ErrUnknownUser and are dropped by the caller.
func (r *MessageRepo) Save(ctx context.Context, username, body string, at time.Time) error {
	if username == "" || body == "" {
		return nil
	}
	var userID uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT id FROM users WHERE username=? LIMIT 1", username).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUnknownUser
		}
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO messages (user_id, body, posted_at) VALUES (?,?,?)",
		userID, body, at.UTC())
	return err
}

// Recent returns the last n persisted messages in chronological order.
func (r *MessageRepo) Recent(ctx context.Context, n int) ([]model.Message, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT m.id, u.username, m.body, m.posted_at
		 FROM messages m JOIN users u ON u.id = m.user_id
		 ORDER BY m.id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.User, &m.Body, &m.PostedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Query is newest-first for the LIMIT; flip to arrival order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
