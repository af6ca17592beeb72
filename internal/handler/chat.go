package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/realtime-chat/internal/chat"
	"github.com/iliyamo/realtime-chat/internal/model"
)

// MessageReader is the read side of the message store, backing the history
// endpoint.  The in-memory ring is separate state: it rebuilds empty on
// restart, while this reads what was persisted.
type MessageReader interface {
	Recent(ctx context.Context, n int) ([]model.Message, error)
}

// ChatHandler serves the persisted-history endpoint.
type ChatHandler struct {
	Messages MessageReader
}

func NewChatHandler(m MessageReader) *ChatHandler { return &ChatHandler{Messages: m} }

// History returns the most recent persisted messages in arrival order.
func (h *ChatHandler) History(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	msgs, err := h.Messages.Recent(ctx, chat.HistorySize)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"status": "error", "message": "load history failed"})
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "success", "messages": msgs})
}
