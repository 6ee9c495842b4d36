package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"petshop/internal/microservices/http-api/dto"
	"petshop/internal/microservices/websocket"

	"github.com/gin-gonic/gin"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// HistoryReader is the read side of the chat message store
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]websocket.ChatMessage, error)
}

type ChatHandler struct {
	history HistoryReader
}

func NewChatHandler(history HistoryReader) *ChatHandler {
	return &ChatHandler{history: history}
}

// Messages serves GET /chat/messages?limit=N, oldest first
func (h *ChatHandler) Messages(c *gin.Context) {
	limit := DefaultHistoryLimit
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = min(parsed, MaxHistoryLimit)
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	msgs, err := h.history.Recent(ctx, limit)
	if err != nil {
		slog.Error("chat_history_failed", "limit", limit, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chat history"})
		return
	}
	c.JSON(http.StatusOK, dto.FromChatMessages(msgs))
}
