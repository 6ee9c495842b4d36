package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"petshop/internal/microservices/http-api/dto"

	"github.com/gin-gonic/gin"
)

type ConnectionCounter interface {
	ConnectionCount() int
}

type MessageCounter interface {
	Count(ctx context.Context) (int64, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	conns    ConnectionCounter
	messages MessageCounter
	db       Pinger // optional
}

func NewHealthHandler(conns ConnectionCounter, messages MessageCounter, db Pinger) *HealthHandler {
	return &HealthHandler{conns: conns, messages: messages, db: db}
}

// Health reports live chat connections and persisted message count.
// It answers 503 when the database cannot be reached.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := dto.HealthResponse{
		Status:      "ok",
		Connections: h.conns.ConnectionCount(),
		Database:    "up",
	}
	status := http.StatusOK

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			slog.Warn("health_db_ping_failed", "error", err)
			resp.Status = "degraded"
			resp.Database = "down"
			status = http.StatusServiceUnavailable
		}
	}
	if resp.Database == "up" {
		total, err := h.messages.Count(ctx)
		if err != nil {
			slog.Warn("health_message_count_failed", "error", err)
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
		resp.Messages = total
	}

	c.JSON(status, resp)
}
