package dto

import (
	"petshop/internal/microservices/websocket"

	"github.com/samber/lo"
)

// ChatHistoryResponse is the body of GET /chat/messages
type ChatHistoryResponse struct {
	Messages []websocket.Frame `json:"messages"`
	Count    int               `json:"count"`
}

func FromChatMessages(msgs []websocket.ChatMessage) ChatHistoryResponse {
	frames := lo.Map(msgs, func(m websocket.ChatMessage, _ int) websocket.Frame {
		return m.ToFrame()
	})
	return ChatHistoryResponse{Messages: frames, Count: len(frames)}
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	Messages    int64  `json:"messages"`
	Database    string `json:"database"`
}
