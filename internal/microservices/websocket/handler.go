package websocket

import (
	"net/http"
	"net/url"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// HTTP upgrade handler to WebSocket connections

func newUpgrader(allowedOrigins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(r.Header.Get("Origin"), allowedOrigins)
		},
	}
}

// originAllowed accepts requests without an Origin header (non-browser
// clients), a "*" entry, or an exact scheme://host match.
func originAllowed(origin string, allowed []string) bool {
	if origin == "" || slices.Contains(allowed, "*") {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return slices.Contains(allowed, u.Scheme+"://"+u.Host)
}

// WSHandler upgrades the request and runs a chat session on it.
// The handler returns when the session is closed.
func WSHandler(hub *Hub, allowedOrigins []string) gin.HandlerFunc {
	upgrader := newUpgrader(allowedOrigins)
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade has already written the HTTP error response
			hub.logger.Warn("websocket_upgrade_failed", "remote_addr", c.ClientIP(), "error", err)
			return
		}

		if err := hub.Serve(c.Request.Context(), NewWSTransport(conn), c.ClientIP()); err != nil {
			hub.logger.Warn("chat_session_ended_with_error", "remote_addr", c.ClientIP(), "error", err)
		}
	}
}
