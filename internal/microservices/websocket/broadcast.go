package websocket

import (
	"log/slog"
	"sync"
)

// Broadcaster fans messages out to every registered connection.
// Whole broadcasts are serialized so each recipient queues them in
// invocation order. Only non-blocking enqueues happen under the lock;
// the sockets are written by each connection's write pump.
type Broadcaster struct {
	registry *Registry
	mu       sync.Mutex
	logger   *slog.Logger
}

func NewBroadcaster(registry *Registry, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{registry: registry, logger: logger}
}

// Broadcast queues msg on all current connections. A connection whose
// queue is full or already closed is unregistered and closed; the caller
// never sees the error.
func (b *Broadcaster) Broadcast(msg ChatMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.broadcastLocked(msg)
}

func (b *Broadcaster) broadcastLocked(msg ChatMessage) {
	conns := b.registry.Snapshot()
	if len(conns) == 0 {
		return
	}

	data, err := msg.ToJSON()
	if err != nil {
		b.logger.Error("failed_to_marshal_broadcast_message", "error", err)
		return
	}

	delivered := 0
	for _, c := range conns {
		if err := c.Send(data); err != nil {
			b.logger.Warn("failed_to_send_broadcast",
				"client_id", c.ID,
				"error", err.Error(),
			)
			b.registry.Unregister(c)
			c.Close()
			continue
		}
		delivered++
	}
	b.logger.Debug("broadcast_sent",
		"type", msg.Kind,
		"delivered", delivered,
		"recipients", len(conns),
	)
}
