package websocket

// Hub is the chat server context: it owns the registry, the broadcaster
// and the message store, and every session is started through it.
// Each connection runs in its own goroutine.

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var ErrHubClosed = errors.New("chat hub is shut down")

type HubConfig struct {
	HistorySize   int           // messages replayed to a joining connection
	IdleTimeout   time.Duration // inbound silence before an idle ping
	RateLimit     float64       // inbound messages per second, 0 disables
	RateBurst     int
	StoreTimeout  time.Duration // per store call
	SendQueueSize int           // outbound frames buffered per connection
}

func DefaultHubConfig() HubConfig {
	return HubConfig{
		HistorySize:   10,
		IdleTimeout:   300 * time.Second,
		StoreTimeout:  5 * time.Second,
		SendQueueSize: SendQueueSize,
	}
}

type Hub struct {
	store       MessageStore
	registry    *Registry
	broadcaster *Broadcaster
	cfg         HubConfig
	logger      *slog.Logger

	ctx    context.Context // cancelled by Shutdown, parent of every session
	cancel context.CancelFunc

	mu       sync.Mutex
	closing  bool
	sessions sync.WaitGroup
}

func NewHub(store MessageStore, cfg HubConfig, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultHubConfig()
	if cfg.HistorySize < 0 {
		cfg.HistorySize = 0
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaults.IdleTimeout
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = defaults.StoreTimeout
	}
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = defaults.SendQueueSize
	}
	// the replay and the welcome must fit in a fresh queue
	cfg.SendQueueSize = max(cfg.SendQueueSize, cfg.HistorySize+1)

	ctx, cancel := context.WithCancel(context.Background())
	registry := NewRegistry(logger)
	return &Hub{
		store:       store,
		registry:    registry,
		broadcaster: NewBroadcaster(registry, logger),
		cfg:         cfg,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (h *Hub) Registry() *Registry {
	return h.registry
}

func (h *Hub) Broadcaster() *Broadcaster {
	return h.broadcaster
}

func (h *Hub) Store() MessageStore {
	return h.store
}

func (h *Hub) ConnectionCount() int {
	return h.registry.Len()
}

// NewSession prepares a session for conn without starting it
func (h *Hub) NewSession(conn *Connection) *Session {
	return newSession(h, conn)
}

// Serve runs a chat session over transport until it closes, ctx is
// done or the hub shuts down.
func (h *Hub) Serve(ctx context.Context, transport Transport, remoteAddr string) error {
	h.mu.Lock()
	if h.closing {
		h.mu.Unlock()
		transport.Close()
		return ErrHubClosed
	}
	h.sessions.Add(1)
	h.mu.Unlock()
	defer h.sessions.Done()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(h.ctx, cancel)
	defer stop()

	conn := NewConnectionWithQueue(transport, remoteAddr, h.cfg.SendQueueSize)
	return h.NewSession(conn).Run(ctx)
}

// Shutdown cancels every session, including those still joining, closes
// the live connections and waits for the sessions to finish, or for ctx
// to expire.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closing = true
	h.mu.Unlock()
	h.cancel()

	conns := h.registry.Snapshot()
	for _, c := range conns {
		c.Close()
	}
	h.logger.Info("chat_hub_shutdown", "clients", len(conns))

	done := make(chan struct{})
	go func() {
		h.sessions.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
