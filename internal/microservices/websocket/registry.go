package websocket

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var ErrDuplicateConnection = errors.New("connection already registered")

// Registry is the authoritative set of live chat connections.
// A connection that closes removes itself.
type Registry struct {
	conns  map[string]*registration // map[connectionID] -> registration
	mu     sync.RWMutex
	logger *slog.Logger
}

type registration struct {
	conn *Connection
	stop func() bool // cancels the close watcher
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		conns:  make(map[string]*registration),
		logger: logger,
	}
}

// Register adds conn; a connection may only be present once.
func (r *Registry) Register(conn *Connection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.conns[conn.ID]; exists {
		r.logger.Error("client_already_registered", "client_id", conn.ID)
		return ErrDuplicateConnection
	}
	reg := &registration{conn: conn}
	reg.stop = context.AfterFunc(conn.ctx, func() { r.remove(reg) })
	r.conns[conn.ID] = reg
	r.logger.Info("client_added", "client_id", conn.ID, "clients", len(r.conns))
	return nil
}

// Unregister removes conn if present and reports whether it did.
// Removing an absent connection is not an error: broadcast pruning and
// session teardown may race to remove the same one.
func (r *Registry) Unregister(conn *Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, exists := r.conns[conn.ID]
	if !exists {
		return false
	}
	reg.stop()
	delete(r.conns, conn.ID)
	r.logger.Info("client_removed", "client_id", conn.ID, "clients", len(r.conns))
	return true
}

// remove drops reg only if it is still the current registration
func (r *Registry) remove(reg *registration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conns[reg.conn.ID] != reg {
		return
	}
	delete(r.conns, reg.conn.ID)
	r.logger.Info("client_removed", "client_id", reg.conn.ID, "clients", len(r.conns), "reason", "closed")
}

func (r *Registry) Contains(conn *Connection) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[conn.ID]
	return ok
}

// Snapshot returns a copy of the current members
func (r *Registry) Snapshot() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]*Connection, 0, len(r.conns))
	for _, reg := range r.conns {
		conns = append(conns, reg.conn)
	}
	return conns
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
