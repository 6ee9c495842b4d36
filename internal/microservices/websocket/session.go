package websocket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

type SessionState int32

const (
	StateConnecting SessionState = iota
	StateActive
	StateDraining
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("SessionState(%d)", int32(s))
}

const (
	WelcomeText          = "Welcome to the support chat!"
	ParticipantLeftText  = "A participant left the chat"
	MalformedPayloadText = "Invalid message format"
	RateLimitedText      = "Rate limit exceeded, slow down"
	PersistFailedText    = "Message could not be delivered, please retry"
)

// Session drives one connection through
// Connecting -> Active -> Draining -> Closed.
type Session struct {
	hub     *Hub
	conn    *Connection
	limiter *rate.Limiter
	logger  *slog.Logger

	state     atomic.Int32
	joined    atomic.Bool
	lastName  atomic.Value // username of the last accepted message
	closeOnce sync.Once
}

func newSession(hub *Hub, conn *Connection) *Session {
	s := &Session{
		hub:    hub,
		conn:   conn,
		logger: hub.logger.With("client_id", conn.ID),
	}
	if hub.cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(hub.cfg.RateLimit), max(hub.cfg.RateBurst, 1))
	}
	return s
}

func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

func (s *Session) setState(st SessionState) {
	s.state.Store(int32(st))
}

func (s *Session) Conn() *Connection {
	return s.conn
}

// Run blocks until the session is closed. Every exit path goes
// through Close, and the reader goroutine is gone when Run returns.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	readerDone := make(chan struct{})
	started := false
	defer func() {
		cancel()
		s.Close()
		if started {
			<-readerDone
		}
	}()

	if err := s.join(ctx); err != nil {
		if ctx.Err() != nil {
			s.logger.Info("session_cancelled")
			return nil
		}
		return err
	}
	s.setState(StateActive)
	s.logger.Info("session_active", "remote_addr", s.conn.RemoteAddr)

	inbound := make(chan []byte)
	readErr := make(chan error, 1)
	started = true
	go func() {
		defer close(readerDone)
		s.readPump(ctx, inbound, readErr)
	}()

	return s.loop(ctx, inbound, readErr)
}

// join registers the connection before reading history, so nothing
// broadcast in between is lost. Live frames are held meanwhile and
// queued after the replay and welcome, minus those the replay already
// carries.
func (s *Session) join(ctx context.Context) error {
	s.conn.Hold()
	if err := s.hub.registry.Register(s.conn); err != nil {
		return err
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.hub.cfg.StoreTimeout)
	history, err := s.hub.store.Recent(storeCtx, s.hub.cfg.HistorySize)
	cancel()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		s.logger.Warn("history_load_failed", "error", err)
		history = nil
	}

	frames := make([][]byte, 0, len(history)+1)
	for _, msg := range history {
		data, err := msg.ToJSON()
		if err != nil {
			return fmt.Errorf("encode history: %w", err)
		}
		frames = append(frames, data)
	}
	welcome, err := NewSystemMessage(KindInfo, WelcomeText).ToJSON()
	if err != nil {
		return fmt.Errorf("encode welcome: %w", err)
	}
	frames = append(frames, welcome)

	if err := s.conn.Release(frames...); err != nil {
		return fmt.Errorf("replay history: %w", err)
	}
	s.joined.Store(true)
	return nil
}

func (s *Session) readPump(ctx context.Context, inbound chan<- []byte, readErr chan<- error) {
	defer close(inbound)
	for {
		data, err := s.conn.Receive()
		if err != nil {
			readErr <- err
			return
		}
		select {
		case inbound <- data:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) loop(ctx context.Context, inbound <-chan []byte, readErr <-chan error) error {
	idle := time.NewTimer(s.hub.cfg.IdleTimeout)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session_cancelled")
			return nil

		case <-s.conn.Done():
			return nil

		case data, ok := <-inbound:
			if !ok {
				var err error
				select {
				case err = <-readErr:
				default:
				}
				s.logReadError(err)
				return nil
			}
			if err := s.handleInbound(ctx, data); err != nil {
				s.logger.Warn("client_send_failed", "error", err)
				return nil
			}
			idle.Reset(s.hub.cfg.IdleTimeout)

		case <-idle.C:
			if err := s.conn.SendMessage(NewPingMessage()); err != nil {
				s.logger.Info("idle_ping_failed", "error", err)
				return nil
			}
			idle.Reset(s.hub.cfg.IdleTimeout)
		}
	}
}

// handleInbound processes one client frame. Only transport errors are
// returned; everything else is answered on the socket.
func (s *Session) handleInbound(ctx context.Context, data []byte) error {
	username, body, err := ParseInbound(data)
	if err != nil {
		s.logger.Warn("invalid_json_received", "error", err)
		return s.conn.SendMessage(NewSystemMessage(KindError, MalformedPayloadText))
	}
	if body == "" {
		return nil
	}
	if s.limiter != nil && !s.limiter.Allow() {
		s.logger.Warn("rate_limit_exceeded")
		return s.conn.SendMessage(NewSystemMessage(KindError, RateLimitedText))
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.hub.cfg.StoreTimeout)
	msg, err := s.hub.store.Append(storeCtx, username, body)
	cancel()
	if err != nil {
		s.logger.Error("message_persist_failed", "error", err)
		return s.conn.SendMessage(NewSystemMessage(KindError, PersistFailedText))
	}

	s.lastName.Store(username)
	s.hub.broadcaster.Broadcast(msg)
	return nil
}

// Close unregisters the connection, tells the remaining participants and
// releases the socket. Only the first call has any effect.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.setState(StateDraining)
		s.hub.registry.Unregister(s.conn)
		if err := s.conn.WriteErr(); err != nil {
			s.logger.Warn("client_write_failed", "error", err)
		}
		if err := s.conn.Close(); err != nil && !isExpectedCloseError(err) {
			s.logger.Debug("client_close_error", "error", err)
		}
		if s.joined.Load() {
			s.hub.broadcaster.Broadcast(NewSystemMessage(KindInfo, s.leftText()))
		}
		s.setState(StateClosed)
		s.logger.Info("session_closed")
	})
}

func (s *Session) leftText() string {
	if name, ok := s.lastName.Load().(string); ok && name != "" {
		return name + " left the chat"
	}
	return ParticipantLeftText
}

func (s *Session) logReadError(err error) {
	switch {
	case err == nil:
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		s.logger.Info("client_disconnected")
	case errors.Is(err, websocket.ErrReadLimit):
		s.logger.Warn("message_too_large", "max_size", MaxMessageSize)
	case isExpectedCloseError(err):
		s.logger.Info("client_connection_closed", "error", err)
	default:
		s.logger.Warn("client_read_error", "error", err)
	}
}

func isExpectedCloseError(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, ErrConnectionClosed) ||
		errors.Is(err, websocket.ErrCloseSent)
}
