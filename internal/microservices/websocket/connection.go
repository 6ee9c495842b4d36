package websocket

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	WriteWait      = 10 * time.Second // max time to write a frame to the peer
	MaxMessageSize = 4096             // max inbound frame size in bytes
	SendQueueSize  = 256              // outbound frames buffered per connection
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendQueueFull    = errors.New("send queue full")
)

// Transport is the duplex socket underneath a Connection.
// ReadMessage must return an error once Close has been called.
type Transport interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// wsTransport adapts a gorilla connection to Transport
type wsTransport struct {
	conn *websocket.Conn
}

func NewWSTransport(conn *websocket.Conn) Transport {
	conn.SetReadLimit(MaxMessageSize)
	return &wsTransport{conn: conn}
}

func (t *wsTransport) ReadMessage() ([]byte, error) {
	for {
		msgType, data, err := t.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		// binary frames are not part of the protocol
		if msgType == websocket.TextMessage {
			return data, nil
		}
	}
}

func (t *wsTransport) WriteMessage(data []byte) error {
	if err := t.conn.SetWriteDeadline(time.Now().Add(WriteWait)); err != nil {
		return err
	}
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *wsTransport) Close() error {
	// best effort close frame, the peer may already be gone
	_ = t.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return t.conn.Close()
}

// Connection is one live chat socket. Send only queues the frame; a
// per-connection write pump owns the socket, so a slow peer stalls
// nobody but itself.
type Connection struct {
	ID         string
	RemoteAddr string

	transport   Transport
	sendChannel chan []byte // outbound frames, drained by writePump

	mu      sync.Mutex // guards the queue handoff and the hold buffer
	holding bool
	pending [][]byte // frames sent while holding

	ctx       context.Context // done once the connection is closed
	cancel    context.CancelFunc
	closed    atomic.Bool
	closeOnce sync.Once
	writeErr  atomic.Pointer[error] // write error that closed the connection
}

func NewConnection(transport Transport, remoteAddr string) *Connection {
	return NewConnectionWithQueue(transport, remoteAddr, SendQueueSize)
}

// NewConnectionWithQueue starts the write pump with room for queueSize
// outbound frames.
func NewConnectionWithQueue(transport Transport, remoteAddr string, queueSize int) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		ID:          uuid.NewString(),
		RemoteAddr:  remoteAddr,
		transport:   transport,
		sendChannel: make(chan []byte, max(queueSize, 1)),
		ctx:         ctx,
		cancel:      cancel,
	}
	go c.writePump()
	return c
}

// writePump writes queued frames in order. A failed write closes the
// connection, which also ends the peer's read side.
func (c *Connection) writePump() {
	for {
		select {
		case frame := <-c.sendChannel:
			if err := c.transport.WriteMessage(frame); err != nil {
				c.writeErr.Store(&err)
				c.Close()
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// Send queues one pre-encoded frame without blocking. A full queue means
// the peer is not keeping up and is reported as ErrSendQueueFull.
func (c *Connection) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return ErrConnectionClosed
	}
	if c.holding {
		if len(c.pending) >= cap(c.sendChannel) {
			return ErrSendQueueFull
		}
		c.pending = append(c.pending, frame)
		return nil
	}
	return c.enqueueLocked(frame)
}

func (c *Connection) enqueueLocked(frame []byte) error {
	select {
	case c.sendChannel <- frame:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// SendMessage encodes msg and sends it to this connection only
func (c *Connection) SendMessage(msg ChatMessage) error {
	data, err := msg.ToJSON()
	if err != nil {
		return err
	}
	return c.Send(data)
}

// Hold parks frames sent from now on until Release. Used while a joining
// connection is already registered but its history is not yet queued.
func (c *Connection) Hold() {
	c.mu.Lock()
	c.holding = true
	c.mu.Unlock()
}

// Release queues first, then every frame parked by Hold that is not
// byte-identical to one of first, and resumes direct sends.
func (c *Connection) Release(first ...[]byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	pending := c.pending
	c.holding = false
	c.pending = nil
	if c.closed.Load() {
		return ErrConnectionClosed
	}

	for _, frame := range first {
		if err := c.enqueueLocked(frame); err != nil {
			return err
		}
	}
	for _, frame := range pending {
		if slices.ContainsFunc(first, func(f []byte) bool { return bytes.Equal(f, frame) }) {
			continue
		}
		if err := c.enqueueLocked(frame); err != nil {
			return err
		}
	}
	return nil
}

func (c *Connection) Receive() ([]byte, error) {
	return c.transport.ReadMessage()
}

// Close is safe to call more than once and from any goroutine. Frames
// still queued are dropped.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.cancel()
		err = c.transport.Close()
	})
	return err
}

func (c *Connection) IsClosed() bool {
	return c.closed.Load()
}

// Done is closed once the connection is closed
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// WriteErr returns the write error that closed the connection, if any
func (c *Connection) WriteErr() error {
	if err := c.writeErr.Load(); err != nil {
		return *err
	}
	return nil
}
