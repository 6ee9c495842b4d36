package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errBrokenPipe = errors.New("broken pipe")

// fakeTransport is an in-memory socket. Frames pushed with deliver are
// returned by ReadMessage; frames written by the server are recorded.
type fakeTransport struct {
	inbound   chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu     sync.Mutex
	sent   [][]byte
	broken bool

	// stall, when set, parks every write until it is closed or the
	// transport is closed
	stall    chan struct{}
	attempts atomic.Int64
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		inbound: make(chan []byte, 16),
		closed:  make(chan struct{}),
	}
}

func (f *fakeTransport) ReadMessage() ([]byte, error) {
	select {
	case <-f.closed:
		return nil, io.EOF
	default:
	}
	select {
	case data := <-f.inbound:
		return data, nil
	case <-f.closed:
		return nil, io.EOF
	}
}

// newStalledTransport returns a transport whose writes never complete
// until it is closed
func newStalledTransport() *fakeTransport {
	f := newFakeTransport()
	f.stall = make(chan struct{})
	return f
}

func (f *fakeTransport) WriteMessage(data []byte) error {
	f.attempts.Add(1)
	if f.stall != nil {
		select {
		case <-f.stall:
		case <-f.closed:
			return net.ErrClosed
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broken {
		return errBrokenPipe
	}
	f.sent = append(f.sent, append([]byte(nil), data...))
	return nil
}

func (f *fakeTransport) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeTransport) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

func (f *fakeTransport) breakWrites() {
	f.mu.Lock()
	f.broken = true
	f.mu.Unlock()
}

func (f *fakeTransport) deliver(s string) {
	f.inbound <- []byte(s)
}

func (f *fakeTransport) raw() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.sent...)
}

func (f *fakeTransport) frames(t *testing.T) []Frame {
	t.Helper()
	raw := f.raw()
	out := make([]Frame, 0, len(raw))
	for _, data := range raw {
		var fr Frame
		require.NoError(t, json.Unmarshal(data, &fr))
		out = append(out, fr)
	}
	return out
}

// waitFrames blocks until at least n frames were written
func (f *fakeTransport) waitFrames(t *testing.T, n int) []Frame {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(f.raw()) >= n
	}, 2*time.Second, 5*time.Millisecond, "expected %d frames", n)
	return f.frames(t)
}

// memoryStore is a MessageStore backed by a slice
type memoryStore struct {
	mu        sync.Mutex
	msgs      []ChatMessage
	appendErr error
}

func newMemoryStore(bodies ...string) *memoryStore {
	s := &memoryStore{}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, b := range bodies {
		s.msgs = append(s.msgs, ChatMessage{
			Username:  "seed",
			Body:      b,
			Kind:      KindMessage,
			Timestamp: base.Add(time.Duration(i) * time.Second),
		})
	}
	return s
}

func (s *memoryStore) Append(ctx context.Context, username, body string) (ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return ChatMessage{}, s.appendErr
	}
	msg := NewChatMessage(username, body)
	s.msgs = append(s.msgs, msg)
	return msg, nil
}

func (s *memoryStore) Recent(ctx context.Context, limit int) ([]ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit > len(s.msgs) {
		limit = len(s.msgs)
	}
	return append([]ChatMessage(nil), s.msgs[len(s.msgs)-limit:]...), nil
}

func (s *memoryStore) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.msgs)), nil
}

// gatedStore parks Recent while hold is set, until release is closed or
// the caller's context ends
type gatedStore struct {
	*memoryStore
	hold    atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func newGatedStore(bodies ...string) *gatedStore {
	return &gatedStore{
		memoryStore: newMemoryStore(bodies...),
		entered:     make(chan struct{}, 1),
		release:     make(chan struct{}),
	}
}

func (s *gatedStore) Recent(ctx context.Context, limit int) ([]ChatMessage, error) {
	if s.hold.Load() {
		select {
		case s.entered <- struct{}{}:
		default:
		}
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.memoryStore.Recent(ctx, limit)
}

// waitEntered blocks until a held Recent call is parked
func (s *gatedStore) waitEntered(t *testing.T) {
	t.Helper()
	select {
	case <-s.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("history read never started")
	}
}

func (s *memoryStore) bodies() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.msgs))
	for _, m := range s.msgs {
		out = append(out, m.Body)
	}
	return out
}

func seedBodies(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("m%d", i+1)
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHub(store MessageStore, mutate ...func(*HubConfig)) *Hub {
	cfg := DefaultHubConfig()
	cfg.IdleTimeout = time.Minute
	for _, m := range mutate {
		m(&cfg)
	}
	return NewHub(store, cfg, quietLogger())
}

// joined starts a session over a fake transport and waits for the
// history replay plus welcome to arrive.
type joinedClient struct {
	transport *fakeTransport
	done      chan error
}

func join(t *testing.T, ctx context.Context, hub *Hub, history int) *joinedClient {
	t.Helper()
	tr := newFakeTransport()
	done := make(chan error, 1)
	go func() {
		done <- hub.Serve(ctx, tr, "test")
	}()
	tr.waitFrames(t, history+1)
	return &joinedClient{transport: tr, done: done}
}

func (c *joinedClient) waitDone(t *testing.T) error {
	t.Helper()
	select {
	case err := <-c.done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("session did not finish")
		return nil
	}
}
