package websocket

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcast_DeliversToEveryConnection(t *testing.T) {
	r := NewRegistry(quietLogger())
	b := NewBroadcaster(r, quietLogger())

	transports := make([]*fakeTransport, 3)
	for i := range transports {
		transports[i] = newFakeTransport()
		require.NoError(t, r.Register(NewConnection(transports[i], "test")))
	}

	b.Broadcast(NewChatMessage("alice", "hi"))

	for _, tr := range transports {
		frames := tr.waitFrames(t, 1)
		require.Len(t, frames, 1)
		assert.Equal(t, "alice", frames[0].Username)
		assert.Equal(t, "hi", frames[0].Message)
		assert.Equal(t, KindMessage, frames[0].Type)
	}
}

func TestBroadcast_PrunesFailedConnection(t *testing.T) {
	r := NewRegistry(quietLogger())
	b := NewBroadcaster(r, quietLogger())

	healthy := make([]*fakeTransport, 4)
	for i := range healthy {
		healthy[i] = newFakeTransport()
		require.NoError(t, r.Register(NewConnection(healthy[i], "test")))
	}
	broken := newFakeTransport()
	broken.breakWrites()
	brokenConn := NewConnection(broken, "test")
	require.NoError(t, r.Register(brokenConn))

	b.Broadcast(NewChatMessage("alice", "hi"))

	for _, tr := range healthy {
		tr.waitFrames(t, 1)
	}
	require.Eventually(t, func() bool {
		return !r.Contains(brokenConn)
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, brokenConn.IsClosed())
	assert.True(t, broken.isClosed())
	assert.ErrorIs(t, brokenConn.WriteErr(), errBrokenPipe)
	assert.Equal(t, 4, r.Len())
}

func TestBroadcast_EmptyRegistry(t *testing.T) {
	r := NewRegistry(quietLogger())
	b := NewBroadcaster(r, quietLogger())

	assert.NotPanics(t, func() {
		b.Broadcast(NewChatMessage("alice", "hi"))
	})
}

func TestBroadcast_PreservesOrder(t *testing.T) {
	r := NewRegistry(quietLogger())
	b := NewBroadcaster(r, quietLogger())
	tr := newFakeTransport()
	require.NoError(t, r.Register(NewConnection(tr, "test")))

	for i := 0; i < 20; i++ {
		b.Broadcast(NewChatMessage("alice", fmt.Sprintf("m%d", i)))
	}

	frames := tr.waitFrames(t, 20)
	require.Len(t, frames, 20)
	for i, f := range frames {
		assert.Equal(t, fmt.Sprintf("m%d", i), f.Message)
	}
}

func TestBroadcast_StalledPeerDoesNotBlock(t *testing.T) {
	r := NewRegistry(quietLogger())
	b := NewBroadcaster(r, quietLogger())

	stalled := newStalledTransport()
	require.NoError(t, r.Register(NewConnection(stalled, "test")))
	healthy := newFakeTransport()
	require.NoError(t, r.Register(NewConnection(healthy, "test")))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			b.Broadcast(NewChatMessage("alice", fmt.Sprintf("m%d", i)))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a stalled peer")
	}
	healthy.waitFrames(t, 5)
	require.Eventually(t, func() bool {
		return stalled.attempts.Load() == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestBroadcast_PrunesPeerWithFullQueue(t *testing.T) {
	r := NewRegistry(quietLogger())
	b := NewBroadcaster(r, quietLogger())

	stalled := newStalledTransport()
	slow := NewConnectionWithQueue(stalled, "test", 2)
	require.NoError(t, r.Register(slow))
	healthy := newFakeTransport()
	require.NoError(t, r.Register(NewConnection(healthy, "test")))

	// one frame parked in the write, two queued, the fourth overflows
	b.Broadcast(NewChatMessage("alice", "m0"))
	require.Eventually(t, func() bool {
		return stalled.attempts.Load() == 1
	}, 2*time.Second, 5*time.Millisecond)
	for i := 1; i < 4; i++ {
		b.Broadcast(NewChatMessage("alice", fmt.Sprintf("m%d", i)))
	}

	assert.False(t, r.Contains(slow))
	assert.True(t, slow.IsClosed())
	assert.True(t, stalled.isClosed())
	assert.Equal(t, 1, r.Len())
	assert.Len(t, healthy.waitFrames(t, 4), 4)
}

func TestConnection_HoldParksUntilRelease(t *testing.T) {
	tr := newFakeTransport()
	conn := NewConnection(tr, "test")

	conn.Hold()
	require.NoError(t, conn.SendMessage(NewSystemMessage(KindInfo, "live")))
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, tr.raw())

	private, err := NewSystemMessage(KindInfo, "private").ToJSON()
	require.NoError(t, err)
	require.NoError(t, conn.Release(private))

	frames := tr.waitFrames(t, 2)
	require.Len(t, frames, 2)
	assert.Equal(t, "private", frames[0].Message)
	assert.Equal(t, "live", frames[1].Message)
}

func TestConnection_ReleaseSkipsReplayedFrames(t *testing.T) {
	tr := newFakeTransport()
	conn := NewConnection(tr, "test")

	msg := NewChatMessage("alice", "both")
	data, err := msg.ToJSON()
	require.NoError(t, err)

	conn.Hold()
	require.NoError(t, conn.SendMessage(msg))
	require.NoError(t, conn.Release(data))

	frames := tr.waitFrames(t, 1)
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, tr.raw(), 1)
	assert.Equal(t, "both", frames[0].Message)
}

func TestConnection_HoldBufferIsBounded(t *testing.T) {
	conn := NewConnectionWithQueue(newFakeTransport(), "test", 2)

	conn.Hold()
	require.NoError(t, conn.Send([]byte(`{}`)))
	require.NoError(t, conn.Send([]byte(`{}`)))
	assert.ErrorIs(t, conn.Send([]byte(`{}`)), ErrSendQueueFull)
}

func TestConnection_SendAfterClose(t *testing.T) {
	conn := NewConnection(newFakeTransport(), "test")
	require.NoError(t, conn.Close())

	assert.ErrorIs(t, conn.Send([]byte(`{}`)), ErrConnectionClosed)
	assert.ErrorIs(t, conn.Release(), ErrConnectionClosed)
	select {
	case <-conn.Done():
	default:
		t.Fatal("Done not closed")
	}
}
