package realtime

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeWire records writes in memory in place of a real websocket.
type fakeWire struct {
	mu       sync.Mutex
	messages [][]byte
	closed   bool
}

func (f *fakeWire) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if data != nil {
		f.messages = append(f.messages, data)
	}
	return nil
}

func (f *fakeWire) WriteControl(messageType int, data []byte, deadline time.Time) error {
	return nil
}

func (f *fakeWire) SetWriteDeadline(t time.Time) error {
	return nil
}

func (f *fakeWire) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeWire) messageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func TestConnectionSendAfterClose(t *testing.T) {
	conn := NewConnection(1, &fakeWire{})
	conn.Close(1000, "bye")

	err := conn.Send([]byte("hello"))
	assert.ErrorIs(t, err, ErrConnClosed)
}

func TestConnectionSendDropsWhenBufferFull(t *testing.T) {
	// The write loop is not started, so the buffer only fills.
	conn := NewConnection(1, &fakeWire{})

	for i := 0; i < sendBufferSize; i++ {
		assert.NoError(t, conn.Send([]byte("payload")))
	}
	err := conn.Send([]byte("one too many"))
	assert.ErrorIs(t, err, ErrBufferFull)
}

func TestConnectionWriteLoopDelivers(t *testing.T) {
	ws := &fakeWire{}
	conn := NewConnection(1, ws)
	conn.Start()
	defer conn.Close(1000, "")

	assert.NoError(t, conn.Send([]byte("hello")))

	assert.Eventually(t, func() bool {
		return ws.messageCount() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestRegistryChannelsForSnapshot(t *testing.T) {
	registry := NewRegistry()
	defer registry.Close()

	conn1 := NewConnection(1, &fakeWire{})
	conn2 := NewConnection(1, &fakeWire{})
	conn3 := NewConnection(2, &fakeWire{})
	registry.Register(conn1)
	registry.Register(conn2)
	registry.Register(conn3)

	assert.Len(t, registry.ChannelsFor(1), 2)
	assert.Len(t, registry.ChannelsFor(2), 1)
	assert.Nil(t, registry.ChannelsFor(99))

	registry.Unregister(conn1)
	assert.Len(t, registry.ChannelsFor(1), 1)

	registry.Unregister(conn2)
	assert.Nil(t, registry.ChannelsFor(1))
}

func TestRegistryUnregisterIsIdempotent(t *testing.T) {
	registry := NewRegistry()
	defer registry.Close()

	conn := NewConnection(1, &fakeWire{})
	registry.Register(conn)
	registry.Unregister(conn)
	registry.Unregister(conn)

	assert.Nil(t, registry.ChannelsFor(1))
}

func TestRegistryWatchBroadcast(t *testing.T) {
	registry := NewRegistry()
	defer registry.Close()

	ws := &fakeWire{}
	watcher := NewConnection(1, ws)
	bystander := NewConnection(2, &fakeWire{})
	registry.Register(watcher)
	registry.Register(bystander)

	registry.Watch(42, watcher)

	delivered := registry.BroadcastTask(42, []byte("update"))
	assert.Equal(t, 1, delivered)

	registry.Unwatch(42, watcher)
	delivered = registry.BroadcastTask(42, []byte("update"))
	assert.Equal(t, 0, delivered)
}

func TestRegistryWatchRequiresRegistration(t *testing.T) {
	registry := NewRegistry()
	defer registry.Close()

	stray := NewConnection(1, &fakeWire{})
	registry.Watch(42, stray)

	assert.Equal(t, 0, registry.BroadcastTask(42, []byte("update")))
}

func TestRegistryUnregisterClearsWatches(t *testing.T) {
	registry := NewRegistry()
	defer registry.Close()

	conn := NewConnection(1, &fakeWire{})
	registry.Register(conn)
	registry.Watch(42, conn)
	registry.Watch(43, conn)

	registry.Unregister(conn)

	assert.Equal(t, 0, registry.BroadcastTask(42, []byte("update")))
	assert.Equal(t, 0, registry.BroadcastTask(43, []byte("update")))
}

func TestRegistryCloseTerminatesConnections(t *testing.T) {
	registry := NewRegistry()

	ws := &fakeWire{}
	conn := NewConnection(1, ws)
	registry.Register(conn)

	registry.Close()

	assert.Nil(t, registry.ChannelsFor(1))
	assert.ErrorIs(t, conn.Send([]byte("late")), ErrConnClosed)
}
