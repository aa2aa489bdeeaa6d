package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second

	sendBufferSize = 128
)

// ErrConnClosed is returned by Send after the connection has shut down.
var ErrConnClosed = errors.New("connection closed")

// ErrBufferFull is returned by Send when the outbound buffer is full. The
// payload is dropped; a slow client loses pushes rather than stalling the
// dispatcher.
var ErrBufferFull = errors.New("send buffer full")

// wire is the subset of *websocket.Conn the write side needs. Tests
// substitute an in-memory implementation.
type wire interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Connection wraps a websocket and coordinates outbound writes via a
// buffered channel. One Connection corresponds to one live channel of one
// identity (a user may hold several at once); it is safe for concurrent use.
type Connection struct {
	ID     string
	UserID uint64

	ws    wire
	send  chan []byte
	once  sync.Once
	close chan struct{}
}

// NewConnection constructs a Connection for the given user.
func NewConnection(userID uint64, ws wire) *Connection {
	return &Connection{
		ID:     uuid.NewString(),
		UserID: userID,
		ws:     ws,
		send:   make(chan []byte, sendBufferSize),
		close:  make(chan struct{}),
	}
}

// Start launches the write loop. It must be called exactly once per connection.
func (c *Connection) Start() {
	go c.writeLoop()
}

// Send enqueues payload for delivery without blocking. Pushes are
// fire-and-forget: a closed connection or a full buffer surfaces as an error
// to the caller and nothing else.
func (c *Connection) Send(payload []byte) error {
	select {
	case <-c.close:
		return ErrConnClosed
	default:
	}

	select {
	case <-c.close:
		return ErrConnClosed
	case c.send <- payload:
		return nil
	default:
		return ErrBufferFull
	}
}

// Close terminates the connection and stops the write loop.
func (c *Connection) Close(code int, reason string) {
	c.once.Do(func() {
		close(c.close)
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
		_ = c.ws.Close()
	})
}

func (c *Connection) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.close:
			return
		case msg := <-c.send:
			if err := c.writeMessage(msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.writePing(); err != nil {
				return
			}
		}
	}
}

func (c *Connection) writeMessage(payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

func (c *Connection) writePing() error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.PingMessage, nil)
}
