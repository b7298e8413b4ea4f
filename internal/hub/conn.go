package hub

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Conn is one push connection. The zero value is not usable; connections
// are created by the hub.
type Conn struct {
	id   string
	ws   *websocket.Conn // nil for connections not backed by a socket
	send chan []byte

	mu     sync.Mutex
	userID string
	closed bool
}

func newConn(ws *websocket.Conn, buffer int) *Conn {
	if buffer < 1 {
		buffer = 1
	}
	return &Conn{
		id:   uuid.NewString(),
		ws:   ws,
		send: make(chan []byte, buffer),
	}
}

// ID returns the connection's unique id, used in logs.
func (c *Conn) ID() string { return c.id }

// UserID returns the bound user, or "" while unauthenticated.
func (c *Conn) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// Outbound returns the channel of encoded frames waiting to be written.
// It is closed when the connection is removed from the hub.
func (c *Conn) Outbound() <-chan []byte { return c.send }

// trySend queues a frame without blocking. It reports false when the
// connection is closed or its buffer is full.
func (c *Conn) trySend(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// close marks the connection closed and closes its outbound channel once.
func (c *Conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Conn) bind(userID string) {
	c.mu.Lock()
	c.userID = userID
	c.mu.Unlock()
}
