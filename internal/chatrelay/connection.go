// Package chatrelay implements the chat-only TCP listener: a
// single-threaded, readiness-based reactor ticking at 100 ms, framing
// incoming lines on CR/LF and dispatching on a "type:rest" split.
package chatrelay

import (
	"net"
	"sync"
	"time"
)

const (
	keepAliveIdle = 3 * time.Minute
	readPollDelay = 10 * time.Millisecond
)

// connection is one chat client's reactor-owned state. The
// input side is only ever touched from the reactor goroutine; the
// outbound queue also takes enqueues from other goroutines (zone and
// peer messages), so it sits behind its own mutex, held only across
// node insertion and removal.
type connection struct {
	socket net.Conn

	inBuf   []byte
	inPos   int
	inDirty bool

	outMu    sync.Mutex
	outQueue [][]byte

	lastSend      time.Time
	lastRecv      time.Time
	lastProcessed time.Time

	messageDelay time.Duration
	playerID     string

	closed bool
}

func newConnection(socket net.Conn, inBufSize int, delay time.Duration) *connection {
	now := time.Now()
	return &connection{
		socket:        socket,
		inBuf:         make([]byte, 0, inBufSize),
		lastSend:      now,
		lastRecv:      now,
		lastProcessed: now,
		messageDelay:  delay,
	}
}

// enqueue appends data to the connection's outbound queue.
func (c *connection) enqueue(data []byte) {
	c.outMu.Lock()
	c.outQueue = append(c.outQueue, data)
	c.outMu.Unlock()
}

// peekOut returns the head of the outbound queue without removing it.
func (c *connection) peekOut() ([]byte, bool) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	if len(c.outQueue) == 0 {
		return nil, false
	}
	return c.outQueue[0], true
}

// replaceHead overwrites the head of the outbound queue with the
// unwritten remainder of a short write.
func (c *connection) replaceHead(rest []byte) {
	c.outMu.Lock()
	if len(c.outQueue) > 0 {
		c.outQueue[0] = rest
	}
	c.outMu.Unlock()
}

// popOut removes the head of the outbound queue.
func (c *connection) popOut() {
	c.outMu.Lock()
	if len(c.outQueue) > 0 {
		c.outQueue = c.outQueue[1:]
	}
	c.outMu.Unlock()
}

// Conn is the surface a registered Handler sees for the connection its
// line arrived on — everything a handler needs without exposing the
// reactor's internal buffering fields.
type Conn interface {
	RemoteAddr() string
	PlayerID() string
	BindPlayer(id string)
	Enqueue(data []byte)
}

// RemoteAddr returns the underlying socket's remote address string.
func (c *connection) RemoteAddr() string { return c.socket.RemoteAddr().String() }

// PlayerID returns the player id this connection was bound to at
// login, or "" if it hasn't logged in yet.
func (c *connection) PlayerID() string { return c.playerID }

// BindPlayer associates this connection with a logged-in player id.
func (c *connection) BindPlayer(id string) { c.playerID = id }

// Enqueue appends data to the connection's outbound queue.
func (c *connection) Enqueue(data []byte) { c.enqueue(data) }

// extractLine pulls the first CR/LF-terminated line out of inBuf, if
// any, shifting the remainder down. Leading CR/LF bytes (such as the
// LF of a CR LF pair) are skipped, so empty lines are never returned.
func (c *connection) extractLine() (line string, ok bool) {
	start := 0
	for start < len(c.inBuf) && (c.inBuf[start] == '\r' || c.inBuf[start] == '\n') {
		start++
	}
	for i := start; i < len(c.inBuf); i++ {
		if b := c.inBuf[i]; b == '\r' || b == '\n' {
			line = string(c.inBuf[start:i])
			rest := c.inBuf[i+1:]
			c.inBuf = append(c.inBuf[:0], rest...)
			c.inPos = len(c.inBuf)
			return line, true
		}
	}
	if start > 0 {
		c.inBuf = append(c.inBuf[:0], c.inBuf[start:]...)
		c.inPos = len(c.inBuf)
	}
	return "", false
}

// bufferFull reports whether inBuf is at capacity. The caller checks
// for a complete line first, so a true result there is the
// "full-line-less buffer at capacity" disconnect condition.
func (c *connection) bufferFull() bool {
	return len(c.inBuf) >= cap(c.inBuf)
}
