package chatrelay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/ssvr/zoneserver/internal/config"
)

// DisconnectFunc is invoked when a connection is closed, so the owner
// can transition the corresponding player to LeavingZone.
type DisconnectFunc func(playerID string)

// Reactor is the single-threaded chat-only TCP reactor. Reads,
// line processing and flushes all happen on Run's goroutine; the
// Accept loop hands off new sockets via a channel, and Deliver may
// enqueue outbound messages from any goroutine.
type Reactor struct {
	cfg          config.ChatConfig
	dispatcher   *Dispatcher
	logger       *slog.Logger
	onDisconnect DisconnectFunc

	readPool *BytePool

	incoming chan net.Conn

	connsMu sync.RWMutex
	conns   []*connection
}

// NewReactor constructs a Reactor. Call Accept in its own goroutine
// and Run to drive the tick loop.
func NewReactor(cfg config.ChatConfig, dispatcher *Dispatcher, logger *slog.Logger, onDisconnect DisconnectFunc) *Reactor {
	inBuf := cfg.InBufferSize
	if inBuf <= 0 {
		inBuf = 512
	}
	return &Reactor{
		cfg:          cfg,
		dispatcher:   dispatcher,
		logger:       logger,
		onDisconnect: onDisconnect,
		readPool:     NewBytePool(inBuf),
		incoming:     make(chan net.Conn, 64),
	}
}

// Accept runs the listener's accept loop, handing each new connection
// to the reactor over a channel. Run separately from Run.
func (r *Reactor) Accept(ctx context.Context, ln net.Listener) {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			r.logger.Error("chatrelay: accept failed", "error", err)
			continue
		}
		select {
		case r.incoming <- conn:
		case <-ctx.Done():
			conn.Close()
			return
		}
	}
}

func (r *Reactor) messageDelay() time.Duration {
	if r.cfg.MessageDelayMs <= 0 {
		return 200 * time.Millisecond
	}
	return time.Duration(r.cfg.MessageDelayMs) * time.Millisecond
}

func (r *Reactor) inBufferSize() int {
	if r.cfg.InBufferSize <= 0 {
		return 512
	}
	return r.cfg.InBufferSize
}

// Run drives the 100 ms tick loop until ctx is canceled.
func (r *Reactor) Run(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return ctx.Err()
		case conn := <-r.incoming:
			r.connsMu.Lock()
			r.conns = append(r.conns, newConnection(conn, r.inBufferSize(), r.messageDelay()))
			r.connsMu.Unlock()
		case <-ticker.C:
			r.tick()
		}
	}
}

func (r *Reactor) tick() {
	now := time.Now()

	r.connsMu.RLock()
	snapshot := make([]*connection, len(r.conns))
	copy(snapshot, r.conns)
	r.connsMu.RUnlock()

	dropped := false
	for _, c := range snapshot {
		if c.closed {
			dropped = true
			continue
		}
		r.serviceConn(c, now)
		if c.closed {
			dropped = true
			if r.onDisconnect != nil && c.playerID != "" {
				r.onDisconnect(c.playerID)
			}
		}
	}
	if !dropped {
		return
	}

	r.connsMu.Lock()
	live := r.conns[:0]
	for _, c := range r.conns {
		if !c.closed {
			live = append(live, c)
		}
	}
	r.conns = live
	r.connsMu.Unlock()
}

// Deliver enqueues data on every live connection pred accepts — the
// single filtered-delivery operation every scoped send surface
// (player, arena, zone) is an adapter over. Safe to call from any
// goroutine; the next tick flushes what it queues.
func (r *Reactor) Deliver(pred func(Conn) bool, data []byte) {
	r.connsMu.RLock()
	defer r.connsMu.RUnlock()
	for _, c := range r.conns {
		if c.closed {
			continue
		}
		if pred == nil || pred(c) {
			c.enqueue(data)
		}
	}
}

func (r *Reactor) serviceConn(c *connection, now time.Time) {
	r.readReady(c, now)
	if c.closed {
		return
	}
	r.processBuffered(c, now)
	if c.closed {
		return
	}
	r.flushOutbound(c, now)
	if c.closed {
		return
	}
	r.maybeKeepAlive(c, now)
}

// readReady does one non-blocking-ish read attempt via a short
// deadline.
func (r *Reactor) readReady(c *connection, now time.Time) {
	buf := r.readPool.Get(r.inBufferSize())
	defer r.readPool.Put(buf)

	_ = c.socket.SetReadDeadline(now.Add(readPollDelay))
	n, err := c.socket.Read(buf)
	if n > 0 {
		c.inBuf = append(c.inBuf, buf[:n]...)
		c.inDirty = true
		c.lastRecv = now
	}
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return
		}
		if errors.Is(err, io.EOF) || n == 0 {
			r.disconnect(c)
			return
		}
		r.disconnect(c)
		return
	}
	if c.bufferFull() {
		if _, ok := c.extractLine(); !ok {
			r.disconnect(c)
		}
	}
}

func (r *Reactor) processBuffered(c *connection, now time.Time) {
	if !c.inDirty {
		return
	}
	if now.Sub(c.lastProcessed) < c.messageDelay {
		return
	}
	for {
		line, ok := c.extractLine()
		if !ok {
			break
		}
		c.lastProcessed = now
		if reply := r.dispatcher.Dispatch(r, c, line); reply != nil {
			c.enqueue(reply)
		}
	}
	if len(c.inBuf) == 0 {
		c.inDirty = false
	}
}

func (r *Reactor) flushOutbound(c *connection, now time.Time) {
	for {
		msg, ok := c.peekOut()
		if !ok {
			return
		}
		_ = c.socket.SetWriteDeadline(now.Add(readPollDelay))
		n, err := c.socket.Write(msg)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return
			}
			r.disconnect(c)
			return
		}
		if n < len(msg) {
			c.replaceHead(msg[n:])
			return
		}
		c.popOut()
		c.lastSend = now
	}
}

func (r *Reactor) maybeKeepAlive(c *connection, now time.Time) {
	if now.Sub(c.lastSend) > keepAliveIdle && now.Sub(c.lastProcessed) > keepAliveIdle {
		c.enqueue([]byte("NOOP\r\n"))
	}
}

func (r *Reactor) disconnect(c *connection) {
	c.closed = true
	_ = c.socket.Close()
}

func (r *Reactor) closeAll() {
	r.connsMu.Lock()
	defer r.connsMu.Unlock()
	for _, c := range r.conns {
		if !c.closed {
			_ = c.socket.Close()
			c.closed = true
		}
	}
}
