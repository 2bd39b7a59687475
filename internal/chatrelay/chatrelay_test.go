package chatrelay

import (
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/ssvr/zoneserver/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnection_ExtractLine_SplitsOnCROrLF(t *testing.T) {
	c := newConnection(nil, 64, 0)
	c.inBuf = append(c.inBuf, []byte("hello\r\nworld\n")...)

	line, ok := c.extractLine()
	require.True(t, ok)
	assert.Equal(t, "hello", line)

	line, ok = c.extractLine()
	require.True(t, ok)
	assert.Equal(t, "world", line)

	_, ok = c.extractLine()
	assert.False(t, ok)
}

func TestConnection_BufferFullWithoutLineIsDetected(t *testing.T) {
	c := newConnection(nil, 4, 0)
	c.inBuf = append(c.inBuf, []byte("abcd")...)
	assert.True(t, c.bufferFull())
}

func TestDispatcher_SplitsOnFirstColon(t *testing.T) {
	d := NewDispatcher()
	var gotRest string
	d.Register("SEND", func(r *Reactor, conn Conn, rest string) []byte {
		gotRest = rest
		return []byte("ack\r\n")
	})

	reply := d.Dispatch(nil, nil, "SEND:hello:world")
	assert.Equal(t, "hello:world", gotRest)
	assert.Equal(t, []byte("ack\r\n"), reply)
}

func TestDispatcher_UnknownTypeReturnsNil(t *testing.T) {
	d := NewDispatcher()
	assert.Nil(t, d.Dispatch(nil, nil, "UNKNOWN:x"))
}

func TestReactor_LineDispatchedAndReplyFlushed(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	t.Cleanup(func() { clientConn.Close() })

	d := NewDispatcher()
	d.Register("SEND", func(r *Reactor, conn Conn, rest string) []byte {
		return []byte("got:" + rest + "\n")
	})

	r := NewReactor(config.ChatConfig{MessageDelayMs: 0, InBufferSize: 256}, d, slog.Default(), nil)
	conn := newConnection(serverConn, 256, 0)
	r.conns = []*connection{conn}

	// net.Pipe is unbuffered: this write completes only once the
	// reactor's tick below reads it.
	go func() {
		_, _ = clientConn.Write([]byte("SEND:ping\n"))
	}()

	readDone := make(chan string, 1)
	go func() {
		buf := make([]byte, 64)
		n, err := clientConn.Read(buf)
		if err != nil {
			readDone <- ""
			return
		}
		readDone <- string(buf[:n])
	}()

	deadline := time.After(2 * time.Second)
	for {
		r.tick()
		select {
		case got := <-readDone:
			assert.Equal(t, "got:ping\n", got)
			return
		case <-deadline:
			t.Fatal("timed out waiting for dispatched reply")
		default:
		}
	}
}

func TestReactor_DisconnectOnEOFTransitionsPlayer(t *testing.T) {
	serverConn, clientConn := net.Pipe()

	var disconnected string
	r := NewReactor(config.ChatConfig{InBufferSize: 64}, NewDispatcher(), slog.Default(), func(playerID string) {
		disconnected = playerID
	})
	conn := newConnection(serverConn, 64, 0)
	conn.playerID = "alice"
	r.conns = []*connection{conn}

	clientConn.Close()

	deadline := time.After(2 * time.Second)
	for {
		r.tick()
		if disconnected == "alice" {
			return
		}
		select {
		case <-deadline:
			t.Fatal("expected disconnect callback to fire")
		default:
		}
	}
}

func TestReactor_DeliverEnqueuesOnMatchingConnections(t *testing.T) {
	d := NewDispatcher()
	r := NewReactor(config.ChatConfig{InBufferSize: 64}, d, slog.Default(), nil)

	a := newConnection(nil, 64, 0)
	a.playerID = "alice"
	b := newConnection(nil, 64, 0)
	b.playerID = "bob"
	r.conns = []*connection{a, b}

	r.Deliver(func(c Conn) bool { return c.PlayerID() == "bob" }, []byte("hi\r\n"))

	_, gotA := a.peekOut()
	msg, gotB := b.peekOut()
	assert.False(t, gotA)
	require.True(t, gotB)
	assert.Equal(t, []byte("hi\r\n"), msg)
}
