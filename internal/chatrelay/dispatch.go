package chatrelay

import "strings"

// Handler processes one decoded chat line's payload for a connection,
// returning the reply to enqueue (nil for no reply).
type Handler func(r *Reactor, conn Conn, rest string) []byte

// Dispatcher is a type→handler table, selected by the first ':' in an
// incoming line.
type Dispatcher struct {
	handlers map[string]Handler
}

// NewDispatcher creates an empty dispatch table.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

// Register installs the handler for a message type.
func (d *Dispatcher) Register(msgType string, h Handler) {
	d.handlers[msgType] = h
}

// Dispatch splits line on its first ':' and invokes the registered
// handler, if any.
func (d *Dispatcher) Dispatch(r *Reactor, conn Conn, line string) []byte {
	msgType, rest, found := strings.Cut(line, ":")
	if !found {
		msgType, rest = line, ""
	}
	h, ok := d.handlers[msgType]
	if !ok {
		return nil
	}
	return h(r, conn, rest)
}
