// Package router implements the single entry point for received
// datagrams: peer-packet detection, then a first-byte opcode
// dispatch table. It makes no transport decisions of its own —
// handlers decide reliable vs unreliable delivery.
package router

import (
	"log/slog"

	"github.com/ssvr/zoneserver/internal/peer"
)

// Transport is the send side of the reliable-UDP layer handlers
// publish through — an external collaborator; the router
// itself never sends. Reliable delivery retries until acknowledged,
// unreliable is fire-and-forget and droppable.
type Transport interface {
	SendReliable(remoteAddr string, data []byte)
	SendUnreliable(remoteAddr string, data []byte)
}

// GameHandler processes one decoded game packet for a connection
// identified by remoteAddr, writing any reply via the Transport it was
// registered against.
type GameHandler func(remoteAddr string, body []byte)

// PeerHandler processes one raw peer-federation packet,
// typically peer.Manager.HandlePacket.
type PeerHandler func(remoteAddr string, data []byte)

// Router dispatches each inbound datagram to a peer handler or a
// game opcode handler via a flat opcode table; the router itself is
// state-agnostic (state dispatch happens inside the player FSM).
type Router struct {
	logger   *slog.Logger
	peer     PeerHandler
	byOpcode map[byte]GameHandler
}

// New constructs a Router. peerHandler may be nil to disable peer
// packet recognition (e.g. in tests exercising only game dispatch).
func New(logger *slog.Logger, peerHandler PeerHandler) *Router {
	return &Router{
		logger:   logger,
		peer:     peerHandler,
		byOpcode: make(map[byte]GameHandler),
	}
}

// Register installs the handler for a game packet opcode.
func (r *Router) Register(opcode byte, h GameHandler) {
	r.byOpcode[opcode] = h
}

// Dispatch routes one datagram: peer packets first, then the game
// opcode table, unknown opcodes dropped.
func (r *Router) Dispatch(remoteAddr string, data []byte) {
	if peer.LooksLikePeerPacket(data) {
		if r.peer != nil {
			r.peer(remoteAddr, data)
		}
		return
	}

	if len(data) == 0 {
		r.logger.Debug("router: empty packet dropped", "remote", remoteAddr)
		return
	}

	opcode := data[0]
	h, ok := r.byOpcode[opcode]
	if !ok {
		r.logger.Debug("router: unknown opcode dropped", "remote", remoteAddr, "opcode", opcode)
		return
	}
	h(remoteAddr, data[1:])
}
