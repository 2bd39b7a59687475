package main

import (
	"context"
	"crypto/rand"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ssvr/zoneserver/internal/authn"
	"github.com/ssvr/zoneserver/internal/capability"
	"github.com/ssvr/zoneserver/internal/chatrelay"
	"github.com/ssvr/zoneserver/internal/lvz"
	"github.com/ssvr/zoneserver/internal/player"
)

// registerChatHandlers installs the simple-chat-protocol's type→handler
// table. Every scoped send surface below is a thin adapter over
// Reactor.Deliver's filtered delivery.
func (z *zoneServer) registerChatHandlers() {
	z.chatDispatch.Register("LOGIN", z.handleChatLogin)
	z.chatDispatch.Register("GO", z.handleChatGo)
	z.chatDispatch.Register("LEAVE", z.handleChatLeave)
	z.chatDispatch.Register("CHAT", z.handleChatMessage)
	z.chatDispatch.Register("SEND", z.handleChatSend)
	z.chatDispatch.Register("ZONE", z.handleChatZone)
	z.chatDispatch.Register("NOOP", z.handleChatNoop)
}

// handleChatLogin authenticates a text-only client through the same
// authn.Pipeline as game clients, then resolves its capability group
// and caches the LVZ rebroadcast permission derived from it.
func (z *zoneServer) handleChatLogin(r *chatrelay.Reactor, conn chatrelay.Conn, rest string) []byte {
	name, password, ok := strings.Cut(rest, ":")
	if !ok {
		return chatLine("LOGINBAD:malformed request")
	}

	ctx := context.Background()
	res, err := z.authn.Authenticate(ctx, authn.Request{Name: name, Password: password})
	if err != nil || res.Code != authn.CodeOK {
		return chatLine("LOGINBAD:" + res.Code.String())
	}

	id := newPlayerID()
	p := player.New(id, res.SendName)
	p.SetAuthenticated(res.Authenticated)
	p.SetState(player.Loggedin)

	group, _, err := z.caps.ResolveGroup(ctx, "", strings.ToLower(res.SendName), res.Authenticated)
	if err != nil {
		slog.Warn("group resolution failed, using default", "player", res.SendName, "error", err)
		group = capability.DefaultGroup
	}
	player.SetSlot(p, groupSlot, group)
	player.SetSlot(p, lvzPermSlot, z.lvzPermissionFor(ctx, group))

	conn.BindPlayer(idKey(id))
	z.players.AddChat(p)

	return chatLine("LOGINOK:" + res.SendName)
}

func (z *zoneServer) lvzPermissionFor(ctx context.Context, group string) lvz.Permission {
	if ok, _ := z.caps.HasCapability(ctx, group, "broadcastany"); ok {
		return lvz.PermissionAny
	}
	if ok, _ := z.caps.HasCapability(ctx, group, "broadcastbot"); ok {
		return lvz.PermissionBot
	}
	return lvz.PermissionNone
}

// handleChatGo places the session in the requested arena, creating it
// on first entry. The create path waits on PreCreate holds, so
// it runs off the reactor goroutine; the reply is enqueued when the
// arena is up.
func (z *zoneServer) handleChatGo(r *chatrelay.Reactor, conn chatrelay.Conn, rest string) []byte {
	p := z.players.byID(conn.PlayerID())
	if p == nil {
		return chatLine("MSG:ERR:not logged in")
	}
	requested := rest
	if requested == "" {
		requested = "0"
	}

	p.SetState(player.DoFreqAndArenaSync)
	go func() {
		a, err := z.findOrCreateArena(requested)
		if err != nil {
			slog.Warn("arena entry failed", "player", p.Name(), "arena", requested, "error", err)
			p.SetState(player.Loggedin)
			conn.Enqueue(chatLine("MSG:ERR:could not enter arena"))
			return
		}
		p.SetArena(a.Name())
		// The intermediate sync states carry game-client map and
		// settings transfer; a chat session has nothing to sync and
		// lands in Playing as a permanent spectator.
		p.SetState(player.Playing)
		conn.Enqueue(chatLine("INARENA:" + a.Name() + ":" + strconv.Itoa(int(p.Freq()))))
	}()
	return nil
}

func (z *zoneServer) handleChatLeave(r *chatrelay.Reactor, conn chatrelay.Conn, rest string) []byte {
	p := z.players.byID(conn.PlayerID())
	if p == nil || p.Arena() == "" {
		return nil
	}
	p.SetState(player.LeavingArena)
	p.SetArena("")
	p.SetState(player.Loggedin)
	return nil
}

// handleChatMessage relays a public line to every chat session in the
// sender's arena.
func (z *zoneServer) handleChatMessage(r *chatrelay.Reactor, conn chatrelay.Conn, rest string) []byte {
	p := z.players.byID(conn.PlayerID())
	if p == nil {
		return chatLine("MSG:ERR:not logged in")
	}
	if !p.CanSendReliableChat() {
		return chatLine("MSG:ERR:not permitted")
	}
	arenaName := p.Arena()
	if arenaName == "" {
		return chatLine("MSG:ERR:not in an arena")
	}

	line := chatLine("MSG:PUB:" + p.Name() + ":" + rest)
	z.chatReactor.Deliver(func(c chatrelay.Conn) bool {
		other := z.players.byID(c.PlayerID())
		return other != nil && other.Arena() == arenaName
	}, line)
	return nil
}

// handleChatSend delivers a private message ("SEND:target:text"). A
// target not connected locally is looked up across the peer rosters.
func (z *zoneServer) handleChatSend(r *chatrelay.Reactor, conn chatrelay.Conn, rest string) []byte {
	p := z.players.byID(conn.PlayerID())
	if p == nil {
		return chatLine("MSG:ERR:not logged in")
	}
	target, text, ok := strings.Cut(rest, ":")
	if !ok || target == "" {
		return chatLine("MSG:ERR:malformed private message")
	}

	if tp := z.players.byName(target); tp != nil {
		key := idKey(tp.ID())
		z.chatReactor.Deliver(func(c chatrelay.Conn) bool {
			return c.PlayerID() == key
		}, chatLine("MSG:PRIV:"+p.Name()+":"+text))
		return nil
	}

	if match, found := z.peerMgr.FindPlayer(target); found {
		return chatLine("MSG:SYS:" + match.Player + " is in arena " + match.Arena + " on " + match.ZoneKey)
	}
	return chatLine("MSG:SYS:no such player")
}

// handleChatZone sends a zone-wide message: every local chat session
// plus every peer zone configured to receive messages. Gated on the
// sender's group holding the zone-message capability.
func (z *zoneServer) handleChatZone(r *chatrelay.Reactor, conn chatrelay.Conn, rest string) []byte {
	p := z.players.byID(conn.PlayerID())
	if p == nil {
		return chatLine("MSG:ERR:not logged in")
	}

	resolved, _ := player.GetSlot(p, groupSlot)
	group := capability.EffectiveGroup(p, resolved)
	if group == "" {
		group = capability.DefaultGroup
	}
	allowed, err := z.caps.HasCapability(context.Background(), group, "sendzonemsg")
	if err != nil || !allowed {
		slog.Warn("zone message refused", "player", p.Name(), "group", group, "error", err)
		return chatLine("MSG:ERR:no permission")
	}

	z.chatReactor.Deliver(nil, chatLine("MSG:ZONE:"+p.Name()+":"+rest))
	z.peerMgr.BroadcastChat(p.Name()+"> "+rest, false)
	return nil
}

func (z *zoneServer) handleChatNoop(r *chatrelay.Reactor, conn chatrelay.Conn, rest string) []byte {
	return nil
}

// newPlayerID generates a random 16-byte player identity for a
// chat-only session.
func newPlayerID() player.ID {
	var id player.ID
	_, _ = rand.Read(id[:])
	return id
}
