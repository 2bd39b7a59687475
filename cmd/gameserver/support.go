package main

import (
	"encoding/hex"
	"strings"
	"sync"

	"github.com/ssvr/zoneserver/internal/peer"
	"github.com/ssvr/zoneserver/internal/player"
)

// playerTable indexes live sessions two ways: game sessions by their
// UDP remote address (for game-packet dispatch and outbound sends),
// and every session by a hex player-id string (for the chat relay,
// which identifies a session by player id rather than socket address).
// Chat-only sessions have no UDP address and only appear in the id
// index. Both indexes are maintained under one mutex.
type playerTable struct {
	mu         sync.RWMutex
	byRemote   map[string]*player.Player
	byPlayerID map[string]*player.Player
}

func newPlayerTable() *playerTable {
	return &playerTable{
		byRemote:   make(map[string]*player.Player),
		byPlayerID: make(map[string]*player.Player),
	}
}

// AddGame registers a game session under both indexes.
func (t *playerTable) AddGame(remoteAddr string, p *player.Player) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byRemote[remoteAddr] = p
	t.byPlayerID[idKey(p.ID())] = p
}

// AddChat registers a chat-only session, which has no UDP address.
func (t *playerTable) AddChat(p *player.Player) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byPlayerID[idKey(p.ID())] = p
}

// RemoveGame drops a game session from both indexes.
func (t *playerTable) RemoveGame(remoteAddr string, p *player.Player) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byRemote, remoteAddr)
	delete(t.byPlayerID, idKey(p.ID()))
}

// RemoveByID drops a chat-only session from the id index.
func (t *playerTable) RemoveByID(idHex string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byPlayerID, idHex)
}

func (t *playerTable) byAddr(remoteAddr string) *player.Player {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.byRemote[remoteAddr]
}

func (t *playerTable) byID(idHex string) *player.Player {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.byPlayerID[idHex]
}

// byName finds a connected session by player name, case-insensitive.
func (t *playerTable) byName(name string) *player.Player {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, p := range t.byPlayerID {
		if strings.EqualFold(p.Name(), name) {
			return p
		}
	}
	return nil
}

// gameAddrsInArena returns the UDP addresses of every game session
// currently playing in arena, for outbound broadcasts.
func (t *playerTable) gameAddrsInArena(arena string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []string
	for addr, p := range t.byRemote {
		if p.Arena() == arena && p.CanSendGameplay() {
			out = append(out, addr)
		}
	}
	return out
}

// rostersByArena groups every in-arena session by arena, feeding the
// peer federation emit timer.
func (t *playerTable) rostersByArena() []peer.ArenaRoster {
	t.mu.RLock()
	defer t.mu.RUnlock()

	byArena := make(map[string][]string)
	for _, p := range t.byPlayerID {
		if !p.CanSendGameplay() {
			continue
		}
		a := p.Arena()
		byArena[a] = append(byArena[a], p.Name())
	}

	out := make([]peer.ArenaRoster, 0, len(byArena))
	for name, names := range byArena {
		out = append(out, peer.ArenaRoster{Name: name, Players: names})
	}
	return out
}

func idKey(id player.ID) string {
	return hex.EncodeToString(id[:])
}

// arenaComponentTable is the shared shape behind the per-arena
// brick.Engine, lvz.Store and mapdata.ArenaMap tables: a mutex-guarded
// map keyed by arena name, populated on PreCreate and torn down on
// Destroy. The guarding mutex is held only for short, non-blocking
// work.
type arenaComponentTable[T any] struct {
	mu      sync.RWMutex
	byArena map[string]T
}

func newArenaComponentTable[T any]() *arenaComponentTable[T] {
	return &arenaComponentTable[T]{byArena: make(map[string]T)}
}

func (t *arenaComponentTable[T]) set(arena string, v T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byArena[arena] = v
}

func (t *arenaComponentTable[T]) get(arena string) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.byArena[arena]
	return v, ok
}

func (t *arenaComponentTable[T]) delete(arena string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byArena, arena)
}
