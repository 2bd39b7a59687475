package peer

import (
	"context"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/ssvr/zoneserver/internal/config"
)

// Manager owns every configured peer zone and drives the 1 s emit and
// 10 s eviction timers. Reads (FindZone, FindPlayer, population
// summary) take the RWMutex for reading only.
type Manager struct {
	conn   *net.UDPConn
	logger *slog.Logger

	localArenaID uint32
	renames      []config.RenameArena

	mu    sync.RWMutex
	zones map[string]*Zone
}

// NewManager constructs a Manager over every configured peer. conn is
// the UDP socket peer traffic rides on, shared with game traffic.
func NewManager(conn *net.UDPConn, cfgs []config.PeerConfig, logger *slog.Logger) (*Manager, error) {
	m := &Manager{
		conn:   conn,
		logger: logger,
		zones:  make(map[string]*Zone, len(cfgs)),
	}
	for _, cfg := range cfgs {
		z, err := NewZone(cfg)
		if err != nil {
			return nil, err
		}
		m.zones[z.Key()] = z
	}
	return m, nil
}

// Run drives the 1 s emit timer and 10 s eviction timer until ctx is
// canceled.
func (m *Manager) Run(ctx context.Context, population func() []ArenaRoster) error {
	emit := time.NewTicker(1 * time.Second)
	defer emit.Stop()
	evict := time.NewTicker(10 * time.Second)
	defer evict.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-emit.C:
			m.emitAll(population())
		case <-evict.C:
			m.evictAll()
		}
	}
}

func (m *Manager) emitAll(local []ArenaRoster) {
	m.mu.RLock()
	zones := make([]*Zone, 0, len(m.zones))
	for _, z := range m.zones {
		zones = append(zones, z)
	}
	m.mu.RUnlock()

	now := uint32(time.Now().UnixMilli() / 10) // server-tick units (centiseconds)
	for _, z := range zones {
		if z.SendPlayerList() {
			rosters := m.rostersFor(z, local)
			payload := EncodePlayerList(rosters)
			m.send(z, EncodeHeader(z.passwordHash, TypePlayerList, now, payload))
			continue
		}
		count := 0
		for _, r := range local {
			count += len(r.Players)
		}
		if count == 0 && !z.cfg.SendZeroPlayerCount {
			continue
		}
		payload := EncodePlayerCount(uint16(count))
		m.send(z, EncodeHeader(z.passwordHash, TypePlayerCount, now, payload))
	}
}

// BroadcastChat sends a Chat (or, for op=true, Op) payload to every
// zone configured with SendMessages.
func (m *Manager) BroadcastChat(text string, op bool) {
	m.mu.RLock()
	zones := make([]*Zone, 0, len(m.zones))
	for _, z := range m.zones {
		if z.cfg.SendMessages {
			zones = append(zones, z)
		}
	}
	m.mu.RUnlock()

	typ := TypeChat
	var msgType byte
	if op {
		typ = TypeOp
		msgType = 1
	}
	now := uint32(time.Now().UnixMilli() / 10)
	payload := EncodeChat(ChatMessage{MsgType: msgType, Text: text})
	for _, z := range zones {
		m.send(z, EncodeHeader(z.passwordHash, typ, now, payload))
	}
}

// rostersFor builds the PlayerList this zone should receive: local
// arenas it's configured for, plus arenas of other zones it relays,
// with send-dummy substitution applied.
func (m *Manager) rostersFor(z *Zone, local []ArenaRoster) []ArenaRoster {
	var out []ArenaRoster
	for _, r := range local {
		if !contains(z.cfg.Arenas, r.Name) {
			continue
		}
		out = append(out, applyDummy(z.cfg.SendDummyArenas, r))
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for key, other := range m.zones {
		if key == z.Key() {
			continue
		}
		for _, r := range other.Rosters() {
			if !contains(z.cfg.RelayArenas, r.Name) {
				continue
			}
			out = append(out, applyDummy(z.cfg.SendDummyArenas, r))
		}
	}
	return out
}

func applyDummy(dummyArenas []string, r ArenaRoster) ArenaRoster {
	if !contains(dummyArenas, r.Name) {
		return r
	}
	return ArenaRoster{
		ArenaID: r.ArenaID,
		Name:    r.Name,
		Players: []string{":" + r.Name},
	}
}

func contains(list []string, name string) bool {
	for _, v := range list {
		if strings.EqualFold(v, name) {
			return true
		}
	}
	return false
}

func (m *Manager) send(z *Zone, pkt []byte) {
	if _, err := m.conn.WriteToUDP(pkt, z.Addr()); err != nil {
		m.logger.Warn("peer: send failed", "zone", z.Key(), "error", err)
	}
}

func (m *Manager) evictAll() {
	now := time.Now()
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, z := range m.zones {
		z.EvictStale(now)
	}
}

// HandlePacket authenticates and dispatches one inbound peer packet
// from addr. onChat is invoked for authorized Chat/Op payloads,
// with op reporting whether the payload was a moderator alert.
func (m *Manager) HandlePacket(addr *net.UDPAddr, data []byte, onChat func(zoneKey string, msg ChatMessage, op bool)) {
	m.mu.RLock()
	z := m.zones[addr.String()]
	m.mu.RUnlock()
	if z == nil {
		m.logger.Warn("peer: packet from unconfigured zone", "addr", addr.String())
		return
	}

	hdr, payload, err := DecodeHeader(data)
	if err != nil {
		m.logger.Warn("peer: malformed packet", "zone", z.Key(), "error", err)
		return
	}
	if !z.Authenticate(hdr.PasswordHash) {
		m.logger.Warn("peer: bad password hash", "zone", z.Key())
		return
	}
	if z.SendOnly() {
		return
	}
	if z.IsReplay(hdr.Timestamp) {
		return
	}

	switch hdr.Type {
	case TypePlayerList:
		rosters, err := DecodePlayerList(payload)
		if err != nil {
			m.logger.Warn("peer: malformed PlayerList", "zone", z.Key(), "error", err)
			return
		}
		now := time.Now()
		for _, r := range rosters {
			r = m.resolveRename(r)
			z.ApplyRoster(r, now)
		}
	case TypePlayerCount:
		if _, err := DecodePlayerCount(payload); err != nil {
			m.logger.Warn("peer: malformed PlayerCount", "zone", z.Key(), "error", err)
			return
		}
		z.ClearRosters()
	case TypeChat, TypeOp:
		if !z.ReceiveMessages() {
			return
		}
		msg, err := DecodeChat(payload)
		if err != nil {
			m.logger.Warn("peer: malformed Chat/Op", "zone", z.Key(), "error", err)
			return
		}
		if onChat != nil {
			onChat(z.Key(), msg, hdr.Type == TypeOp)
		}
	default:
		m.logger.Warn("peer: unknown payload type", "zone", z.Key(), "type", hdr.Type)
	}
}

// resolveRename applies the configured rename list to an inbound
// roster. A rename whose local and remote names differ only in case
// is a pure case change; a true rename replaces the name outright.
func (m *Manager) resolveRename(r ArenaRoster) ArenaRoster {
	for _, ren := range m.renames {
		if strings.EqualFold(ren.Remote, r.Name) {
			isCaseChange := strings.EqualFold(ren.Remote, ren.Local) && ren.Remote != ren.Local
			if isCaseChange {
				r.Name = ren.Local
			} else if ren.Local != "" {
				r.Name = ren.Local
			}
			return r
		}
	}
	return r
}

// SetRenames installs the global RenamedArenas table used by
// resolveRename.
func (m *Manager) SetRenames(renames []config.RenameArena) {
	m.renames = renames
}

// PlayerMatch is one FindPlayer hit: the zone and arena the player was
// found in, and the match score.
type PlayerMatch struct {
	ZoneKey string
	Arena   string
	Player  string
	Score   int
}

// FindPlayer performs an exact case-insensitive substring match across
// every peer roster, tracking the minimum match position as score; an
// exact-equal match (score -1) wins immediately.
func (m *Manager) FindPlayer(query string) (PlayerMatch, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	query = strings.ToLower(query)
	best := PlayerMatch{Score: int(^uint(0) >> 1)}
	found := false

	for key, z := range m.zones {
		for _, r := range z.Rosters() {
			for _, p := range r.Players {
				lower := strings.ToLower(p)
				if lower == query {
					return PlayerMatch{ZoneKey: key, Arena: r.Name, Player: p, Score: -1}, true
				}
				idx := strings.Index(lower, query)
				if idx < 0 {
					continue
				}
				if !found || idx < best.Score {
					best = PlayerMatch{ZoneKey: key, Arena: r.Name, Player: p, Score: idx}
					found = true
				}
			}
		}
	}
	return best, found
}

// PopulationSummary aggregates player counts across every zone
// configured to count toward the population, for zones with
// IncludeInPopulation set.
func (m *Manager) PopulationSummary() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := 0
	for _, z := range m.zones {
		if !z.IncludeInPopulation() {
			continue
		}
		for _, r := range z.Rosters() {
			total += len(r.Players)
		}
	}
	return total
}

// FindZone returns the zone registered at key ("ip:port"), if any.
func (m *Manager) FindZone(key string) (*Zone, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	z, ok := m.zones[key]
	return z, ok
}
