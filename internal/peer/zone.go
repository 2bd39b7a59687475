package peer

import (
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/ssvr/zoneserver/internal/config"
)

// Zone is one remote server instance reachable via UDP, identified by
// its (ip, port).
type Zone struct {
	addr         *net.UDPAddr
	passwordHash uint32
	cfg          config.PeerConfig

	mu          sync.Mutex
	rosters     map[uint32]ArenaRoster
	lastUpdated map[uint32]time.Time
	timestamps  [256]uint32 // slot-replay ring: timestamps[ts & 0xFF] == ts rejects a replay
}

// NewZone creates a Zone from its configured peer section.
func NewZone(cfg config.PeerConfig) (*Zone, error) {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(cfg.Address, strconv.Itoa(cfg.Port)))
	if err != nil {
		return nil, err
	}
	return &Zone{
		addr:         addr,
		passwordHash: PasswordHash(cfg.Password),
		cfg:          cfg,
		rosters:      make(map[uint32]ArenaRoster),
		lastUpdated:  make(map[uint32]time.Time),
	}, nil
}

// Addr returns the zone's UDP address.
func (z *Zone) Addr() *net.UDPAddr { return z.addr }

// Key identifies this zone for registry lookups: a zone is keyed
// uniquely by its (ip, port).
func (z *Zone) Key() string { return z.addr.String() }

// Authenticate reports whether the given password hash matches this
// zone's configured secret.
func (z *Zone) Authenticate(hash uint32) bool { return hash == z.passwordHash }

// SendOnly reports whether inbound packets from this zone must be
// rejected.
func (z *Zone) SendOnly() bool { return z.cfg.SendOnly }

// ReceiveMessages reports whether Chat/Op payloads from this zone are
// honored.
func (z *Zone) ReceiveMessages() bool { return z.cfg.ReceiveMessages }

// SendPlayerList reports whether this zone's emit timer sends a full
// PlayerList rather than a PlayerCount.
func (z *Zone) SendPlayerList() bool { return z.cfg.SendPlayerList }

// IncludeInPopulation reports whether this zone counts toward the
// aggregate population summary.
func (z *Zone) IncludeInPopulation() bool { return z.cfg.IncludeInPopulation }

// IsReplay reports whether ts is a replay of an already-seen
// timestamp in this zone's slot.
// If it is not a replay, it records ts in the slot.
func (z *Zone) IsReplay(ts uint32) bool {
	z.mu.Lock()
	defer z.mu.Unlock()
	slot := ts & 0xFF
	if z.timestamps[slot] == ts {
		return true
	}
	z.timestamps[slot] = ts
	return false
}

// ApplyRoster updates the roster for one arena, stamping its last-seen
// time for the 10 s staleness eviction sweep.
func (z *Zone) ApplyRoster(r ArenaRoster, now time.Time) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.rosters[r.ArenaID] = r
	z.lastUpdated[r.ArenaID] = now
}

// ClearRosters drops all arenas, as receiving a PlayerCount payload
// does.
func (z *Zone) ClearRosters() {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.rosters = make(map[uint32]ArenaRoster)
	z.lastUpdated = make(map[uint32]time.Time)
}

// EvictStale removes arenas whose roster has not been refreshed in
// more than 30 s.
func (z *Zone) EvictStale(now time.Time) {
	z.mu.Lock()
	defer z.mu.Unlock()
	for id, last := range z.lastUpdated {
		if now.Sub(last) > 30*time.Second {
			delete(z.rosters, id)
			delete(z.lastUpdated, id)
		}
	}
}

// Rosters returns a snapshot of every arena roster currently known for
// this zone.
func (z *Zone) Rosters() []ArenaRoster {
	z.mu.Lock()
	defer z.mu.Unlock()
	out := make([]ArenaRoster, 0, len(z.rosters))
	for _, r := range z.rosters {
		out = append(out, r)
	}
	return out
}
