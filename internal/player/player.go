package player

import (
	"sync"
)

// ID is the 16-byte numeric player identity.
type ID [16]byte

// Ship is a player's chosen ship, or Spec while not playing.
type Ship int8

const (
	Spec    Ship = -1
	Warbird Ship = iota
	Javelin
	Spider
	Leviathan
	Terrier
	Weasel
	Lancaster
	Shark
)

// Position is the last reported position snapshot: (x, y) tile
// coordinate (0..1023 inclusive on each axis) plus the ship's heading
// in 40-rotation units.
type Position struct {
	X, Y     int16
	Rotation int8 // 0..39
}

// Player is one connection's session. Every mutable field sits behind
// one sync.Mutex with getter/setter pairs.
type Player struct {
	id            ID
	name          string
	squad         string
	authenticated bool

	mu           sync.Mutex
	state        State
	arena        string
	ship         Ship
	freq         uint16
	position     Position
	rotClockwise bool

	slots [maxSlots]any
}

// New creates a player session in state Uninitialized.
func New(id ID, name string) *Player {
	return &Player{
		id:    id,
		name:  name,
		state: Uninitialized,
		ship:  Spec,
	}
}

// ID returns the player's identity.
func (p *Player) ID() ID { return p.id }

// Name returns the player's name (immutable after construction).
func (p *Player) Name() string { return p.name }

// Squad returns the player's squad tag.
func (p *Player) Squad() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.squad
}

// SetSquad sets the player's squad tag.
func (p *Player) SetSquad(squad string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.squad = squad
}

// Authenticated reports whether the auth pipeline marked this session
// authenticated.
func (p *Player) Authenticated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.authenticated
}

// SetAuthenticated records the auth pipeline's verdict.
func (p *Player) SetAuthenticated(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.authenticated = v
}

// State returns the current session state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SetState transitions the session to s. Callers are responsible for
// only issuing valid transitions; SetState itself just records it.
func (p *Player) SetState(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = s
}

// Arena returns the arena the player is currently assigned to, or ""
// if none.
func (p *Player) Arena() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.arena
}

// SetArena sets the player's arena assignment.
func (p *Player) SetArena(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.arena = name
}

// Ship returns the player's current ship.
func (p *Player) Ship() Ship {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ship
}

// SetShip sets the player's ship. Outside Playing, only Spec is a
// valid ship; callers passing a real ship while not
// Playing get Spec instead rather than a rejected call, mirroring how
// the rest of this package favors corrected state over error returns
// for player-visible, recoverable conditions.
func (p *Player) SetShip(s Ship) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Playing && s != Spec {
		s = Spec
	}
	p.ship = s
}

// Freq returns the player's current team/frequency.
func (p *Player) Freq() uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.freq
}

// SetFreq sets the player's frequency.
func (p *Player) SetFreq(freq uint16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.freq = freq
}

// Position returns the last reported map position.
func (p *Player) Position() Position {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

// SetPosition records a new position snapshot, tracking which way the
// ship last turned — the tie-break the brick engine needs for headings
// exactly between two axes.
func (p *Player) SetPosition(pos Position) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pos.Rotation != p.position.Rotation {
		delta := (int(pos.Rotation) - int(p.position.Rotation) + 40) % 40
		p.rotClockwise = delta < 20
	}
	p.position = pos
}

// LastRotationClockwise reports whether the ship's most recent turn
// was clockwise.
func (p *Player) LastRotationClockwise() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rotClockwise
}

// Kick forces the session out of play. A kick may occur from any
// state >= Connected: it moves a playing session through
// LeavingArena first, otherwise goes directly to LeavingZone.
func (p *Player) Kick() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state < Connected {
		return
	}
	if p.state == Playing || p.state == ArenaRespAndCBS || p.state == WaitArenaSync1 || p.state == DoFreqAndArenaSync {
		p.state = LeavingArena
		return
	}
	p.state = LeavingZone
}

// CanSendGameplay reports whether outbound gameplay packets may be
// sent to this session.
func (p *Player) CanSendGameplay() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == Playing
}

// CanSendReliableChat reports whether reliable chat packets may be
// sent.
func (p *Player) CanSendReliableChat() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state >= Connected
}
