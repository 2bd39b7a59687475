package player

import "testing"

func newTestPlayer() *Player {
	return New(ID{1}, "Bob")
}

func TestPlayer_InitialState(t *testing.T) {
	p := newTestPlayer()
	if got := p.State(); got != Uninitialized {
		t.Errorf("State() = %v, want Uninitialized", got)
	}
	if got := p.Ship(); got != Spec {
		t.Errorf("Ship() = %v, want Spec", got)
	}
}

func TestPlayer_ShipForcedToSpecOutsidePlaying(t *testing.T) {
	p := newTestPlayer()
	p.SetState(Loggedin)
	p.SetShip(Warbird)
	if got := p.Ship(); got != Spec {
		t.Errorf("Ship() = %v, want Spec while not Playing", got)
	}

	p.SetState(Playing)
	p.SetShip(Warbird)
	if got := p.Ship(); got != Warbird {
		t.Errorf("Ship() = %v, want Warbird while Playing", got)
	}
}

func TestPlayer_KickFromPlayingGoesViaLeavingArena(t *testing.T) {
	p := newTestPlayer()
	p.SetState(Playing)
	p.Kick()
	if got := p.State(); got != LeavingArena {
		t.Errorf("State() after kick = %v, want LeavingArena", got)
	}
}

func TestPlayer_KickFromLoggedinGoesDirectlyToLeavingZone(t *testing.T) {
	p := newTestPlayer()
	p.SetState(Loggedin)
	p.Kick()
	if got := p.State(); got != LeavingZone {
		t.Errorf("State() after kick = %v, want LeavingZone", got)
	}
}

func TestPlayer_KickBeforeConnectedIsNoop(t *testing.T) {
	p := newTestPlayer()
	p.Kick()
	if got := p.State(); got != Uninitialized {
		t.Errorf("State() after kick = %v, want unchanged Uninitialized", got)
	}
}

func TestPlayer_CanSendGameplayOnlyWhilePlaying(t *testing.T) {
	p := newTestPlayer()
	p.SetState(ArenaRespAndCBS)
	if p.CanSendGameplay() {
		t.Error("CanSendGameplay() = true before Playing")
	}
	p.SetState(Playing)
	if !p.CanSendGameplay() {
		t.Error("CanSendGameplay() = false while Playing")
	}
}

func TestPlayer_CanSendReliableChatFromConnected(t *testing.T) {
	p := newTestPlayer()
	if p.CanSendReliableChat() {
		t.Error("CanSendReliableChat() = true while Uninitialized")
	}
	p.SetState(Connected)
	if !p.CanSendReliableChat() {
		t.Error("CanSendReliableChat() = false from Connected onward")
	}
}

func TestPlayer_TracksLastRotationDirection(t *testing.T) {
	p := newTestPlayer()
	p.SetPosition(Position{X: 1, Y: 1, Rotation: 38})
	p.SetPosition(Position{X: 1, Y: 1, Rotation: 2})
	if !p.LastRotationClockwise() {
		t.Error("LastRotationClockwise() = false after a clockwise wrap 38->2")
	}
	p.SetPosition(Position{X: 1, Y: 1, Rotation: 39})
	if p.LastRotationClockwise() {
		t.Error("LastRotationClockwise() = true after counter-clockwise 2->39")
	}
}
