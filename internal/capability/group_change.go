package capability

import (
	"context"

	"github.com/ssvr/zoneserver/internal/player"
)

// temporaryGroupSlot holds a session-only group override, taking
// priority over the persisted resolution.
var temporaryGroupSlot = player.RegisterSlot[string]()

// EffectiveGroup returns p's current group: its temporary override if
// one is set, otherwise the persistently resolved group.
func EffectiveGroup(p *player.Player, resolvedGroup string) string {
	if g, ok := player.GetSlot(p, temporaryGroupSlot); ok && g != "" {
		return g
	}
	return resolvedGroup
}

// SetTemporaryGroup overrides p's group for this session only.
func SetTemporaryGroup(p *player.Player, group string) {
	player.SetSlot(p, temporaryGroupSlot, group)
}

// ClearTemporaryGroup removes any session-only override, reverting to
// the persistently resolved group.
func ClearTemporaryGroup(p *player.Player) {
	player.SetSlot(p, temporaryGroupSlot, "")
}

// SetPersistentGroup writes a group assignment back to the staff
// store at the given scope/subject, persisting across sessions.
func (r *Resolver) SetPersistentGroup(ctx context.Context, scope, subject, nameLower, group string) error {
	return r.staff.SetGroup(ctx, scope, subject, nameLower, group)
}
