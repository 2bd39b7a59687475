package lvz

// Permission is a player's cached rebroadcast capability for inbound
// "rebroadcast" LVZ packets.
type Permission uint8

const (
	PermissionNone Permission = iota
	PermissionBot             // may rebroadcast toggle/change only
	PermissionAny             // may rebroadcast any LVZ packet type
)

// AllowRebroadcast reports whether perm authorizes an inbound
// rebroadcast of the given packet type byte. Callers must log a
// refused rebroadcast as malicious rather than silently drop it.
func AllowRebroadcast(perm Permission, packetType byte) bool {
	switch perm {
	case PermissionAny:
		return true
	case PermissionBot:
		return packetType == TypeToggleLVZ || packetType == TypeChangeLVZ
	default:
		return false
	}
}
