package peer

import (
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/ssvr/zoneserver/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHash_IsOnesComplementOfCRC32(t *testing.T) {
	h := PasswordHash("secret")
	// CRC-32 (IEEE) of "secret" is 0x5ca2e8e5; its ones complement:
	assert.Equal(t, uint32(0xa35d171a), h)
	assert.NotEqual(t, uint32(0), h)
	assert.Equal(t, h, PasswordHash("secret"))
	assert.NotEqual(t, h, PasswordHash("other"))
}

func TestLooksLikePeerPacket(t *testing.T) {
	pkt := EncodeHeader(1234, TypePlayerCount, 1, []byte{0, 1})
	assert.True(t, LooksLikePeerPacket(pkt))
	assert.False(t, LooksLikePeerPacket([]byte{1, 2, 3}))
}

func TestHeaderRoundTrip(t *testing.T) {
	pkt := EncodeHeader(0xDEADBEEF, TypeChat, 42, []byte("payload"))
	hdr, payload, err := DecodeHeader(pkt)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), hdr.PasswordHash)
	assert.Equal(t, TypeChat, hdr.Type)
	assert.Equal(t, uint32(42), hdr.Timestamp)
	assert.Equal(t, []byte("payload"), payload)
}

func TestPlayerListRoundTrip_LowercasesArenaNames(t *testing.T) {
	rosters := []ArenaRoster{
		{ArenaID: 1, Name: "PUBLIC", Players: []string{"alice", "bob"}},
		{ArenaID: 2, Name: "duel", Players: nil},
	}
	payload := EncodePlayerList(rosters)
	decoded, err := DecodePlayerList(payload)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	assert.Equal(t, "public", decoded[0].Name)
	assert.Equal(t, []string{"alice", "bob"}, decoded[0].Players)
	assert.Equal(t, "duel", decoded[1].Name)
	assert.Empty(t, decoded[1].Players)
}

func TestPlayerCountRoundTrip(t *testing.T) {
	payload := EncodePlayerCount(42)
	count, err := DecodePlayerCount(payload)
	require.NoError(t, err)
	assert.Equal(t, uint16(42), count)
}

func TestChatRoundTrip(t *testing.T) {
	payload := EncodeChat(ChatMessage{MsgType: 1, Text: "hello zone"})
	msg, err := DecodeChat(payload)
	require.NoError(t, err)
	assert.Equal(t, byte(1), msg.MsgType)
	assert.Equal(t, "hello zone", msg.Text)
}

func TestZone_IsReplay_SlotBasedDetection(t *testing.T) {
	z, err := NewZone(config.PeerConfig{Address: "127.0.0.1", Port: 5005, Password: "x"})
	require.NoError(t, err)

	assert.False(t, z.IsReplay(300))
	assert.True(t, z.IsReplay(300), "identical timestamp in same slot must be flagged as replay")
	// 300 % 256 == 44; a strictly greater timestamp landing on the same
	// slot is accepted as a new value, not a replay.
	assert.False(t, z.IsReplay(300+256))
}

func TestZone_EvictStaleRemovesOldArenas(t *testing.T) {
	z, err := NewZone(config.PeerConfig{Address: "127.0.0.1", Port: 5006, Password: "x"})
	require.NoError(t, err)

	old := time.Now().Add(-31 * time.Second)
	fresh := time.Now()
	z.ApplyRoster(ArenaRoster{ArenaID: 1, Name: "public"}, old)
	z.ApplyRoster(ArenaRoster{ArenaID: 2, Name: "duel"}, fresh)

	z.EvictStale(time.Now())
	rosters := z.Rosters()
	require.Len(t, rosters, 1)
	assert.Equal(t, uint32(2), rosters[0].ArenaID)
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	m, err := NewManager(conn, nil, slog.Default())
	require.NoError(t, err)
	return m
}

func TestManager_ApplyDummySubstitutesRoster(t *testing.T) {
	roster := ArenaRoster{ArenaID: 1, Name: "public", Players: []string{"alice"}}
	out := applyDummy([]string{"public"}, roster)
	require.Len(t, out.Players, 1)
	assert.Equal(t, ":public", out.Players[0])

	out = applyDummy([]string{"duel"}, roster)
	assert.Equal(t, []string{"alice"}, out.Players)
}

func TestManager_ResolveRename_PureCaseChange(t *testing.T) {
	m := newTestManager(t)
	m.SetRenames([]config.RenameArena{{Remote: "PUBLIC", Local: "public"}})

	r := m.resolveRename(ArenaRoster{Name: "public"})
	assert.Equal(t, "public", r.Name)
}

func TestManager_ResolveRename_TrueRenameTarget(t *testing.T) {
	m := newTestManager(t)
	m.SetRenames([]config.RenameArena{{Remote: "foreignpub", Local: "mypub"}})

	r := m.resolveRename(ArenaRoster{Name: "foreignpub"})
	assert.Equal(t, "mypub", r.Name)
}

func TestManager_FindPlayer_ExactMatchWinsImmediately(t *testing.T) {
	m := newTestManager(t)
	z, err := NewZone(config.PeerConfig{Address: "127.0.0.1", Port: 7000, Password: "x"})
	require.NoError(t, err)
	z.ApplyRoster(ArenaRoster{ArenaID: 1, Name: "public", Players: []string{"alicexyz", "alice"}}, time.Now())
	m.zones[z.Key()] = z

	match, ok := m.FindPlayer("alice")
	require.True(t, ok)
	assert.Equal(t, -1, match.Score)
	assert.Equal(t, "alice", match.Player)
}

func TestManager_FindPlayer_SubstringScoresByPosition(t *testing.T) {
	m := newTestManager(t)
	z, err := NewZone(config.PeerConfig{Address: "127.0.0.1", Port: 7001, Password: "x"})
	require.NoError(t, err)
	z.ApplyRoster(ArenaRoster{ArenaID: 1, Name: "public", Players: []string{"xalice", "alicey"}}, time.Now())
	m.zones[z.Key()] = z

	match, ok := m.FindPlayer("alice")
	require.True(t, ok)
	assert.Equal(t, "alicey", match.Player)
	assert.Equal(t, 0, match.Score)
}

func TestManager_BroadcastChatReachesSendMessagesZones(t *testing.T) {
	sink, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })
	sinkPort := sink.LocalAddr().(*net.UDPAddr).Port

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	m, err := NewManager(conn, []config.PeerConfig{
		{Address: "127.0.0.1", Port: sinkPort, Password: "hush", SendMessages: true},
	}, slog.Default())
	require.NoError(t, err)

	m.BroadcastChat("hello zone", false)

	require.NoError(t, sink.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 256)
	n, _, err := sink.ReadFromUDP(buf)
	require.NoError(t, err)

	hdr, payload, err := DecodeHeader(buf[:n])
	require.NoError(t, err)
	assert.Equal(t, TypeChat, hdr.Type)
	assert.Equal(t, PasswordHash("hush"), hdr.PasswordHash)

	msg, err := DecodeChat(payload)
	require.NoError(t, err)
	assert.Equal(t, "hello zone", msg.Text)
}
