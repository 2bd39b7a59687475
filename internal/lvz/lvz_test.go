package lvz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_ToggleUpdatesDifferencesCount(t *testing.T) {
	s := NewStore()
	s.Register(1, State{ImageID: 7})
	s.Register(2, State{ImageID: 9})

	assert.Equal(t, 0, s.ToggleDifferences())

	_, ok := s.Toggle(1, false)
	require.True(t, ok)
	assert.Equal(t, 1, s.ToggleDifferences())

	_, ok = s.Toggle(2, false)
	require.True(t, ok)
	assert.Equal(t, 2, s.ToggleDifferences())

	_, ok = s.Toggle(1, true)
	require.True(t, ok)
	assert.Equal(t, 1, s.ToggleDifferences())
}

func TestStore_ToggleGatedByRunningTimer(t *testing.T) {
	s := NewStore()
	s.Register(1, State{Timer: 50})
	s.objects[1].Current.Timer = 50

	_, ok := s.Toggle(1, false)
	assert.False(t, ok)
	assert.Equal(t, 0, s.ToggleDifferences())
}

func TestStore_ChangeUpdatesExtraDifferences(t *testing.T) {
	s := NewStore()
	s.Register(1, State{X: 100, Y: 100})

	assert.Equal(t, 0, s.ExtraDifferences())

	_, ok := s.Change(1, func(st *State) { st.X = 200 })
	require.True(t, ok)
	assert.Equal(t, 1, s.ExtraDifferences())

	_, ok = s.Change(1, func(st *State) { st.X = 100 })
	require.True(t, ok)
	assert.Equal(t, 0, s.ExtraDifferences())
}

func TestStore_ChangeClampsMapCoordinates(t *testing.T) {
	s := NewStore()
	s.Register(1, State{})

	entry, ok := s.Change(1, func(st *State) { st.X = 20000; st.Y = -5 })
	require.True(t, ok)
	assert.Equal(t, int16(MapCoordMax), entry.X)
	assert.Equal(t, int16(0), entry.Y)
}

func TestStore_ResetRestoresDefaultAndClearsBothCounters(t *testing.T) {
	s := NewStore()
	s.Register(1, State{X: 10, Y: 10})
	_, _ = s.Toggle(1, false)
	_, _ = s.Change(1, func(st *State) { st.X = 500 })

	assert.Equal(t, 1, s.ToggleDifferences())
	assert.Equal(t, 1, s.ExtraDifferences())

	s.Reset(1)
	assert.Equal(t, 0, s.ToggleDifferences())
	assert.Equal(t, 0, s.ExtraDifferences())

	obj := s.Get(1)
	require.NotNil(t, obj)
	assert.True(t, obj.Enabled)
	assert.Equal(t, obj.Default, obj.Current)
}

// Diff accounting invariant: toggle_differences equals the count
// of objects whose enabled differs from default, and extra_differences
// analogously for current vs default, at any quiescent point.
func TestStore_DiffCountersMatchActualDivergence(t *testing.T) {
	s := NewStore()
	for i := uint16(1); i <= 20; i++ {
		s.Register(i, State{X: int16(i), Y: int16(i)})
	}

	_, _ = s.Toggle(3, false)
	_, _ = s.Toggle(7, false)
	_, _ = s.Toggle(11, false)
	_, _ = s.Change(5, func(st *State) { st.ImageID = 42 })
	_, _ = s.Change(11, func(st *State) { st.ImageID = 7 })

	wantToggleDiff, wantExtraDiff := 0, 0
	for id := uint16(1); id <= 20; id++ {
		obj := s.Get(id)
		if obj.Enabled != defaultEnabled {
			wantToggleDiff++
		}
		if !obj.Current.Equal(obj.Default) {
			wantExtraDiff++
		}
	}

	assert.Equal(t, wantToggleDiff, s.ToggleDifferences())
	assert.Equal(t, wantExtraDiff, s.ExtraDifferences())
}

func TestStore_SendStateEnumeratesOnlyDivergentObjects(t *testing.T) {
	s := NewStore()
	s.Register(1, State{})
	s.Register(2, State{})
	s.Register(3, State{})

	_, _ = s.Toggle(1, false)
	_, _ = s.Change(2, func(st *State) { st.ImageID = 3 })

	toggles, changes := s.SendState()
	require.Len(t, toggles, 1)
	assert.Equal(t, uint16(1), toggles[0].ID)
	assert.False(t, toggles[0].Enabled)

	require.Len(t, changes, 1)
	assert.Equal(t, uint16(2), changes[0].ID)
}

func TestAllowRebroadcast_BotLimitedToToggleAndChange(t *testing.T) {
	assert.True(t, AllowRebroadcast(PermissionBot, TypeToggleLVZ))
	assert.True(t, AllowRebroadcast(PermissionBot, TypeChangeLVZ))
	assert.False(t, AllowRebroadcast(PermissionBot, 0x99))
}

func TestAllowRebroadcast_AnyAllowsEverything(t *testing.T) {
	assert.True(t, AllowRebroadcast(PermissionAny, 0x99))
}

func TestAllowRebroadcast_NoneRefusesEverything(t *testing.T) {
	assert.False(t, AllowRebroadcast(PermissionNone, TypeToggleLVZ))
}

func TestBatchToggle_SplitsAcrossPacketBoundary(t *testing.T) {
	perPacket := (MaxPacketBytes - 1) / toggleEntryLen
	entries := make([]ToggleEntry, perPacket+1)
	packets := BatchToggle(entries)
	require.Len(t, packets, 2)
	assert.LessOrEqual(t, len(packets[0]), MaxPacketBytes)
}

func TestToggleEncodeDecodeRoundTrip(t *testing.T) {
	entries := []ToggleEntry{
		{ID: 7, Enabled: true},
		{ID: 300, Enabled: false},
	}
	packets := BatchToggle(entries)
	require.Len(t, packets, 1)
	require.Equal(t, TypeToggleLVZ, packets[0][0])

	decoded, err := DecodeToggle(packets[0][1:])
	require.NoError(t, err)
	assert.Equal(t, entries, decoded)
}

func TestChangeEncodeDecodeRoundTrip(t *testing.T) {
	entries := []ChangeEntry{
		{ID: 9, State: State{Space: SpaceScreen, ScreenOffset: OffsetCenter, X: 120, Y: 450, ImageID: 3, Layer: 5, Mode: 2, Timer: 77}},
	}
	packets := BatchChange(entries)
	require.Len(t, packets, 1)
	require.Equal(t, TypeChangeLVZ, packets[0][0])

	decoded, err := DecodeChange(packets[0][1:])
	require.NoError(t, err)
	assert.Equal(t, entries, decoded)
}

func TestDecodeToggle_MalformedLength(t *testing.T) {
	_, err := DecodeToggle([]byte{0x01})
	assert.Error(t, err)
}
