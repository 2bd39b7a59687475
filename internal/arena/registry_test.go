package arena

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveName_NumericMapsToPublicBase(t *testing.T) {
	r := NewRegistry(NewBus())
	assert.Equal(t, "public0", r.ResolveName("0"))
	assert.Equal(t, "public1", r.ResolveName("1"))
	assert.Equal(t, "duel", r.ResolveName("duel"))
}

func TestRegistry_CaseInsensitiveLookupCaseSensitiveStorage(t *testing.T) {
	bus := NewBus()
	r := NewRegistry(bus)
	a, err := r.Create("Duel", nil)
	require.NoError(t, err)
	assert.Equal(t, "Duel", a.Name())
	assert.Same(t, a, r.Find("duel"))
	assert.Same(t, a, r.Find("DUEL"))
}

func TestRegistry_CreateWaitsForHoldsToClear(t *testing.T) {
	bus := NewBus()
	var released atomic.Bool
	bus.Register(EventPreCreate, func(a *Arena) {
		a.AddHold()
		go func() {
			time.Sleep(20 * time.Millisecond)
			released.Store(true)
			a.RemoveHold()
		}()
	})

	r := NewRegistry(bus, WithHoldTimeout(time.Second))
	a, err := r.Create("duel", nil)
	require.NoError(t, err)
	assert.True(t, released.Load())
	assert.Equal(t, StateRunning, a.State())
}

func TestRegistry_CreateTimesOutWhenHoldNeverReleased(t *testing.T) {
	bus := NewBus()
	bus.Register(EventPreCreate, func(a *Arena) {
		a.AddHold() // never released
	})
	var destroyed atomic.Bool
	bus.Register(EventDestroy, func(a *Arena) { destroyed.Store(true) })

	r := NewRegistry(bus, WithHoldTimeout(30*time.Millisecond))
	_, err := r.Create("duel", nil)
	require.ErrorIs(t, err, ErrHoldTimeout)
	assert.True(t, destroyed.Load())
	assert.Nil(t, r.Find("duel"))
}

func TestRegistry_LifecycleOrderPerArena(t *testing.T) {
	bus := NewBus()
	var mu sync.Mutex
	var order []string
	bus.Register(EventPreCreate, func(a *Arena) { mu.Lock(); order = append(order, "pre"); mu.Unlock() })
	bus.Register(EventCreate, func(a *Arena) { mu.Lock(); order = append(order, "create"); mu.Unlock() })
	bus.Register(EventDestroy, func(a *Arena) { mu.Lock(); order = append(order, "destroy"); mu.Unlock() })

	r := NewRegistry(bus)
	_, err := r.Create("duel", nil)
	require.NoError(t, err)
	require.NoError(t, r.Destroy("duel"))

	assert.Equal(t, []string{"pre", "create", "destroy"}, order)
}
