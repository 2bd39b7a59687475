package lvz

import "sync"

// Store is one arena's authoritative LVZ object set plus its running
// diff counters. Held only for short, non-blocking work — no
// I/O while the lock is held.
type Store struct {
	mu      sync.Mutex
	objects map[uint16]*LvzObject

	toggleDifferences int
	extraDifferences  int
}

// NewStore creates an empty LVZ object store.
func NewStore() *Store {
	return &Store{objects: make(map[uint16]*LvzObject)}
}

// Register adds an object at its on-disk default state, both enabled
// and current initialised from Default (called while loading an
// arena's LVZ files).
func (s *Store) Register(id uint16, def State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[id] = &LvzObject{ID: id, Default: def, Current: def, Enabled: true}
}

// Get returns the object for id, or nil.
func (s *Store) Get(id uint16) *LvzObject {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objects[id]
}

// ToggleDifferences returns the number of objects whose enabled flag
// currently differs from its default.
func (s *Store) ToggleDifferences() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.toggleDifferences
}

// ExtraDifferences returns the number of objects whose current state
// currently differs from its default.
func (s *Store) ExtraDifferences() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.extraDifferences
}

// Toggle updates an object's authoritative enabled flag iff its
// current timer is zero, adjusting toggle_differences and returning
// the ToggleLVZ entry to broadcast. ok is false if the object
// is unknown or gated by a running timer.
func (s *Store) Toggle(id uint16, enabled bool) (entry ToggleEntry, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, found := s.objects[id]
	if !found || obj.Current.Timer != 0 {
		return ToggleEntry{}, false
	}

	wasDiff := obj.Enabled != defaultEnabled
	obj.Enabled = enabled
	isDiff := obj.Enabled != defaultEnabled
	if isDiff && !wasDiff {
		s.toggleDifferences++
	} else if !isDiff && wasDiff {
		s.toggleDifferences--
	}

	return ToggleEntry{ID: id, Enabled: enabled}, true
}

// defaultEnabled is the implicit default enabled state every object
// starts from: the on-disk default is always enabled until toggled.
const defaultEnabled = true

// Change applies edit to object id's current (authoritative) state,
// reconciles extra_differences against the object's default, and
// returns the ChangeLVZ entry to broadcast.
func (s *Store) Change(id uint16, edit func(*State)) (entry ChangeEntry, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, found := s.objects[id]
	if !found {
		return ChangeEntry{}, false
	}

	wasDiff := !obj.Current.Equal(obj.Default)
	edit(&obj.Current)
	obj.Current.X = ClampMapCoord(obj.Current.X)
	obj.Current.Y = ClampMapCoord(obj.Current.Y)
	isDiff := !obj.Current.Equal(obj.Default)

	if isDiff && !wasDiff {
		s.extraDifferences++
	} else if !isDiff && wasDiff {
		s.extraDifferences--
	}

	return ChangeEntry{ID: id, State: obj.Current}, true
}

// Reset restores current = default and the enabled flag to its default
// (enabled), so the object no longer counts in either diff counter.
func (s *Store) Reset(id uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, found := s.objects[id]
	if !found {
		return
	}
	if obj.Enabled != defaultEnabled {
		s.toggleDifferences--
	}
	if !obj.Current.Equal(obj.Default) {
		s.extraDifferences--
	}
	obj.Current = obj.Default
	obj.Enabled = defaultEnabled
}

// SendState enumerates every object twice for a newly entering
// player: first toggles for objects whose enabled differs from
// default, then changes for objects whose current differs from
// default.
func (s *Store) SendState() (toggles []ToggleEntry, changes []ChangeEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, obj := range s.objects {
		if obj.Enabled != defaultEnabled {
			toggles = append(toggles, ToggleEntry{ID: id, Enabled: obj.Enabled})
		}
	}
	for id, obj := range s.objects {
		if !obj.Current.Equal(obj.Default) {
			changes = append(changes, ChangeEntry{ID: id, State: obj.Current})
		}
	}
	return toggles, changes
}
