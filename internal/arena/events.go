package arena

import "sync"

// EventKind names one point in an arena's lifecycle.
type EventKind int

const (
	EventPreCreate EventKind = iota
	EventCreate
	EventConfChanged
	EventDestroy
)

func (k EventKind) String() string {
	switch k {
	case EventPreCreate:
		return "PreCreate"
	case EventCreate:
		return "Create"
	case EventConfChanged:
		return "ConfChanged"
	case EventDestroy:
		return "Destroy"
	default:
		return "Unknown"
	}
}

// Handler reacts to one lifecycle event. Handlers are non-async and
// must not re-enter the bus with the same event; a PreCreate
// handler that needs to do asynchronous work calls AddHold before
// returning and RemoveHold once that work completes.
type Handler func(a *Arena)

// Bus is an ordered list of (event_kind, handler) registrations,
// rather than an ad-hoc set of lifecycle callback interfaces.
type Bus struct {
	mu       sync.Mutex
	handlers map[EventKind][]Handler
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[EventKind][]Handler)}
}

// Register adds h to the ordered handler list for kind. Handlers for a
// given kind run in registration order, so observers that must run
// before others (e.g. map loading before brick/LVZ setup) should
// register first.
func (b *Bus) Register(kind EventKind, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], h)
}

// fire invokes every handler registered for kind, in order, against a.
func (b *Bus) fire(kind EventKind, a *Arena) {
	b.mu.Lock()
	hs := make([]Handler, len(b.handlers[kind]))
	copy(hs, b.handlers[kind])
	b.mu.Unlock()

	for _, h := range hs {
		h(a)
	}
}
