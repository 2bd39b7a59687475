package brick

import (
	"fmt"
	"sync"
)

// MaxActive is the global per-arena cap on active bricks.
const MaxActive = 256

// BrickData is the wire shape of one placed brick.
type BrickData struct {
	X1, Y1, X2, Y2 int16
	Freq           uint16
	BrickID        uint16
	StartTick      uint32
}

// ClientRequest is a client's brick-drop request: a single target
// tile plus the heading needed to compute a Lateral axis.
type ClientRequest struct {
	Freq          uint16
	X, Y          int16
	Rotation      int
	LastClockwise bool
}

// DirectRequest is a server-synthesized brick placed along an
// explicit line, bypassing axis computation.
type DirectRequest struct {
	Freq           uint16
	X1, Y1, X2, Y2 int16
}

// ErrBatchExceedsCap is returned when accepting a batch would push the
// arena's active brick count above MaxActive; the whole batch is
// refused, never partially applied.
var ErrBatchExceedsCap = fmt.Errorf("brick: batch would exceed the %d active-brick cap", MaxActive)

// Engine is one arena's brick state: its FIFO placement queue and the
// counters needed to keep start_tick/brick_id monotonic.
type Engine struct {
	mode    Mode
	span    int
	ttl     uint32 // brick_time, in ticks
	asWalls bool

	mu            sync.Mutex
	queue         []BrickData
	lastStartTick uint32
	nextBrickID   uint16
}

// NewEngine creates a brick engine for one arena.
func NewEngine(mode Mode, span int, ttlTicks uint32, countBricksAsWalls bool) *Engine {
	return &Engine{mode: mode, span: span, ttl: ttlTicks, asWalls: countBricksAsWalls}
}

// ActiveCount returns the number of bricks not yet expired at now,
// pruning the queue head as a side effect.
func (e *Engine) ActiveCount(now uint32) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pruneLocked(now)
	return len(e.queue)
}

// Snapshot returns a copy of the currently active bricks, ordered by
// start_tick (oldest first).
func (e *Engine) Snapshot(now uint32) []BrickData {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pruneLocked(now)
	out := make([]BrickData, len(e.queue))
	copy(out, e.queue)
	return out
}

func (e *Engine) pruneLocked(now uint32) {
	head := 0
	for head < len(e.queue) && now >= e.queue[head].StartTick+e.ttl {
		head++
	}
	if head > 0 {
		e.queue = e.queue[head:]
	}
}

// PlaceClient handles one client brick-request. mode must be
// ModeLateral — the other enum variants are reserved but unimplemented.
// Returns nil, nil if the target tile was occupied (the request is
// silently dropped, not an error).
func (e *Engine) PlaceClient(req ClientRequest, now uint32, isEmpty isEmptyFunc) (*BrickData, error) {
	if e.mode != ModeLateral {
		return nil, ErrNotImplemented
	}

	x1, y1, x2, y2, ok := computeLateralLine(isEmpty, req.X, req.Y, ComputeAxis(req.Rotation, req.LastClockwise), e.span)
	if !ok {
		return nil, nil
	}

	bricks, err := e.placeBatchLocked(now, []pendingLine{{req.Freq, x1, y1, x2, y2}})
	if err != nil {
		return nil, err
	}
	return &bricks[0], nil
}

// PlaceDirect places one or more server-synthesized bricks along
// explicit lines, bypassing axis computation and the occupied-tile
// drop rule.
func (e *Engine) PlaceDirect(now uint32, reqs ...DirectRequest) ([]BrickData, error) {
	lines := make([]pendingLine, len(reqs))
	for i, r := range reqs {
		lines[i] = pendingLine{r.Freq, r.X1, r.Y1, r.X2, r.Y2}
	}
	return e.placeBatchLocked(now, lines)
}

type pendingLine struct {
	freq           uint16
	x1, y1, x2, y2 int16
}

// placeBatchLocked assigns ids/ticks to each pending line and appends
// them to the queue, refusing the whole batch if it would exceed
// MaxActive.
func (e *Engine) placeBatchLocked(now uint32, lines []pendingLine) ([]BrickData, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pruneLocked(now)

	if len(e.queue)+len(lines) > MaxActive {
		return nil, ErrBatchExceedsCap
	}

	out := make([]BrickData, 0, len(lines))
	for _, ln := range lines {
		start := now
		if start <= e.lastStartTick {
			start = e.lastStartTick + 1
		}
		e.lastStartTick = start

		bd := BrickData{
			X1: ln.x1, Y1: ln.y1, X2: ln.x2, Y2: ln.y2,
			Freq:      ln.freq,
			BrickID:   e.nextBrickID,
			StartTick: start,
		}
		e.nextBrickID++
		e.queue = append(e.queue, bd)
		out = append(out, bd)
	}
	return out, nil
}

// AsWalls reports whether placed bricks should also be stamped into
// the map store's temporary-tile overlay.
func (e *Engine) AsWalls() bool { return e.asWalls }
