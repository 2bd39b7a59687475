package mapdata

import "sync"

// TempKind distinguishes the two kinds of temporary tile placement.
type TempKind int

const (
	KindBrick TempKind = iota
	KindFlag
)

// tempKey addresses one temporary-tile placement by its owning
// object id and kind.
type tempKey struct {
	objectID uint32
	kind     TempKind
}

// TemporaryTile is a placement covering a line (horizontal or
// vertical) or a single point, keyed by (object-id, kind).
type TemporaryTile struct {
	ObjectID uint32
	Kind     TempKind
	X1, Y1   int16
	X2, Y2   int16
}

// points enumerates every coordinate the placement covers.
func (t TemporaryTile) points() []struct{ X, Y int16 } {
	if t.X1 == t.X2 && t.Y1 == t.Y2 {
		return []struct{ X, Y int16 }{{t.X1, t.Y1}}
	}
	var pts []struct{ X, Y int16 }
	if t.Y1 == t.Y2 {
		lo, hi := t.X1, t.X2
		if lo > hi {
			lo, hi = hi, lo
		}
		for x := lo; x <= hi; x++ {
			pts = append(pts, struct{ X, Y int16 }{x, t.Y1})
		}
		return pts
	}
	lo, hi := t.Y1, t.Y2
	if lo > hi {
		lo, hi = hi, lo
	}
	for y := lo; y <= hi; y++ {
		pts = append(pts, struct{ X, Y int16 }{t.X1, y})
	}
	return pts
}

// Overlay is the per-arena mutable overlay of temporary tiles (bricks
// and dropped flags) layered on top of an arena's immutable LvlData.
// Held only for short, non-blocking work.
type Overlay struct {
	mu sync.Mutex

	byKey   map[tempKey]TemporaryTile
	byCoord map[[2]int16]tempKey // last placement covering this coordinate
}

// NewOverlay creates an empty per-arena overlay.
func NewOverlay() *Overlay {
	return &Overlay{
		byKey:   make(map[tempKey]TemporaryTile),
		byCoord: make(map[[2]int16]tempKey),
	}
}

// Insert places t onto the overlay, applying the supersession rules: a
// brick over another brick supersedes it; a flag over a brick
// supersedes; a brick never overwrites a flag.
func (o *Overlay) Insert(t TemporaryTile) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, p := range t.points() {
		coord := [2]int16{p.X, p.Y}
		if existing, ok := o.byCoord[coord]; ok {
			if ex, ok2 := o.byKey[existing]; ok2 && ex.Kind == KindFlag && t.Kind == KindBrick {
				continue
			}
		}
		o.byCoord[coord] = tempKey{t.ObjectID, t.Kind}
	}
	o.byKey[tempKey{t.ObjectID, t.Kind}] = t
}

// Remove deletes the placement for (objectID, kind), if present.
func (o *Overlay) Remove(objectID uint32, kind TempKind) {
	o.mu.Lock()
	defer o.mu.Unlock()

	key := tempKey{objectID, kind}
	t, ok := o.byKey[key]
	if !ok {
		return
	}
	delete(o.byKey, key)
	for _, p := range t.points() {
		coord := [2]int16{p.X, p.Y}
		if o.byCoord[coord] == key {
			delete(o.byCoord, coord)
		}
	}
}

// TileAt returns the overlay's tile class at (x, y), and whether any
// temporary tile covers that coordinate.
func (o *Overlay) TileAt(x, y int16) (Tile, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	key, ok := o.byCoord[[2]int16{x, y}]
	if !ok {
		return None, false
	}
	switch key.kind {
	case KindFlag:
		return TileFlag, true
	default:
		return TileBrick, true
	}
}

// Clear removes every temporary tile from the overlay.
func (o *Overlay) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.byKey = make(map[tempKey]TemporaryTile)
	o.byCoord = make(map[[2]int16]tempKey)
}
