package brick

// Axis is the orientation a Lateral brick line is placed along.
type Axis int

const (
	AxisHorizontal Axis = iota
	AxisVertical
)

// ComputeAxis determines the placement axis from a player's
// 40-rotation-unit heading.
func ComputeAxis(rotation int, lastClockwise bool) Axis {
	r := ((rotation % 40) + 40) % 40

	switch {
	case (r > 35 && r < 40) || (r >= 0 && r < 5) || (r > 15 && r < 25):
		return AxisHorizontal
	case (r > 5 && r < 15) || (r > 25 && r < 35):
		return AxisVertical
	case r == 5 || r == 25:
		if lastClockwise {
			return AxisVertical
		}
		return AxisHorizontal
	case r == 15 || r == 35:
		if lastClockwise {
			return AxisHorizontal
		}
		return AxisVertical
	default:
		return AxisHorizontal
	}
}

// isEmptyFunc reports whether a map tile is unoccupied, consulting
// both the shared level data and the arena's temporary-tile overlay.
type isEmptyFunc func(x, y int16) bool

// computeLateralLine implements the Lateral placement algorithm:
// starting from a single covered tile, it alternately
// extends the "after" side (increasing coordinate) and the "before"
// side (decreasing coordinate) by one tile, stopping a side once the
// next tile is occupied or the map edge is reached, until the line
// covers span tiles or both sides are closed.
func computeLateralLine(isEmpty isEmptyFunc, x, y int16, axis Axis, span int) (x1, y1, x2, y2 int16, ok bool) {
	if !isEmpty(x, y) {
		return 0, 0, 0, 0, false
	}
	if span < 1 {
		span = 1
	}

	horizontal := axis == AxisHorizontal
	point := func(along int16) (int16, int16) {
		if horizontal {
			return along, y
		}
		return x, along
	}

	var along int16
	if horizontal {
		along = x
	} else {
		along = y
	}

	lo, hi := along, along
	length := 1
	afterClosed, beforeClosed := false, false
	turnAfter := true

	for length < span && !(afterClosed && beforeClosed) {
		if turnAfter {
			if !afterClosed {
				next := hi + 1
				px, py := point(next)
				if !inBounds(px, py) || !isEmpty(px, py) {
					afterClosed = true
				} else {
					hi = next
					length++
				}
			}
		} else {
			if !beforeClosed {
				next := lo - 1
				px, py := point(next)
				if !inBounds(px, py) || !isEmpty(px, py) {
					beforeClosed = true
				} else {
					lo = next
					length++
				}
			}
		}
		turnAfter = !turnAfter
	}

	lx1, ly1 := point(lo)
	lx2, ly2 := point(hi)
	return lx1, ly1, lx2, ly2, true
}

func inBounds(x, y int16) bool {
	return x >= 0 && x < 1024 && y >= 0 && y < 1024
}
