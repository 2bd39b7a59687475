package mapdata

// direction is one step of the outward spiral search.
type direction struct{ dx, dy int16 }

// spiralDirections is the fixed turn order for TryFindEmptyTileNear:
// Left, Down, Right, Up.
var spiralDirections = [4]direction{
	{-1, 0}, // Left
	{0, 1},  // Down
	{1, 0},  // Right
	{0, -1}, // Up
}

// maxSpiralLeg aborts the search once a spiral leg would exceed this
// length.
const maxSpiralLeg = 35

// TryFindEmptyTileNear spirals outward from (x, y), starting one tile
// right of the origin, turning Left→Down→Right→Up and expanding the
// leg length every two turns, looking for the first tile for which
// isEmpty returns true. It aborts once the spiral leg would exceed 35
// tiles, returning ok=false.
func TryFindEmptyTileNear(isEmpty func(x, y int16) bool, x, y int16) (rx, ry int16, ok bool) {
	cx, cy := x+1, y

	legLen := int16(1)
	dirIdx := 0
	turnsAtLen := 0

	for legLen <= maxSpiralLeg {
		dir := spiralDirections[dirIdx]
		for step := int16(0); step < legLen; step++ {
			cx += dir.dx
			cy += dir.dy
			if InBounds(int(cx), int(cy)) && isEmpty(cx, cy) {
				return cx, cy, true
			}
		}

		dirIdx = (dirIdx + 1) % 4
		turnsAtLen++
		if turnsAtLen == 2 {
			legLen++
			turnsAtLen = 0
		}
	}
	return 0, 0, false
}
