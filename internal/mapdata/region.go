package mapdata

// RegionShape selects the point-containment test a Region uses.
// Regions are static 2-D tile-space areas, computed once at load time.
type RegionShape string

const (
	ShapePolygon RegionShape = "NPoly"
	ShapeRect    RegionShape = "Cuboid"
	ShapeCircle  RegionShape = "Cylinder"
)

// Region is a named, immutable area of tile-space loaded from a map's
// attribute chunks.
type Region struct {
	Name   string
	Shape  RegionShape
	NodesX []int32
	NodesY []int32
	Radius int32 // only meaningful for ShapeCircle
}

// Contains reports whether tile (x, y) lies inside the region.
func (r *Region) Contains(x, y int16) bool {
	switch r.Shape {
	case ShapeRect:
		return r.containsRect(x, y)
	case ShapeCircle:
		return r.containsCircle(x, y)
	default:
		return r.containsPolygon(x, y)
	}
}

func (r *Region) containsRect(x, y int16) bool {
	if len(r.NodesX) < 2 {
		return false
	}
	minX, maxX := r.NodesX[0], r.NodesX[0]
	minY, maxY := r.NodesY[0], r.NodesY[0]
	for i := 1; i < len(r.NodesX); i++ {
		if r.NodesX[i] < minX {
			minX = r.NodesX[i]
		}
		if r.NodesX[i] > maxX {
			maxX = r.NodesX[i]
		}
		if r.NodesY[i] < minY {
			minY = r.NodesY[i]
		}
		if r.NodesY[i] > maxY {
			maxY = r.NodesY[i]
		}
	}
	xi, yi := int32(x), int32(y)
	return xi >= minX && xi <= maxX && yi >= minY && yi <= maxY
}

func (r *Region) containsCircle(x, y int16) bool {
	if len(r.NodesX) == 0 || r.Radius <= 0 {
		return false
	}
	dx := int64(int32(x) - r.NodesX[0])
	dy := int64(int32(y) - r.NodesY[0])
	rad := int64(r.Radius)
	return dx*dx+dy*dy <= rad*rad
}

// containsPolygon is a ray-casting point-in-polygon test.
func (r *Region) containsPolygon(x, y int16) bool {
	n := len(r.NodesX)
	if n == 0 {
		return false
	}
	xi, yi := int32(x), int32(y)
	count := 0
	j := n - 1
	for i := range n {
		if (r.NodesY[i] > yi) != (r.NodesY[j] > yi) {
			slope := int64(xi-r.NodesX[i])*int64(r.NodesY[j]-r.NodesY[i]) -
				int64(r.NodesX[j]-r.NodesX[i])*int64(yi-r.NodesY[i])
			if slope == 0 {
				return true
			}
			if (slope < 0) != (int64(r.NodesY[j]-r.NodesY[i]) < 0) {
				count++
			}
		}
		j = i
	}
	return count%2 == 1
}

// RegionsAt returns the set of regions in rs containing tile (x, y).
func RegionsAt(rs []*Region, x, y int16) []*Region {
	var out []*Region
	for _, r := range rs {
		if r.Contains(x, y) {
			out = append(out, r)
		}
	}
	return out
}

// FindRegionByName returns the region in rs named name, or nil.
func FindRegionByName(rs []*Region, name string) *Region {
	for _, r := range rs {
		if r.Name == name {
			return r
		}
	}
	return nil
}
