package mapdata

// Checksum computes the legacy-compatible map checksum for a given
// 32-bit key. It iterates y ∈ {key%32, key%32+32, …} and
// x ∈ {key%31, key%31+31, …} within the map bounds, XORing
// key ^ tile_byte into the running value for each normal or safe tile.
//
// Output must be bit-exact with the legacy server: this exact
// iteration order and the XOR accumulation are not "improvable".
func (l *LvlData) Checksum(key uint32) uint32 {
	var sum uint32
	yStart := int(key % 32)
	xStart := int(key % 31)
	for y := yStart; y < MapHeight; y += 32 {
		for x := xStart; x < MapWidth; x += 31 {
			t := l.tileAt(x, y)
			if t.IsNormal() || t.IsSafe() {
				sum ^= key ^ uint32(t)
			}
		}
	}
	return sum
}
