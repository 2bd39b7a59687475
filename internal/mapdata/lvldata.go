package mapdata

import (
	"bufio"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"sync"
)

// Identity uniquely keys one shared LvlData in the registry.
type Identity struct {
	Path     string
	Checksum uint32
}

// FlagPosition is a static flag spawn point parsed from the level file.
type FlagPosition struct {
	X, Y int16
}

// LvlData is the immutable, shared level payload for one (path,
// checksum) identity. Once constructed it is never mutated;
// mutable, transient state (bricks, dropped flags) lives in a
// per-arena Overlay instead.
type LvlData struct {
	id Identity

	tiles   []Tile // row-major, MapWidth*MapHeight
	flags   []FlagPosition
	regions []*Region
	chunks  map[string][]byte // raw attribute chunk payloads by 4-char tag
	errs    []error

	mu     sync.Mutex
	arenas map[string]struct{} // refcount set: arena names currently bound
}

// Identity returns the (path, checksum) key identifying this payload.
func (l *LvlData) Identity() Identity { return l.id }

// Errors returns the parse errors encountered while loading, if any.
func (l *LvlData) Errors() []error { return l.errs }

// Flags returns the static flag spawn points.
func (l *LvlData) Flags() []FlagPosition { return l.flags }

// Regions returns all named regions defined in this level.
func (l *LvlData) Regions() []*Region { return l.regions }

// Chunk returns the raw payload of an attribute chunk by its 4-char
// tag, or nil if absent.
func (l *LvlData) Chunk(tag string) []byte { return l.chunks[tag] }

func (l *LvlData) tileAt(x, y int) Tile {
	if x < 0 || x >= MapWidth || y < 0 || y >= MapHeight {
		return None
	}
	return l.tiles[y*MapWidth+x]
}

// bindArena atomically adds arena to this payload's refcount set,
// returning the new reference count.
func (l *LvlData) bindArena(arena string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.arenas[arena] = struct{}{}
	return len(l.arenas)
}

// releaseArena removes arena from the refcount set, returning the
// remaining reference count.
func (l *LvlData) releaseArena(arena string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.arenas, arena)
	return len(l.arenas)
}

// recordErr appends err to the level's error list, capped so a corrupt
// file can't grow it unboundedly.
func (l *LvlData) recordErr(err error) {
	if len(l.errs) < maxRecordedErrors {
		l.errs = append(l.errs, err)
	}
}

// loadLvlData streams r through CRC-32 to compute its identity, then
// parses tiles/flags/regions/chunks from the start of the stream.
func loadLvlData(path string, r io.Reader) (*LvlData, error) {
	crc := crc32.NewIEEE()
	tee := io.TeeReader(r, crc)
	buf := bufio.NewReader(tee)

	l := &LvlData{
		tiles:  make([]Tile, MapWidth*MapHeight),
		chunks: make(map[string][]byte),
		arenas: make(map[string]struct{}),
	}

	if err := parseLevel(buf, l); err != nil {
		return nil, fmt.Errorf("parsing level %s: %w", path, err)
	}

	// Drain any unread bytes so the CRC covers the whole stream.
	if _, err := io.Copy(io.Discard, tee); err != nil {
		return nil, fmt.Errorf("draining level %s: %w", path, err)
	}

	l.id = Identity{Path: path, Checksum: crc.Sum32()}
	return l, nil
}

// openEmergencyMap returns the single global fallback LvlData used
// when a level file cannot be resolved, opened, or parsed.
func openEmergencyMap() *LvlData {
	return &LvlData{
		id:     Identity{Path: "<emergency>", Checksum: 0},
		tiles:  make([]Tile, MapWidth*MapHeight),
		chunks: make(map[string][]byte),
		arenas: make(map[string]struct{}),
	}
}

// openLevelFile opens path for streaming; a thin seam kept so tests
// can substitute an in-memory reader without touching the filesystem.
func openLevelFile(path string) (io.ReadCloser, error) {
	return os.Open(path)
}
