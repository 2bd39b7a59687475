package mapdata

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// ArenaMap binds one arena to its shared, immutable LvlData plus its
// own mutable temporary-tile overlay.
type ArenaMap struct {
	Data    *LvlData
	Overlay *Overlay
}

// Get returns the tile class at (x, y). When includeTemp is true, the
// per-arena overlay (bricks, dropped flags) is consulted first.
func (m *ArenaMap) Get(x, y int16, includeTemp bool) Tile {
	if includeTemp {
		if t, ok := m.Overlay.TileAt(x, y); ok {
			return t
		}
	}
	return m.Data.tileAt(int(x), int(y))
}

// RegionsAt returns the regions of the arena's level containing (x, y).
func (m *ArenaMap) RegionsAt(x, y int16) []*Region {
	return RegionsAt(m.Data.Regions(), x, y)
}

// FindRegionByName looks up a named region on the arena's level.
func (m *ArenaMap) FindRegionByName(name string) *Region {
	return FindRegionByName(m.Data.Regions(), name)
}

// Store is the process-wide, identity-deduplicated level-data
// registry. Protected by a single mutex; LvlData payloads
// themselves are read-only after insertion.
type Store struct {
	mu   sync.Mutex
	byID map[Identity]*LvlData
}

// NewStore creates an empty level-data registry.
func NewStore() *Store {
	return &Store{byID: make(map[Identity]*LvlData)}
}

// Load resolves the level file for (baseName, mapName) against
// searchPaths, streams it, and binds arenaName to the resulting
// LvlData — joining an existing cache entry if one already shares its
// (path, checksum) identity.
//
// On any I/O or parse failure, arenaName is bound to the single global
// emergency map instead.
func (s *Store) Load(arenaName, baseName, mapName string, searchPaths []string) *ArenaMap {
	path, err := resolvePath(searchPaths, baseName, mapName)
	if err != nil {
		slog.Warn("map: resolving level path failed, using emergency map",
			"arena", arenaName, "base", baseName, "map", mapName, "error", err)
		return s.bindEmergency(arenaName)
	}

	f, err := openLevelFile(path)
	if err != nil {
		slog.Warn("map: opening level file failed, using emergency map",
			"arena", arenaName, "path", path, "error", err)
		return s.bindEmergency(arenaName)
	}
	defer f.Close()

	ld, err := loadLvlData(path, f)
	if err != nil {
		slog.Warn("map: loading level failed, using emergency map",
			"arena", arenaName, "path", path, "error", err)
		return s.bindEmergency(arenaName)
	}

	s.mu.Lock()
	existing, ok := s.byID[ld.id]
	if ok {
		s.mu.Unlock()
		existing.bindArena(arenaName)
		return &ArenaMap{Data: existing, Overlay: NewOverlay()}
	}
	s.byID[ld.id] = ld
	s.mu.Unlock()

	ld.bindArena(arenaName)
	return &ArenaMap{Data: ld, Overlay: NewOverlay()}
}

// Release unbinds arenaName from am's LvlData, evicting the entry from
// the registry once its last reference is gone.
func (s *Store) Release(arenaName string, am *ArenaMap) {
	remaining := am.Data.releaseArena(arenaName)
	if remaining > 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.byID[am.Data.id]; ok && cur == am.Data {
		delete(s.byID, am.Data.id)
	}
}

func (s *Store) bindEmergency(arenaName string) *ArenaMap {
	s.mu.Lock()
	em, ok := s.byID[emergencyIdentity]
	if !ok {
		em = openEmergencyMap()
		s.byID[emergencyIdentity] = em
	}
	s.mu.Unlock()
	em.bindArena(arenaName)
	return &ArenaMap{Data: em, Overlay: NewOverlay()}
}

var emergencyIdentity = Identity{Path: "<emergency>", Checksum: 0}

// resolvePath computes the level filename by searching searchPaths
// with substitutions {%b = baseName, %m = mapName}, returning the
// first candidate that exists on disk.
func resolvePath(searchPaths []string, baseName, mapName string) (string, error) {
	for _, pattern := range searchPaths {
		candidate := strings.NewReplacer("%b", baseName, "%m", mapName).Replace(pattern)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no candidate level file found for base=%q map=%q in %v", baseName, mapName, searchPaths)
}
