package voxel

import (
	"log/slog"
	"sync"
)

// Store is the chunked voxel store described in spec.md §4.A. It is
// shared-read / exclusive-write: Read and ReadPaddedSection are safe to
// call concurrently from background meshing/generation tasks, while Write
// is expected to be called only from the owning tick (the Chunk Pipeline's
// main-thread step), matching spec.md §5's ownership rules.
type Store struct {
	log *slog.Logger

	mu      sync.RWMutex
	columns map[ColumnPos]*Column
	dirty   *dirtySet
}

// NewStore returns an empty Store. log defaults to slog.Default() when nil.
func NewStore(log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		log:     log,
		columns: make(map[ColumnPos]*Column),
		dirty:   newDirtySet(),
	}
}

// EnsureColumn returns the column at pos, creating an air-filled column if
// none is loaded yet. Used by the World Generator and Chunk Pipeline to
// obtain a destination for generation output.
func (s *Store) EnsureColumn(pos ColumnPos) *Column {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.columns[pos]
	if !ok {
		col = newAirColumn(pos)
		s.columns[pos] = col
	}
	return col
}

// Unload drops the column at pos from memory. Voxel data for unloaded
// chunks is expected to have already been persisted by the caller if it
// was modified; Unload itself never touches disk (see internal/persist).
func (s *Store) Unload(pos ColumnPos) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.columns, pos)
}

// Read returns the material and density at pos. Reading a cell whose
// section has not been generated returns the canonical air/empty result
// with a nil error; only a wholly unloaded column yields ErrNotLoaded.
func (s *Store) Read(pos Pos) (Cell, error) {
	id, local := pos.Section()
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.columns[id.Column]
	if !ok {
		return Cell{}, ErrNotLoaded
	}
	sec := col.section(id.Y)
	if sec == nil {
		return Air, nil
	}
	return sec.At(local[0], local[1], local[2]), nil
}

// Write sets the material and density at pos, creating the owning column
// (air-filled) if it did not already exist. The owning section is marked
// dirty; any of its six neighbours whose padded view now changes because
// the written cell sits on the shared 1-cell boundary are marked dirty
// too.
//
// Writes never fail (spec.md §4.A). A gravity-for-terrain sweep, if ever
// added, must hook this method rather than run as a standalone pass over
// the store (spec.md §9 Open Questions) — no such hook exists today.
func (s *Store) Write(pos Pos, c Cell) {
	id, local := pos.Section()
	s.mu.Lock()
	defer s.mu.Unlock()

	col, ok := s.columns[id.Column]
	if !ok {
		col = newAirColumn(id.Column)
		s.columns[id.Column] = col
	}
	sec := col.section(id.Y)
	if sec == nil {
		return
	}
	sec.Set(local[0], local[1], local[2], c)
	s.dirty.add(id)

	for _, d := range boundaryDirections(local) {
		nid := id.Neighbour(d)
		if nc, ok := s.columns[nid.Column]; ok {
			if ns := nc.section(nid.Y); ns != nil {
				ns.MarkDirty()
				s.dirty.add(nid)
			}
		}
	}
}

// boundaryDirections returns the face directions of any section boundary
// the local coordinate touches (zero, one, two or three of the six, at a
// corner).
func boundaryDirections(local [3]uint8) []Direction {
	var out []Direction
	const max = SectionHeight - 1
	if local[1] == 0 {
		out = append(out, DirDown)
	}
	if local[1] == max {
		out = append(out, DirUp)
	}
	if local[2] == 0 {
		out = append(out, DirNorth)
	}
	if local[2] == max {
		out = append(out, DirSouth)
	}
	if local[0] == max {
		out = append(out, DirEast)
	}
	if local[0] == 0 {
		out = append(out, DirWest)
	}
	return out
}

// InstallSection atomically replaces the section at id with sec, creating
// the owning column if needed, and marks the section (and any loaded
// neighbour whose padded view now includes stale boundary data) dirty.
// The World Generator's background workers call this rather than Write,
// since a freshly generated section replaces its contents wholesale
// instead of one cell at a time.
func (s *Store) InstallSection(id SectionID, sec *Section) {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, ok := s.columns[id.Column]
	if !ok {
		col = newAirColumn(id.Column)
		s.columns[id.Column] = col
	}
	col.Sections[id.Y] = sec
	sec.MarkDirty()
	s.dirty.add(id)

	for _, d := range Directions {
		nid := id.Neighbour(d)
		if nc, ok := s.columns[nid.Column]; ok {
			if ns := nc.section(nid.Y); ns != nil {
				ns.MarkDirty()
				s.dirty.add(nid)
			}
		}
	}
}

// DrainDirty empties and returns the set of sections whose mesh is stale.
// Callers (the Chunk Pipeline) are expected to enqueue a mesh task for
// each and skip any already queued.
func (s *Store) DrainDirty() []SectionID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty.drain()
}

// ClearSectionDirty clears the stale-mesh flag on a single section after
// its mesh has been successfully emitted.
func (s *Store) ClearSectionDirty(id SectionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if col, ok := s.columns[id.Column]; ok {
		if sec := col.section(id.Y); sec != nil {
			sec.ClearDirty()
		}
	}
}

// Column returns the column at pos and whether it is currently loaded.
func (s *Store) Column(pos ColumnPos) (*Column, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.columns[pos]
	return col, ok
}

// Loaded reports how many columns are currently resident in memory.
func (s *Store) Loaded() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.columns)
}
