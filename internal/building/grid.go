package building

// Grid is the Building Grid (spec.md §4.E): pieces live in a dense arena
// (a free-list slot can be reused once a piece is removed, per spec.md §9
// "deletion invalidates ids in the arena's free list"), while idIndex and
// cells give O(1) id→piece and cell→piece lookup. This generalizes
// redstone.Graph's posIndex/idIndex pair — there, one chunk-local graph
// mapped one cube.Pos to exactly one node; here, one piece can own many
// cells, and the arena spans the whole world rather than one chunk.
type Grid struct {
	CellSize float64

	pieces  []Piece
	free    []int
	idIndex map[PieceID]int
	cells   map[CellPos]PieceID

	dirty map[PieceID]struct{}
}

// NewGrid returns an empty Grid. cellSize is CELL_SIZE (spec.md §6,
// default 2.0).
func NewGrid(cellSize float64) *Grid {
	return &Grid{
		CellSize: cellSize,
		idIndex:  make(map[PieceID]int),
		cells:    make(map[CellPos]PieceID),
		dirty:    make(map[PieceID]struct{}),
	}
}

// Piece returns the piece with id, if it is still live.
func (g *Grid) Piece(id PieceID) (*Piece, bool) {
	idx, ok := g.idIndex[id]
	if !ok {
		return nil, false
	}
	return &g.pieces[idx], true
}

// At returns the id of the piece occupying cell, if any.
func (g *Grid) At(cell CellPos) (PieceID, bool) {
	id, ok := g.cells[cell]
	return id, ok
}

// Len reports how many pieces are currently live.
func (g *Grid) Len() int {
	return len(g.idIndex)
}

// MarkDirty flags id's stability as stale and queues it for
// internal/stability's next DrainDirty.
func (g *Grid) MarkDirty(id PieceID) {
	if p, ok := g.Piece(id); ok {
		p.Dirty = true
	}
	g.dirty[id] = struct{}{}
}

// DrainDirty empties and returns the dirty set (spec.md §4.F: the
// Stability Engine recomputes stability for pieces flagged dirty by
// placement, edge changes, or voxel-driven support loss).
func (g *Grid) DrainDirty() []PieceID {
	if len(g.dirty) == 0 {
		return nil
	}
	out := make([]PieceID, 0, len(g.dirty))
	for id := range g.dirty {
		out = append(out, id)
	}
	g.dirty = make(map[PieceID]struct{})
	return out
}

// occupiedCells returns the grid cells piece p occupies for definition
// def, accounting for p.Rotation swapping the X/Z footprint on odd steps.
func occupiedCells(p Piece, def PieceDefinition) []CellPos {
	dx, dy, dz := def.Dimensions[0], def.Dimensions[1], def.Dimensions[2]
	if p.Rotation%2 == 1 {
		dx, dz = dz, dx
	}
	cells := make([]CellPos, 0, int(dx)*int(dy)*int(dz))
	for x := int32(0); x < dx; x++ {
		for y := int32(0); y < dy; y++ {
			for z := int32(0); z < dz; z++ {
				cells = append(cells, CellPos{p.GridPos[0] + x, p.GridPos[1] + y, p.GridPos[2] + z})
			}
		}
	}
	return cells
}

// insert places p into the arena and occupies cells, returning the live
// *Piece so callers can keep appending adjacency after insertion.
func (g *Grid) insert(p Piece, cells []CellPos) *Piece {
	var idx int
	if n := len(g.free); n > 0 {
		idx = g.free[n-1]
		g.free = g.free[:n-1]
		g.pieces[idx] = p
	} else {
		idx = len(g.pieces)
		g.pieces = append(g.pieces, p)
	}
	g.idIndex[p.ID] = idx
	for _, c := range cells {
		g.cells[c] = p.ID
	}
	g.dirty[p.ID] = struct{}{}
	return &g.pieces[idx]
}

// Restore re-inserts a piece loaded from persist without running the
// placement-validation pipeline: the piece was valid when it was saved,
// and internal/engine's bootstrap is the only caller. Support-graph edges
// on p are trusted as given; the caller is responsible for having loaded
// every piece before any of them are read.
func (g *Grid) Restore(p Piece, def PieceDefinition) *Piece {
	cells := occupiedCells(p, def)
	restored := g.insert(p, cells)
	delete(g.dirty, p.ID)
	return restored
}

// DetachEdges removes id from every neighbour's opposite adjacency list
// and clears id's own SupportsMe/ISupport, so no support-graph edge
// references id afterwards (spec.md §8 I6, required before a collapse
// promotion or a destruction removes the piece).
func (g *Grid) DetachEdges(id PieceID) {
	p, ok := g.Piece(id)
	if !ok {
		return
	}
	for _, supporterID := range p.SupportsMe {
		if supporter, ok := g.Piece(supporterID); ok {
			supporter.ISupport = removePieceID(supporter.ISupport, id)
		}
	}
	for _, childID := range p.ISupport {
		if child, ok := g.Piece(childID); ok {
			child.SupportsMe = removePieceID(child.SupportsMe, id)
		}
	}
	p.SupportsMe = nil
	p.ISupport = nil
}

func removePieceID(list []PieceID, id PieceID) []PieceID {
	for i, v := range list {
		if v == id {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// Remove deletes a piece and frees its cells. It does not touch any other
// piece's SupportsMe/ISupport lists — internal/stability and
// internal/collapse are responsible for detaching edges before removal,
// since only they know whether the removal is a destruction or a
// collapse-promotion (spec.md §8 I6).
func (g *Grid) Remove(id PieceID, def PieceDefinition) {
	idx, ok := g.idIndex[id]
	if !ok {
		return
	}
	p := g.pieces[idx]
	for _, c := range occupiedCells(p, def) {
		if g.cells[c] == id {
			delete(g.cells, c)
		}
	}
	delete(g.idIndex, id)
	g.free = append(g.free, idx)
}
