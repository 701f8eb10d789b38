package voxel

import (
	"github.com/brentp/intintmap"
)

// Cell is a single voxel: a material identifier drawn from the owning
// section's palette and a signed density. Negative density is interior,
// positive is exterior, and the zero crossing defines the surface.
type Cell struct {
	Material uint8
	Density  int16
}

// Air is the canonical empty cell returned for unloaded or ungenerated
// space.
var Air = Cell{Material: 0, Density: 32767}

// paletteEntry is one palette slot: a material id. Densities are never
// stored in the palette; they live in the per-cell density array (or in
// constantDensity for a section in constant form).
type paletteEntry struct {
	material uint8
}

// Section is a 16x16x16 cubic region of cells, stored in palette form: a
// small per-section palette (<=256 entries, typically <=16) plus a packed
// index array whose width is the minimum number of bits needed to address
// the palette. A section whose cells all share one material and one
// density is stored in the constant form and carries no index array or
// density array at all.
type Section struct {
	palette []paletteEntry
	// lookup maps material id -> palette slot, rebuilt on every palette
	// mutation. Backed by an open-addressed int64 map since this is the
	// hottest lookup on the write path.
	lookup *intintmap.Map

	// indexWidth is the number of bits used per cell in packed. 0 means the
	// section is in constant form.
	indexWidth uint8
	packed     []uint64 // bit-packed palette indices, SectionHeight^3 cells
	density    []int16  // per-cell density, parallel to packed; nil in constant form

	constantDensity int16

	dirty bool
}

// NewSection returns a section uniformly filled with material m at the
// given density (the constant-section optimization).
func NewSection(m uint8, density int16) *Section {
	s := &Section{
		palette:         []paletteEntry{{material: m}},
		constantDensity: density,
	}
	s.rebuildLookup()
	return s
}

// BuildSection constructs a fully populated section by calling fn once for
// every one of its 4096 cells, used by the World Generator to produce a
// section in one pass without the per-write palette/dirty bookkeeping
// Set performs.
func BuildSection(fn func(x, y, z uint8) Cell) *Section {
	s := NewSection(Air.Material, Air.Density)
	s.expand()
	for x := uint8(0); x < SectionHeight; x++ {
		for y := uint8(0); y < SectionHeight; y++ {
			for z := uint8(0); z < SectionHeight; z++ {
				c := fn(x, y, z)
				slot, _ := s.paletteSlot(c.Material)
				i := localIndex(x, y, z)
				setPackedIndex(s.packed, s.indexWidth, i, slot)
				s.density[i] = c.Density
			}
		}
	}
	s.dirty = true
	s.maybeCompact()
	return s
}

func (s *Section) rebuildLookup() {
	lk := intintmap.New(len(s.palette)+1, 0.6)
	for i, e := range s.palette {
		lk.Put(int64(e.material), int64(i))
	}
	s.lookup = lk
}

// constant reports whether the section is in constant form: one material
// and one density for every cell, with no packed index/density arrays.
func (s *Section) constant() bool {
	return s.indexWidth == 0
}

// At returns the cell at the given local coordinate, each in [0,16).
func (s *Section) At(x, y, z uint8) Cell {
	if s.constant() {
		return Cell{Material: s.palette[0].material, Density: s.constantDensity}
	}
	i := localIndex(x, y, z)
	idx := s.packedIndexAt(i)
	return Cell{Material: s.palette[idx].material, Density: s.density[i]}
}

// Set writes the cell at the given local coordinate, adding c.Material to
// the palette (and widening the index) when it is new, then compacts the
// section if the write left every cell identical.
func (s *Section) Set(x, y, z uint8, c Cell) {
	i := localIndex(x, y, z)
	slot, grew := s.paletteSlot(c.Material)
	if s.constant() {
		if !grew && slot == 0 && c.Density == s.constantDensity {
			return
		}
		s.expand()
	}
	setPackedIndex(s.packed, s.indexWidth, i, slot)
	s.density[i] = c.Density
	s.dirty = true
	s.maybeCompact()
}

// paletteSlot returns the palette slot for material m, inserting it (and
// widening the index array if needed) when absent.
func (s *Section) paletteSlot(m uint8) (slot int, grew bool) {
	if v, ok := s.lookup.Get(int64(m)); ok {
		return int(v), false
	}
	s.palette = append(s.palette, paletteEntry{material: m})
	slot = len(s.palette) - 1
	s.lookup.Put(int64(m), int64(slot))
	if need := bitsFor(len(s.palette)); need > s.indexWidth && !s.constant() {
		s.repack(need)
	}
	return slot, true
}

// expand converts a constant-form section into full palette+index form in
// preparation for a write that changes a single cell.
func (s *Section) expand() {
	n := SectionHeight * SectionHeight * SectionHeight
	width := bitsFor(len(s.palette))
	if width == 0 {
		width = 1
	}
	s.indexWidth = width
	s.packed = make([]uint64, packedWords(n, width))
	s.density = make([]int16, n)
	for i := 0; i < n; i++ {
		setPackedIndex(s.packed, width, i, 0)
		s.density[i] = s.constantDensity
	}
}

// repack re-encodes the packed index array at a larger bit width after a
// palette growth exceeded the previous width's capacity.
func (s *Section) repack(width uint8) {
	n := SectionHeight * SectionHeight * SectionHeight
	old := s.packed
	oldWidth := s.indexWidth
	newPacked := make([]uint64, packedWords(n, width))
	for i := 0; i < n; i++ {
		idx := getPackedIndex(old, oldWidth, i)
		setPackedIndex(newPacked, width, i, idx)
	}
	s.packed = newPacked
	s.indexWidth = width
}

// maybeCompact collapses the section back to constant form when every
// cell now shares the same material and density, shrinking the palette to
// that one entry. Set and BuildSection call it at the end of every write,
// so the check runs inside the write itself; there is no deferred pass.
func (s *Section) maybeCompact() {
	if s.constant() {
		return
	}
	n := len(s.density)
	if n == 0 {
		return
	}
	d0, idx0 := s.density[0], s.packedIndexAt(0)
	for i := 1; i < n; i++ {
		if s.density[i] != d0 || s.packedIndexAt(i) != idx0 {
			return
		}
	}
	s.palette = []paletteEntry{s.palette[idx0]}
	s.rebuildLookup()
	s.constantDensity = d0
	s.indexWidth = 0
	s.packed = nil
	s.density = nil
}

// Dirty reports whether the section has been written since its mesh was
// last successfully emitted.
func (s *Section) Dirty() bool { return s.dirty }

// ClearDirty clears the stale-mesh flag; callers invoke this once mesh
// emission for the section has succeeded.
func (s *Section) ClearDirty() { s.dirty = false }

// MarkDirty forces the stale-mesh flag, used when a neighbouring section's
// write changes this section's padded view without touching this
// section's own cells.
func (s *Section) MarkDirty() { s.dirty = true }

// IndexWidth reports the number of bits used per cell in the packed index
// array, or 0 for a section in constant form. Mainly useful for
// diagnostics (cmd/inspect_palette).
func (s *Section) IndexWidth() uint8 { return s.indexWidth }

// PaletteSize reports the number of distinct materials currently in the
// section's palette.
func (s *Section) PaletteSize() int { return len(s.palette) }

func (s *Section) packedIndexAt(i int) int {
	return getPackedIndex(s.packed, s.indexWidth, i)
}

// bitsFor returns the minimum number of bits needed to represent n distinct
// palette slots (n >= 1).
func bitsFor(n int) uint8 {
	if n <= 1 {
		return 1
	}
	bits := uint8(0)
	for v := n - 1; v > 0; v >>= 1 {
		bits++
	}
	return bits
}

func packedWords(n int, width uint8) int {
	bits := n * int(width)
	return (bits + 63) / 64
}

func getPackedIndex(packed []uint64, width uint8, i int) int {
	if width == 0 {
		return 0
	}
	bitPos := i * int(width)
	word := bitPos / 64
	offset := uint(bitPos % 64)
	mask := uint64(1)<<width - 1
	v := (packed[word] >> offset) & mask
	if offset+uint(width) > 64 {
		remaining := offset + uint(width) - 64
		v |= (packed[word+1] & (uint64(1)<<remaining - 1)) << (uint(width) - remaining)
	}
	return int(v)
}

func setPackedIndex(packed []uint64, width uint8, i, value int) {
	bitPos := i * int(width)
	word := bitPos / 64
	offset := uint(bitPos % 64)
	mask := uint64(1)<<width - 1
	v := uint64(value) & mask
	packed[word] = (packed[word] &^ (mask << offset)) | (v << offset)
	if offset+uint(width) > 64 {
		remaining := offset + uint(width) - 64
		packed[word+1] = (packed[word+1] &^ (uint64(1)<<remaining - 1)) | (v >> (uint(width) - remaining))
	}
}
