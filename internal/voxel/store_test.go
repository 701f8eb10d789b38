package voxel

import "testing"

func TestStoreWriteReadRoundTrip(t *testing.T) {
	s := NewStore(nil)
	p := Pos{5, 10, -3}
	s.Write(p, Cell{Material: 4, Density: -2})
	got, err := s.Read(p)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Material != 4 || got.Density != -2 {
		t.Fatalf("Read() = %+v", got)
	}
}

func TestStoreReadUnloadedColumnFails(t *testing.T) {
	s := NewStore(nil)
	_, err := s.Read(Pos{1000, 0, 1000})
	if KindOf(err) != KindNotLoaded {
		t.Fatalf("expected KindNotLoaded, got %v", err)
	}
}

func TestStoreReadUngeneratedSectionReturnsAir(t *testing.T) {
	s := NewStore(nil)
	s.EnsureColumn(ColumnPos{0, 0})
	got, err := s.Read(Pos{0, 0, 0})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != Air {
		t.Fatalf("Read() = %+v, want Air", got)
	}
}

// TestStoreBoundaryWriteDirtiesExactlyTwoSections exercises I3's sibling
// scenario from spec.md §8 scenario 3: a write on the shared boundary
// between two sections marks exactly the two sections whose padded view
// changed.
func TestStoreBoundaryWriteDirtiesExactlyTwoSections(t *testing.T) {
	s := NewStore(nil)
	s.EnsureColumn(ColumnPos{0, 0})
	// y=15 is the top boundary cell of section y=0, touching section y=1.
	s.Write(Pos{0, 15, 0}, Cell{Material: 1, Density: -1})

	dirty := s.DrainDirty()
	if len(dirty) != 2 {
		t.Fatalf("len(dirty) = %d, want 2: %+v", len(dirty), dirty)
	}
	seen := map[int32]bool{}
	for _, id := range dirty {
		seen[id.Y] = true
	}
	if !seen[0] || !seen[1] {
		t.Fatalf("expected sections y=0 and y=1 dirty, got %+v", dirty)
	}
}

func TestStoreInteriorWriteDirtiesOneSection(t *testing.T) {
	s := NewStore(nil)
	s.EnsureColumn(ColumnPos{0, 0})
	s.Write(Pos{5, 5, 5}, Cell{Material: 1, Density: -1})
	dirty := s.DrainDirty()
	if len(dirty) != 1 {
		t.Fatalf("len(dirty) = %d, want 1: %+v", len(dirty), dirty)
	}
}

func TestStoreDrainDirtyEmptiesSet(t *testing.T) {
	s := NewStore(nil)
	s.EnsureColumn(ColumnPos{0, 0})
	s.Write(Pos{1, 1, 1}, Cell{Material: 1, Density: -1})
	if len(s.DrainDirty()) == 0 {
		t.Fatalf("expected at least one dirty section")
	}
	if got := s.DrainDirty(); len(got) != 0 {
		t.Fatalf("second drain = %+v, want empty", got)
	}
}

func TestReadPaddedSectionFailsWithoutNeighbours(t *testing.T) {
	s := NewStore(nil)
	s.EnsureColumn(ColumnPos{0, 0})
	_, err := s.ReadPaddedSection(SectionID{Column: ColumnPos{0, 0}, Y: 0})
	if KindOf(err) != KindInputIncomplete {
		t.Fatalf("expected KindInputIncomplete, got %v", err)
	}
}

func TestReadPaddedSectionSucceedsWithAllNeighboursLoaded(t *testing.T) {
	s := NewStore(nil)
	centre := ColumnPos{0, 0}
	s.EnsureColumn(centre)
	s.EnsureColumn(ColumnPos{1, 0})
	s.EnsureColumn(ColumnPos{-1, 0})
	s.EnsureColumn(ColumnPos{0, 1})
	s.EnsureColumn(ColumnPos{0, -1})
	id := SectionID{Column: centre, Y: 0}
	if _, err := s.ReadPaddedSection(id); err != nil {
		t.Fatalf("ReadPaddedSection: %v", err)
	}
}

// TestSeamlessPaddedViewsAgree is the unit-level half of invariant I1: two
// adjacent sections must see identical density/material data along their
// shared face through ReadPaddedSection, since the mesh extractor relies
// on that to avoid a stitching pass.
func TestSeamlessPaddedViewsAgree(t *testing.T) {
	s := NewStore(nil)
	for dx := int32(-1); dx <= 2; dx++ {
		for dz := int32(-1); dz <= 1; dz++ {
			s.EnsureColumn(ColumnPos{dx, dz})
		}
	}
	s.Write(Pos{0, 5, 0}, Cell{Material: 9, Density: -9})

	a, err := s.ReadPaddedSection(SectionID{Column: ColumnPos{0, 0}, Y: 0})
	if err != nil {
		t.Fatalf("a: %v", err)
	}
	b, err := s.ReadPaddedSection(SectionID{Column: ColumnPos{1, 0}, Y: 0})
	if err != nil {
		t.Fatalf("b: %v", err)
	}
	// Section (0,0)'s east overlap column (x=17) must equal section
	// (1,0)'s first interior column (x=1).
	for y := 0; y < PaddedSize; y++ {
		for z := 0; z < PaddedSize; z++ {
			got, want := a.At(PaddedSize-1, y, z), b.At(1, y, z)
			if got != want {
				t.Fatalf("seam mismatch at y=%d z=%d: %+v != %+v", y, z, got, want)
			}
		}
	}
}
