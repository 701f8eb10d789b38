package persist

import (
	"path/filepath"
	"testing"

	"github.com/voxelforge/bastion/internal/building"
	"github.com/voxelforge/bastion/internal/voxel"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "world.ldb"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestHeaderRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if _, ok, err := s.ReadHeader(); err != nil || ok {
		t.Fatalf("expected no header yet, got ok=%v err=%v", ok, err)
	}

	want := Header{Version: FormatVersion, Seed: 42}
	if err := s.WriteHeader(want); err != nil {
		t.Fatalf("write header: %v", err)
	}
	got, ok, err := s.ReadHeader()
	if err != nil || !ok {
		t.Fatalf("read header: ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Fatalf("header round-trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestColumnRoundTrip(t *testing.T) {
	s := openTestStore(t)

	col := &voxel.Column{Pos: voxel.ColumnPos{3, -5}}
	for y := range col.Sections {
		col.Sections[y] = voxel.NewSection(uint8(y+1), int16(-10*(y+1)))
	}
	// Punch a few holes so at least one section isn't constant-form,
	// exercising the RLE path with more than one run per Y-column.
	col.Sections[0].Set(1, 0, 1, voxel.Cell{Material: 9, Density: 500})
	col.Sections[0].Set(1, 5, 1, voxel.Cell{Material: 9, Density: 500})

	if err := s.SaveColumn(col); err != nil {
		t.Fatalf("save column: %v", err)
	}
	loaded, ok, err := s.LoadColumn(col.Pos)
	if err != nil || !ok {
		t.Fatalf("load column: ok=%v err=%v", ok, err)
	}

	for y := 0; y < voxel.SectionsPerColumn; y++ {
		for x := uint8(0); x < voxel.SectionHeight; x++ {
			for cy := uint8(0); cy < voxel.SectionHeight; cy++ {
				for z := uint8(0); z < voxel.SectionHeight; z++ {
					want := col.Sections[y].At(x, cy, z)
					got := loaded.Sections[y].At(x, cy, z)
					if got != want {
						t.Fatalf("cell mismatch at section %d (%d,%d,%d): got %+v, want %+v", y, x, cy, z, got, want)
					}
				}
			}
		}
	}
}

func TestColumnRoundTripIsFixedPoint(t *testing.T) {
	s := openTestStore(t)
	col := &voxel.Column{Pos: voxel.ColumnPos{0, 0}}
	for y := range col.Sections {
		col.Sections[y] = voxel.NewSection(uint8(y), 100)
	}
	first := encodeColumn(col)
	if err := s.SaveColumn(col); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, _, err := s.LoadColumn(col.Pos)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	second := encodeColumn(loaded)
	if len(first) != len(second) {
		t.Fatalf("re-encoding is not a fixed point: %d bytes vs %d bytes", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("re-encoding diverges at byte %d", i)
		}
	}
}

func TestPieceRoundTrip(t *testing.T) {
	s := openTestStore(t)

	other := newTestPieceID(2)
	rec := PieceRecord{
		ID:          newTestPieceID(1),
		Type:        "wall",
		Material:    "stone",
		Position:    [3]int32{1, 2, 3},
		Rotation:    2,
		Stability:   250.5,
		ConnectedTo: []building.PieceID{other},
	}
	if err := s.SavePiece(rec); err != nil {
		t.Fatalf("save piece: %v", err)
	}

	all, err := s.LoadAllPieces()
	if err != nil {
		t.Fatalf("load all pieces: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 piece, got %d", len(all))
	}
	got := all[0]
	if got.ID != rec.ID || got.Type != rec.Type || got.Material != rec.Material ||
		got.Position != rec.Position || got.Rotation != rec.Rotation || got.Stability != rec.Stability {
		t.Fatalf("piece round-trip mismatch: got %+v, want %+v", got, rec)
	}
	if len(got.ConnectedTo) != 1 || got.ConnectedTo[0] != other {
		t.Fatalf("expected connected_to %v, got %v", []building.PieceID{other}, got.ConnectedTo)
	}

	if err := s.DeletePiece(rec.ID); err != nil {
		t.Fatalf("delete piece: %v", err)
	}
	all, err = s.LoadAllPieces()
	if err != nil {
		t.Fatalf("load all pieces after delete: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected 0 pieces after delete, got %d", len(all))
	}
}

func newTestPieceID(n byte) building.PieceID {
	var id building.PieceID
	id[len(id)-1] = n
	return id
}
