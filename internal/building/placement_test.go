package building

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/voxelforge/bastion/internal/voxel"
)

func newSolidStore(t *testing.T) *voxel.Store {
	t.Helper()
	store := voxel.NewStore(nil)
	store.EnsureColumn(voxel.ColumnPos{0, 0})
	// Fill a slab of solid ground at y=0..1; foundations are placed at grid
	// y=1 (world y=2) so the cells just below their lower face are solid.
	for x := int32(-8); x < 8; x++ {
		for z := int32(-8); z < 8; z++ {
			for y := int32(0); y < 2; y++ {
				store.Write(voxel.Pos{x, y, z}, voxel.Cell{Material: 1, Density: -100})
			}
		}
	}
	return store
}

func newPlacer(t *testing.T) *Placer {
	t.Helper()
	grid := NewGrid(2.0)
	snaps := NewSnapIndex(0.5)
	defs := DefaultDefinitions()
	store := newSolidStore(t)
	return NewPlacer(grid, snaps, defs, store, Zone{Centre: mgl64.Vec3{0, 0, 0}, Radius: 100}, 0.5)
}

func TestPlaceFoundationOnTerrainSucceeds(t *testing.T) {
	pl := newPlacer(t)
	piece, err := pl.Place(Request{Type: "foundation", Material: "wood", GridPos: [3]int32{0, 1, 0}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if piece.Type != "foundation" || piece.Material != "wood" {
		t.Fatalf("unexpected piece: %+v", piece)
	}
	if pl.Grid.Len() != 1 {
		t.Fatalf("expected 1 piece in grid, got %d", pl.Grid.Len())
	}
}

func TestPlaceRejectsOverlap(t *testing.T) {
	pl := newPlacer(t)
	if _, err := pl.Place(Request{Type: "foundation", Material: "wood", GridPos: [3]int32{0, 1, 0}}); err != nil {
		t.Fatalf("first placement failed: %v", err)
	}
	_, err := pl.Place(Request{Type: "foundation", Material: "wood", GridPos: [3]int32{0, 1, 0}})
	assertReason(t, err, ReasonOverlap)
}

func TestPlaceRejectsOutsideZone(t *testing.T) {
	pl := newPlacer(t)
	pl.Zone = Zone{Centre: mgl64.Vec3{0, 0, 0}, Radius: 5}
	_, err := pl.Place(Request{Type: "foundation", Material: "wood", GridPos: [3]int32{50, 0, 50}})
	assertReason(t, err, ReasonOutOfZone)
}

func TestPlaceRejectsWithoutTerrainOrSnap(t *testing.T) {
	pl := newPlacer(t)
	// A wall (not FreePlacement) floating far above any terrain, with no
	// existing piece to snap to, must fail terrain clearance.
	_, err := pl.Place(Request{Type: "wall", Material: "wood", GridPos: [3]int32{0, 50, 0}})
	assertReason(t, err, ReasonTerrainClearance)
}

func TestPlaceWallSnapsOntoFoundationAndCreatesSupportEdge(t *testing.T) {
	pl := newPlacer(t)
	foundation, err := pl.Place(Request{Type: "foundation", Material: "stone", GridPos: [3]int32{0, 1, 0}})
	if err != nil {
		t.Fatalf("foundation placement failed: %v", err)
	}

	wall, err := pl.Place(Request{Type: "wall", Material: "wood", GridPos: [3]int32{0, 2, 0}})
	if err != nil {
		t.Fatalf("wall placement failed: %v", err)
	}

	if len(wall.SupportsMe) != 1 || wall.SupportsMe[0] != foundation.ID {
		t.Fatalf("expected wall to be supported by foundation, got %+v", wall.SupportsMe)
	}
	updatedFoundation, _ := pl.Grid.Piece(foundation.ID)
	if len(updatedFoundation.ISupport) != 1 || updatedFoundation.ISupport[0] != wall.ID {
		t.Fatalf("expected foundation.ISupport to include wall, got %+v", updatedFoundation.ISupport)
	}
	if !updatedFoundation.Dirty {
		t.Fatal("expected foundation to be marked dirty after its snap was consumed")
	}
}

func TestPlaceRejectsUnknownType(t *testing.T) {
	pl := newPlacer(t)
	_, err := pl.Place(Request{Type: "spaceship", Material: "wood", GridPos: [3]int32{0, 0, 0}})
	assertReason(t, err, ReasonUnknownType)
}

func TestPlaceRejectsUnknownMaterialForType(t *testing.T) {
	pl := newPlacer(t)
	_, err := pl.Place(Request{Type: "foundation", Material: "thatch", GridPos: [3]int32{0, 0, 0}})
	assertReason(t, err, ReasonUnknownMaterial)
}

func assertReason(t *testing.T, err error, want Reason) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with reason %s, got nil", want)
	}
	var placementErr *InvalidPlacementError
	if !errors.As(err, &placementErr) {
		t.Fatalf("expected *InvalidPlacementError, got %T: %v", err, err)
	}
	if placementErr.Reason != want {
		t.Fatalf("expected reason %s, got %s", want, placementErr.Reason)
	}
}
