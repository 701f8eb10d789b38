package stability

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/voxelforge/bastion/internal/building"
	"github.com/voxelforge/bastion/internal/voxel"
)

func newFixture(t *testing.T) (*building.Grid, *building.DefinitionTable, *voxel.Store, *building.Placer) {
	t.Helper()
	grid := building.NewGrid(2.0)
	snaps := building.NewSnapIndex(0.5)
	defs := building.DefaultDefinitions()
	store := voxel.NewStore(nil)
	store.EnsureColumn(voxel.ColumnPos{0, 0})
	for x := int32(-8); x < 40; x++ {
		for z := int32(-8); z < 8; z++ {
			for y := int32(0); y < 2; y++ {
				store.Write(voxel.Pos{x, y, z}, voxel.Cell{Material: 1, Density: -100})
			}
		}
	}
	pl := building.NewPlacer(grid, snaps, defs, store, building.Zone{Centre: mgl64.Vec3{0, 0, 0}, Radius: 100}, 0.5)
	return grid, defs, store, pl
}

func newEngine(grid *building.Grid, defs *building.DefinitionTable, store *voxel.Store, cfg Config) *Engine {
	cfg.Grid = grid
	cfg.Defs = defs
	cfg.Store = store
	cfg.CellSize = grid.CellSize
	return New(nil, cfg)
}

func TestStepGroundsFoundationAtMaxSupport(t *testing.T) {
	grid, defs, store, pl := newFixture(t)
	foundation, err := pl.Place(building.Request{Type: "foundation", Material: "stone", GridPos: [3]int32{0, 1, 0}})
	if err != nil {
		t.Fatalf("place foundation: %v", err)
	}

	eng := newEngine(grid, defs, store, Config{})
	eng.Step()

	updated, _ := grid.Piece(foundation.ID)
	want := defs.Materials["stone"].MaxSupport
	if updated.Stability != want {
		t.Fatalf("expected grounded foundation at max_support %v, got %v", want, updated.Stability)
	}
}

func TestStepPropagatesLossAlongSupportChain(t *testing.T) {
	grid, defs, store, pl := newFixture(t)
	if _, err := pl.Place(building.Request{Type: "foundation", Material: "wood", GridPos: [3]int32{0, 1, 0}}); err != nil {
		t.Fatalf("place foundation: %v", err)
	}
	wall, err := pl.Place(building.Request{Type: "wall", Material: "wood", GridPos: [3]int32{0, 2, 0}})
	if err != nil {
		t.Fatalf("place wall: %v", err)
	}

	eng := newEngine(grid, defs, store, Config{})
	eng.Step()
	eng.Step()

	mat := defs.Materials["wood"]
	updatedWall, _ := grid.Piece(wall.ID)
	want := mat.MaxSupport * (1 - mat.VerticalLoss)
	if updatedWall.Stability != want {
		t.Fatalf("expected wall stability %v after one vertical loss, got %v", want, updatedWall.Stability)
	}
}

func TestHierarchyResetOnWeakerMaterial(t *testing.T) {
	grid, defs, store, pl := newFixture(t)
	if _, err := pl.Place(building.Request{Type: "foundation", Material: "stone", GridPos: [3]int32{0, 1, 0}}); err != nil {
		t.Fatalf("place foundation: %v", err)
	}
	wall, err := pl.Place(building.Request{Type: "wall", Material: "thatch", GridPos: [3]int32{0, 2, 0}})
	if err != nil {
		t.Fatalf("place wall: %v", err)
	}

	eng := newEngine(grid, defs, store, Config{})
	eng.Step()
	eng.Step()

	updatedWall, _ := grid.Piece(wall.ID)
	want := defs.Materials["thatch"].MaxSupport
	if updatedWall.Stability != want {
		t.Fatalf("expected thatch on stone to hit the hierarchy reset at max_support %v, got %v", want, updatedWall.Stability)
	}
}

func TestStepReportsPieceCrossingBelowMinSupport(t *testing.T) {
	grid, defs, store, pl := newFixture(t)
	foundationDef, _ := defs.Pieces["foundation"]
	foundation, err := pl.Place(building.Request{Type: "foundation", Material: "wood", GridPos: [3]int32{0, 1, 0}})
	if err != nil {
		t.Fatalf("place foundation: %v", err)
	}
	wall, err := pl.Place(building.Request{Type: "wall", Material: "wood", GridPos: [3]int32{0, 2, 0}})
	if err != nil {
		t.Fatalf("place wall: %v", err)
	}

	eng := newEngine(grid, defs, store, Config{})
	eng.Step()
	eng.Step()

	// Destroy the foundation the way a voxel dig-out would: detach edges,
	// invalidate downstream stability, remove it from the grid.
	eng.Invalidate(wall.ID)
	grid.DetachEdges(foundation.ID)
	grid.Remove(foundation.ID, foundationDef)

	unstable := eng.Step()
	if len(unstable) != 1 || unstable[0] != wall.ID {
		t.Fatalf("expected wall reported unstable, got %+v", unstable)
	}
}

func TestInvalidateCascadesThroughISupport(t *testing.T) {
	grid, defs, store, pl := newFixture(t)
	if _, err := pl.Place(building.Request{Type: "foundation", Material: "stone", GridPos: [3]int32{0, 1, 0}}); err != nil {
		t.Fatalf("place foundation: %v", err)
	}
	wall1, err := pl.Place(building.Request{Type: "wall", Material: "wood", GridPos: [3]int32{0, 2, 0}})
	if err != nil {
		t.Fatalf("place wall1: %v", err)
	}
	wall2, err := pl.Place(building.Request{Type: "wall", Material: "wood", GridPos: [3]int32{0, 3, 0}})
	if err != nil {
		t.Fatalf("place wall2: %v", err)
	}

	eng := newEngine(grid, defs, store, Config{})
	eng.Step()
	eng.Step()
	eng.Step()

	eng.Invalidate(wall1.ID)

	updated1, _ := grid.Piece(wall1.ID)
	updated2, _ := grid.Piece(wall2.ID)
	if updated1.Stability != 0 || updated2.Stability != 0 {
		t.Fatalf("expected both wall1 and wall2 reset to 0 by cascade, got %v and %v", updated1.Stability, updated2.Stability)
	}
}

func TestBudgetPerTickCarriesQueueAcrossSteps(t *testing.T) {
	grid, defs, store, pl := newFixture(t)
	for i := int32(0); i < 5; i++ {
		if _, err := pl.Place(building.Request{Type: "foundation", Material: "stone", GridPos: [3]int32{i * 4, 1, 0}}); err != nil {
			t.Fatalf("foundation %d: %v", i, err)
		}
	}

	eng := newEngine(grid, defs, store, Config{BudgetPerTick: 2})
	eng.Step()
	if len(eng.queue) != 3 {
		t.Fatalf("expected 3 pieces still queued after a budget-2 step over 5 dirty pieces, got %d", len(eng.queue))
	}
	eng.Step()
	if len(eng.queue) != 1 {
		t.Fatalf("expected 1 piece still queued after a second budget-2 step, got %d", len(eng.queue))
	}
}
