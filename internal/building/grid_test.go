package building

import "testing"

func TestGridInsertOccupiesAllCoveredCells(t *testing.T) {
	g := NewGrid(2.0)
	def := PieceDefinition{Dimensions: [3]int32{2, 1, 1}}
	p := Piece{ID: newTestID(1), GridPos: [3]int32{0, 0, 0}}
	cells := occupiedCells(p, def)
	if len(cells) != 2 {
		t.Fatalf("expected 2 covered cells, got %d", len(cells))
	}
	placed := g.insert(p, cells)
	if placed.ID != p.ID {
		t.Fatalf("insert returned wrong piece")
	}
	for _, c := range cells {
		id, ok := g.At(c)
		if !ok || id != p.ID {
			t.Fatalf("cell %v not resolved to inserted piece", c)
		}
	}
}

func TestGridRemoveFreesCells(t *testing.T) {
	g := NewGrid(2.0)
	def := PieceDefinition{Dimensions: [3]int32{1, 1, 1}}
	p := Piece{ID: newTestID(2), GridPos: [3]int32{5, 5, 5}}
	cells := occupiedCells(p, def)
	g.insert(p, cells)

	g.Remove(p.ID, def)
	if _, ok := g.At(cells[0]); ok {
		t.Fatal("expected cell to be freed after Remove")
	}
	if _, ok := g.Piece(p.ID); ok {
		t.Fatal("expected piece to be gone after Remove")
	}
}

func TestOccupiedCellsSwapsFootprintOnOddRotation(t *testing.T) {
	def := PieceDefinition{Dimensions: [3]int32{3, 1, 1}}
	p := Piece{Rotation: 1}
	cells := occupiedCells(p, def)
	if len(cells) != 3 {
		t.Fatalf("expected 3 cells, got %d", len(cells))
	}
	for _, c := range cells {
		if c[0] != 0 {
			t.Fatalf("expected footprint along Z after 90-degree rotation, got %v", c)
		}
	}
}
