package worldgen

import (
	"testing"

	"github.com/voxelforge/bastion/internal/voxel"
)

// TestGenerateDeterministic is the unit test for invariant I2: identical
// (section_id, seed) yields bit-identical output across separate
// generator instances (standing in for "separate threads").
func TestGenerateDeterministic(t *testing.T) {
	id := voxel.SectionID{Column: voxel.ColumnPos{3, -2}, Y: 1}

	g1 := New(Config{Seed: 42})
	g2 := New(Config{Seed: 42})

	s1 := g1.Generate(id)
	s2 := g2.Generate(id)

	for x := uint8(0); x < voxel.SectionHeight; x++ {
		for y := uint8(0); y < voxel.SectionHeight; y++ {
			for z := uint8(0); z < voxel.SectionHeight; z++ {
				c1, c2 := s1.At(x, y, z), s2.At(x, y, z)
				if c1 != c2 {
					t.Fatalf("At(%d,%d,%d) = %+v vs %+v", x, y, z, c1, c2)
				}
			}
		}
	}
}

func TestGenerateDifferentSeedsDiverge(t *testing.T) {
	id := voxel.SectionID{Column: voxel.ColumnPos{0, 0}, Y: 2}
	a := New(Config{Seed: 1}).Generate(id)
	b := New(Config{Seed: 2}).Generate(id)

	differs := false
	for x := uint8(0); x < voxel.SectionHeight && !differs; x++ {
		for y := uint8(0); y < voxel.SectionHeight && !differs; y++ {
			for z := uint8(0); z < voxel.SectionHeight && !differs; z++ {
				if a.At(x, y, z) != b.At(x, y, z) {
					differs = true
				}
			}
		}
	}
	if !differs {
		t.Fatalf("expected seeds 1 and 2 to diverge somewhere in section %+v", id)
	}
}

func TestBedrockRampAtWorldFloor(t *testing.T) {
	g := New(Config{Seed: 7})
	id := voxel.SectionID{Column: voxel.ColumnPos{0, 0}, Y: 0}
	s := g.Generate(id)
	// y=0 must always be bedrock regardless of (x, z).
	for x := uint8(0); x < voxel.SectionHeight; x++ {
		for z := uint8(0); z < voxel.SectionHeight; z++ {
			if got := s.At(x, 0, z); got.Material != MaterialBedrock {
				t.Fatalf("At(%d,0,%d) = %+v, want bedrock", x, z, got)
			}
		}
	}
}
