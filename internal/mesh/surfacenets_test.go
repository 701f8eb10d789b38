package mesh

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/voxelforge/bastion/internal/voxel"
)

// buildHalfSpace returns a store with column (0,0) and its four lateral
// neighbours loaded, and a horizontal slab of solid stone written into
// section (0,0,y=1) below local y=8, air above, across all five columns —
// a flat isosurface with no lateral edge, so the only surfaces the
// extractor should find are the slab's own top and bottom faces.
func buildHalfSpace(t *testing.T) (*voxel.Store, voxel.SectionID) {
	t.Helper()
	s := voxel.NewStore(nil)
	id := voxel.SectionID{Column: voxel.ColumnPos{0, 0}, Y: 1}

	cols := []voxel.ColumnPos{
		{0, 0}, {1, 0}, {-1, 0}, {0, 1}, {0, -1},
	}
	for _, col := range cols {
		s.EnsureColumn(col)
	}

	baseY := voxel.ColumnBaseY + id.Y*voxel.SectionHeight
	for _, col := range cols {
		originX, originZ := col[0]*voxel.SectionHeight, col[1]*voxel.SectionHeight
		for lx := int32(0); lx < voxel.SectionHeight; lx++ {
			for ly := int32(0); ly < voxel.SectionHeight; ly++ {
				for lz := int32(0); lz < voxel.SectionHeight; lz++ {
					c := voxel.Cell{Material: 1, Density: 100}
					if ly < 8 {
						c = voxel.Cell{Material: 1, Density: -100}
					}
					s.Write(voxel.Pos{originX + lx, baseY + ly, originZ + lz}, c)
				}
			}
		}
	}
	return s, id
}

func TestExtractProducesTrianglesAcrossSlabBoundary(t *testing.T) {
	s, id := buildHalfSpace(t)
	view, err := s.ReadPaddedSection(id)
	if err != nil {
		t.Fatalf("ReadPaddedSection: %v", err)
	}

	m, err := Extract(view)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(m.Indices) == 0 {
		t.Fatal("expected a non-empty mesh across the slab boundary")
	}
	if len(m.Indices)%3 != 0 {
		t.Fatalf("index count %d is not a multiple of 3", len(m.Indices))
	}
	if len(m.Positions) != len(m.Normals) || len(m.Positions) != len(m.Weights) ||
		len(m.Positions) != len(m.UV) || len(m.Positions) != len(m.Materials) {
		t.Fatalf("attribute arrays out of sync: pos=%d normals=%d weights=%d uv=%d materials=%d",
			len(m.Positions), len(m.Normals), len(m.Weights), len(m.UV), len(m.Materials))
	}

	for _, idx := range m.Indices {
		if int(idx) >= len(m.Positions) {
			t.Fatalf("index %d out of range (have %d vertices)", idx, len(m.Positions))
		}
	}

	// The slab floats in air on both sides within this section's own
	// column: its top face at local y=8 and its bottom face at local y=0
	// (the section below is air-filled). Every generated vertex should
	// sit near one of those two surfaces.
	for _, p := range m.Positions {
		localY := p.Y() - float32(voxel.ColumnBaseY+id.Y*voxel.SectionHeight)
		nearTop := localY >= 6 && localY <= 10
		nearBottom := localY >= -2 && localY <= 2
		if !nearTop && !nearBottom {
			t.Fatalf("vertex y=%v far from either the top (y=8) or bottom (y=0) isosurface", localY)
		}
	}
}

func TestExtractUniformSectionProducesNoGeometry(t *testing.T) {
	s := voxel.NewStore(nil)
	id := voxel.SectionID{Column: voxel.ColumnPos{0, 0}, Y: 1}
	for _, col := range []voxel.ColumnPos{
		{0, 0}, {1, 0}, {-1, 0}, {0, 1}, {0, -1},
	} {
		s.EnsureColumn(col)
	}
	view, err := s.ReadPaddedSection(id)
	if err != nil {
		t.Fatalf("ReadPaddedSection: %v", err)
	}
	m, err := Extract(view)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !m.Empty() {
		t.Fatalf("expected no triangles for an all-air section, got %d indices", len(m.Indices))
	}
}

func TestExtractNilViewFails(t *testing.T) {
	if _, err := Extract(nil); err != ErrNilView {
		t.Fatalf("Extract(nil) error = %v, want ErrNilView", err)
	}
}

// TestSeamlessAcrossSections exercises invariant I1: two adjacent
// sections generated from the same boundary data must not leave a gap.
// It compares the boundary-adjacent vertex positions the two sections'
// extractions produce near their shared face.
func TestSeamlessAcrossSections(t *testing.T) {
	s, id := buildHalfSpace(t)
	east := id.Neighbour(voxel.DirEast)
	// Write the same slab into east's column and each of its lateral
	// neighbours, so the slab stays uniform across every column either view
	// touches and the clamped edge cells agree with the real data.
	eastCols := []voxel.ColumnPos{
		east.Column,
		{east.Column[0] + 1, east.Column[1]}, {east.Column[0], east.Column[1] + 1}, {east.Column[0], east.Column[1] - 1},
	}
	for _, col := range eastCols {
		s.EnsureColumn(col)
	}
	baseY := voxel.ColumnBaseY + east.Y*voxel.SectionHeight
	for _, col := range eastCols {
		originX, originZ := col[0]*voxel.SectionHeight, col[1]*voxel.SectionHeight
		for lx := int32(0); lx < voxel.SectionHeight; lx++ {
			for ly := int32(0); ly < voxel.SectionHeight; ly++ {
				for lz := int32(0); lz < voxel.SectionHeight; lz++ {
					c := voxel.Cell{Material: 1, Density: 100}
					if ly < 8 {
						c = voxel.Cell{Material: 1, Density: -100}
					}
					s.Write(voxel.Pos{originX + lx, baseY + ly, originZ + lz}, c)
				}
			}
		}
	}

	v1, err := s.ReadPaddedSection(id)
	if err != nil {
		t.Fatalf("ReadPaddedSection(id): %v", err)
	}
	v2, err := s.ReadPaddedSection(east)
	if err != nil {
		t.Fatalf("ReadPaddedSection(east): %v", err)
	}

	m1, err := Extract(v1)
	if err != nil {
		t.Fatalf("Extract(v1): %v", err)
	}
	m2, err := Extract(v2)
	if err != nil {
		t.Fatalf("Extract(v2): %v", err)
	}
	if m1.Empty() || m2.Empty() {
		t.Fatal("expected both sections to produce geometry along the flat uniform slab")
	}

	// east owns the shared face (its low-X margin row), sampling id's own
	// x=15 line through the one-cell overlap; id's own x=15 cube samples
	// that identical line directly, so the two independently-generated
	// vertices along the top surface must coincide exactly. Restrict the
	// comparison to the top-surface band, away from both the bottom
	// margin (y=-1) and the north/south margin (z=-1): a vertex touching
	// two margins at once falls back to fillPaddedEdgesAndCorners's
	// clamped corner approximation and is not expected to match exactly.
	const boundaryX = float32(voxel.SectionHeight)
	const eps = 1e-4
	baseYF := float32(voxel.ColumnBaseY + id.Y*voxel.SectionHeight)
	var eastBoundary []mgl32.Vec3
	for _, p := range m2.Positions {
		localY := p.Y() - baseYF
		if p.X() <= boundaryX+eps && localY >= 6 && localY <= 10 && p.Z() >= 0 {
			eastBoundary = append(eastBoundary, p)
		}
	}
	if len(eastBoundary) == 0 {
		t.Fatal("expected east to produce boundary-margin vertices at its own low-X face")
	}
	for _, want := range eastBoundary {
		found := false
		for _, have := range m1.Positions {
			if want.Sub(have).Len() < eps {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("east boundary vertex %v has no matching vertex in id's mesh — sections are not seamless", want)
		}
	}
}

// buildXWall writes a solid region that starts exactly at the west face of
// section (0,0,y=1) (local x=0) and fills the rest of the section, so the
// extracted surface sheet sits flush against the section's west boundary —
// the case the skirt curtain exists to cover.
func buildXWall(t *testing.T) (*voxel.Store, voxel.SectionID) {
	t.Helper()
	s := voxel.NewStore(nil)
	id := voxel.SectionID{Column: voxel.ColumnPos{0, 0}, Y: 1}
	for _, col := range []voxel.ColumnPos{
		{0, 0}, {1, 0}, {-1, 0}, {0, 1}, {0, -1},
	} {
		s.EnsureColumn(col)
	}
	baseY := voxel.ColumnBaseY + id.Y*voxel.SectionHeight
	for lx := int32(0); lx < voxel.SectionHeight; lx++ {
		for ly := int32(0); ly < voxel.SectionHeight; ly++ {
			for lz := int32(0); lz < voxel.SectionHeight; lz++ {
				density := int16(-100)
				if lx == 0 {
					density = 0
				}
				s.Write(voxel.Pos{lx, baseY + ly, lz}, voxel.Cell{Material: 1, Density: density})
			}
		}
	}
	return s, id
}

func TestExtractWithSkirtAppendsGeometry(t *testing.T) {
	s, id := buildXWall(t)
	view, err := s.ReadPaddedSection(id)
	if err != nil {
		t.Fatalf("ReadPaddedSection: %v", err)
	}
	plain, err := Extract(view)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	skirted, err := Extract(view, WithSkirt(true))
	if err != nil {
		t.Fatalf("Extract with skirt: %v", err)
	}
	if len(skirted.Indices) <= len(plain.Indices) {
		t.Fatalf("expected skirt to add triangles along the section boundary: plain=%d skirted=%d",
			len(plain.Indices), len(skirted.Indices))
	}
}
