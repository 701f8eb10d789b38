package building

import (
	"math"

	"github.com/voxelforge/bastion/internal/voxel"
)

// TerrainSupported samples the SDF at p's lower-face corners and reports
// whether at least two corners are solid (density <= 0) — spec.md §4.E
// rule 3 and §4.F's "a piece in contact with terrain is grounded", the
// same geometric test both rules share.
func TerrainSupported(store *voxel.Store, p Piece, def PieceDefinition, cellSize float64) bool {
	dx, dz := def.Dimensions[0], def.Dimensions[2]
	if p.Rotation%2 == 1 {
		dx, dz = dz, dx
	}
	corners := [][2]int32{{0, 0}, {dx, 0}, {0, dz}, {dx, dz}}

	solid := 0
	for _, c := range corners {
		world := worldPos([3]int32{p.GridPos[0] + c[0], p.GridPos[1], p.GridPos[2] + c[1]}, cellSize)
		// Sample just beneath the lower face rather than exactly on it: a
		// face that lands precisely on a cell boundary must still see the
		// ground cell below it, not the air cell the face sits atop of.
		vp := voxel.Pos{
			int32(math.Floor(world[0])),
			int32(math.Floor(world[1] - 0.001)),
			int32(math.Floor(world[2])),
		}
		cell, err := store.Read(vp)
		if err == nil && cell.Density <= 0 {
			solid++
		}
	}
	return solid >= 2
}
