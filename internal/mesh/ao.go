package mesh

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/voxelforge/bastion/internal/voxel"
)

// aoStrength and aoCornerDarkness mirror BakedAoConfig's two knobs from
// original_source/src/voxel/baked_ao.rs, inlined rather than made
// configurable since this engine bakes one fixed look rather than
// exposing it as a tunable render setting.
const (
	aoStrength       = float32(0.85)
	aoCornerDarkness = float32(0.45)
)

// bakedAO estimates per-vertex ambient occlusion from the solidity of the
// four diagonal neighbours along the two axes tangent to normal, the same
// corner-counting rule as FaceAo.compute in baked_ao.rs adapted from a
// per-face quad to a per-vertex Surface Nets sample.
func bakedAO(view *voxel.PaddedView, px, py, pz int, normal mgl32.Vec3) float32 {
	t1, t2 := tangentAxes(normal)
	solid := func(o [3]int) bool {
		x, y, z := px+o[0], py+o[1], pz+o[2]
		if x < 0 || y < 0 || z < 0 || x >= voxel.PaddedSize || y >= voxel.PaddedSize || z >= voxel.PaddedSize {
			return false
		}
		return view.At(x, y, z).Density < 0
	}

	dirs := [4][2]int{{-1, -1}, {1, -1}, {-1, 1}, {1, 1}}
	var total float32
	for _, d := range dirs {
		off1 := scale(t1, d[0])
		off2 := scale(t2, d[1])
		side1 := solid(off1)
		side2 := solid(off2)
		corner := solid(add(off1, off2))

		var value float32
		if side1 && side2 {
			value = 0
		} else {
			count := float32(0)
			if side1 {
				count++
			}
			if side2 {
				count++
			}
			if corner {
				count++
			}
			value = 1 - count*aoCornerDarkness/3
		}
		total += value*aoStrength + (1 - aoStrength)
	}
	return total / 4
}

func tangentAxes(normal mgl32.Vec3) ([3]int, [3]int) {
	ax, ay, az := normal.X(), normal.Y(), normal.Z()
	switch {
	case abs32(ax) >= abs32(ay) && abs32(ax) >= abs32(az):
		return [3]int{0, 1, 0}, [3]int{0, 0, 1}
	case abs32(ay) >= abs32(az):
		return [3]int{1, 0, 0}, [3]int{0, 0, 1}
	default:
		return [3]int{1, 0, 0}, [3]int{0, 1, 0}
	}
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func scale(v [3]int, s int) [3]int {
	return [3]int{v[0] * s, v[1] * s, v[2] * s}
}

func add(a, b [3]int) [3]int {
	return [3]int{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}
