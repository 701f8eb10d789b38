// Package mesh implements the Mesh Extractor (spec.md §4.C): a Surface
// Nets isosurface triangulation over a padded voxel sampling window,
// producing seamless per-section meshes with blended material weights
// and a baked ambient-occlusion/atlas-index UV channel.
package mesh

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/voxelforge/bastion/internal/voxel"
)

// ErrNilView is returned when Extract is called with a nil padded view.
var ErrNilView = errors.New("mesh: nil padded view")

// cornerOffset lists the 8 corners of a unit cube in the same bit order
// fast_surface_nets-style implementations use: bit0=x, bit1=y, bit2=z.
var cornerOffset = [8][3]int{
	{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0},
	{0, 0, 1}, {1, 0, 1}, {0, 1, 1}, {1, 1, 1},
}

// edgeTable lists the 12 cube edges as corner-index pairs (every pair of
// corners that differ in exactly one bit).
var edgeTable = [12][2]int{
	{0, 1}, {2, 3}, {4, 5}, {6, 7},
	{0, 2}, {1, 3}, {4, 6}, {5, 7},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// cubeVertex holds the interpolated crossing point and the 8 sampled
// corners for one active (sign-changing) cube, keyed by its local cube
// coordinate.
type cubeVertex struct {
	index    uint32
	worldPos mgl32.Vec3
	corners  [8]voxel.Cell
}

// Extract triangulates the section the padded view is centred on,
// following spec.md §4.C: a Surface Nets pass over the view's interior
// 16^3 cube grid, vertex placement at the mean of zero-crossing points, a
// gradient-estimated normal, an up-to-four-material blend weight, and a
// UV channel carrying the atlas index and baked AO.
//
// The cube grid also includes one extra layer at local index -1 on the
// low face of every axis (still sampled entirely from the one-cell
// overlap, no deeper padding needed): the quad connecting this section's
// first row of cubes to the previous section's last row is only ever
// well-defined from one side (the far/high-index side would need a
// second overlap layer this view doesn't carry), so each section owns
// and emits the boundary quads on its own low faces, leaving its high
// faces for the neighbour on that side to close. Two adjacent sections'
// margin and interior cubes sample the identical corner densities across
// their shared face, so the vertices each independently produces there
// coincide exactly without either section needing to see the other's
// mesh. The exception is a cube that also touches a second boundary face:
// it reads the padded view's edge or corner cells, which are clamped
// copies rather than diagonal-neighbour data, so its vertex can differ
// between the two sections where the diagonal neighbour's cells differ
// from those copies.
func Extract(view *voxel.PaddedView, opts ...Option) (*Mesh, error) {
	if view == nil {
		return nil, ErrNilView
	}
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	const n = voxel.SectionHeight
	cubes := make(map[[3]int]*cubeVertex)
	m := &Mesh{}

	for lx := -1; lx < n; lx++ {
		for ly := -1; ly < n; ly++ {
			for lz := -1; lz < n; lz++ {
				// Padded coordinate of this cube's low corner: local cell 0
				// sits at padded index 1, so the cube covering local cells
				// [lx, lx+1) starts at padded index lx+1.
				px, py, pz := lx+1, ly+1, lz+1

				var corners [8]voxel.Cell
				for c := 0; c < 8; c++ {
					o := cornerOffset[c]
					corners[c] = view.At(px+o[0], py+o[1], pz+o[2])
				}

				if !hasSignChange(corners) {
					continue
				}

				vertex := buildVertex(view, px, py, pz, corners)
				vertex.index = uint32(len(m.Positions))
				cubes[[3]int{lx, ly, lz}] = vertex

				weights, slots := materialBlend(corners)
				normal := gradientNormal(corners)

				m.Positions = append(m.Positions, vertex.worldPos)
				m.Normals = append(m.Normals, normal)
				m.Weights = append(m.Weights, weights)
				m.Materials = append(m.Materials, slots)

				atlasIndex := float32(slots[0])
				ao := float32(1)
				if cfg.ao {
					ao = bakedAO(view, px, py, pz, normal)
				}
				m.UV = append(m.UV, mgl32.Vec2{atlasIndex, ao})
			}
		}
	}

	emitQuads(view, cubes, m)

	if cfg.skirt {
		generateSkirt(view, m)
	}

	return m, nil
}

func hasSignChange(corners [8]voxel.Cell) bool {
	first := corners[0].Density < 0
	for i := 1; i < 8; i++ {
		if (corners[i].Density < 0) != first {
			return true
		}
	}
	return false
}

// buildVertex places the Surface Nets vertex at the mean of the cube's
// zero-crossing edge intersections, in world space.
func buildVertex(view *voxel.PaddedView, px, py, pz int, corners [8]voxel.Cell) *cubeVertex {
	var sum mgl32.Vec3
	count := 0
	for _, e := range edgeTable {
		d0, d1 := float32(corners[e[0]].Density), float32(corners[e[1]].Density)
		s0, s1 := d0 < 0, d1 < 0
		if s0 == s1 {
			continue
		}
		t := d0 / (d0 - d1)
		o0, o1 := cornerOffset[e[0]], cornerOffset[e[1]]
		p := mgl32.Vec3{
			float32(o0[0]) + (float32(o1[0])-float32(o0[0]))*t,
			float32(o0[1]) + (float32(o1[1])-float32(o0[1]))*t,
			float32(o0[2]) + (float32(o1[2])-float32(o0[2]))*t,
		}
		sum = sum.Add(p)
		count++
	}
	if count == 0 {
		// Degenerate (shouldn't happen once hasSignChange is true), fall
		// back to the cube centre.
		sum, count = mgl32.Vec3{0.5, 0.5, 0.5}, 1
	}
	local := sum.Mul(1 / float32(count))

	// px/py/pz is the cube's low corner in padded coordinates; padded
	// index 1 is local cell 0, which is view.Origin. local is already in
	// [0,1]^3 within the cube, so the world position is Origin plus the
	// cube's local-cell coordinate plus the fractional offset.
	world := mgl32.Vec3{
		float32(view.Origin[0]) + float32(px-1) + local.X(),
		float32(view.Origin[1]) + float32(py-1) + local.Y(),
		float32(view.Origin[2]) + float32(pz-1) + local.Z(),
	}
	return &cubeVertex{worldPos: world, corners: corners}
}

// gradientNormal estimates the outward surface normal from the density
// gradient across the cube's 8 corners. Density is negative inside solid
// material and positive in air, so the gradient of increasing density
// points outward.
func gradientNormal(c [8]voxel.Cell) mgl32.Vec3 {
	d := func(i int) float32 { return float32(c[i].Density) }
	nx := (d(1) + d(3) + d(5) + d(7)) - (d(0) + d(2) + d(4) + d(6))
	ny := (d(2) + d(3) + d(6) + d(7)) - (d(0) + d(1) + d(4) + d(5))
	nz := (d(4) + d(5) + d(6) + d(7)) - (d(0) + d(1) + d(2) + d(3))
	v := mgl32.Vec3{nx, ny, nz}
	if v.LenSqr() == 0 {
		return mgl32.Vec3{0, 1, 0}
	}
	return v.Normalize()
}

// materialBlend accumulates a weight per distinct solid material among
// the cube's 8 corners, keeps the MaxBlendMaterials most frequent, and
// normalizes the kept weights to sum to 1. Slot 0 is always the dominant
// material, used as the vertex's atlas index.
func materialBlend(corners [8]voxel.Cell) (MaterialWeight, MaterialSlots) {
	var counts [256]int
	for _, c := range corners {
		if c.Density < 0 {
			counts[c.Material]++
		}
	}

	var slots MaterialSlots
	var weights MaterialWeight
	filled := 0
	for filled < MaxBlendMaterials {
		best, bestCount := -1, 0
		for mat, n := range counts {
			if n > bestCount {
				best, bestCount = mat, n
			}
		}
		if best < 0 {
			break
		}
		slots[filled] = uint8(best)
		weights[filled] = float32(bestCount)
		counts[best] = 0
		filled++
	}

	var total float32
	for _, w := range weights {
		total += w
	}
	if total > 0 {
		for i := range weights {
			weights[i] /= total
		}
	} else {
		// No corner has density < 0. Extract never reaches this: a
		// sign-changing cube always has such a corner.
		weights[0] = 1
	}
	return weights, slots
}

// emitQuads walks every interior grid edge and, where the edge crosses
// the isosurface, stitches a quad from the four cube vertices surrounding
// it — the standard naive Surface Nets face-generation rule. A quad whose
// four cubes are not all present is skipped rather than degraded: this is
// how a section's high-face boundary row defers to its neighbour (see
// Extract), since two of the four cubes at that row sit at local index n,
// one past this view's cube grid.
func emitQuads(view *voxel.PaddedView, cubes map[[3]int]*cubeVertex, m *Mesh) {
	const n = voxel.SectionHeight
	axes := [3][3]int{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

	for lx := 0; lx <= n; lx++ {
		for ly := 0; ly <= n; ly++ {
			for lz := 0; lz <= n; lz++ {
				p := [3]int{lx, ly, lz}
				for axis := 0; axis < 3; axis++ {
					q := [3]int{p[0] + axes[axis][0], p[1] + axes[axis][1], p[2] + axes[axis][2]}
					if q[0] > n || q[1] > n || q[2] > n {
						continue
					}
					d0 := view.At(p[0]+1, p[1]+1, p[2]+1).Density
					d1 := view.At(q[0]+1, q[1]+1, q[2]+1).Density
					if (d0 < 0) == (d1 < 0) {
						continue
					}

					u, v := (axis+1)%3, (axis+2)%3
					eu, ev := axes[u], axes[v]

					c00 := p
					c10 := sub(p, eu)
					c11 := sub(sub(p, eu), ev)
					c01 := sub(p, ev)

					if !inRange(c00, n) || !inRange(c10, n) || !inRange(c11, n) || !inRange(c01, n) {
						continue
					}
					a, b, cc, e := cubes[c00], cubes[c10], cubes[c11], cubes[c01]
					if a == nil || b == nil || cc == nil || e == nil {
						continue
					}

					// Winding follows the sign of d0 so the triangle faces
					// from solid toward air regardless of axis.
					if d0 < 0 {
						m.Indices = append(m.Indices, a.index, b.index, cc.index, a.index, cc.index, e.index)
					} else {
						m.Indices = append(m.Indices, a.index, e.index, cc.index, a.index, cc.index, b.index)
					}
				}
			}
		}
	}
}

func sub(a [3]int, b [3]int) [3]int {
	return [3]int{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

// inRange reports whether p addresses a cube this view actually computed:
// local index -1 (the low-face margin layer) through n-1.
func inRange(p [3]int, n int) bool {
	return p[0] >= -1 && p[0] < n && p[1] >= -1 && p[1] < n && p[2] >= -1 && p[2] < n
}
