package mesh

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/voxelforge/bastion/internal/voxel"
)

// skirtDepth is how far the boundary curtain drops, grounded on
// SkirtConfig::depth in original_source/src/voxel/skirt.rs (there
// VOXEL_SIZE * 0.5; here one half of a cell, the same fraction).
const skirtDepth = float32(0.5)

// skirtBlend is the normal-blend factor toward the outward face normal,
// matching skirt.rs's blend_factor constant.
const skirtBlend = float32(0.3)

type boundaryFace int

const (
	faceWest boundaryFace = iota
	faceEast
	faceNorth
	faceSouth
)

var skirtNormal = map[boundaryFace]mgl32.Vec3{
	faceWest:  {-1, 0, 0},
	faceEast:  {1, 0, 0},
	faceNorth: {0, 0, -1},
	faceSouth: {0, 0, 1},
}

// generateSkirt appends a thin vertical curtain along every mesh edge
// that lies on one of the section's four vertical boundary faces,
// following extract_boundary_edges/generate_skirts in skirt.rs: it walks
// triangle edges, keeps the ones whose both endpoints sit on the same
// boundary face, and drops a quad from each down by skirtDepth. This
// hides sub-pixel seam cracks between sections without touching the
// interior mesh.
func generateSkirt(view *voxel.PaddedView, m *Mesh) {
	const epsilon = float32(0.01)
	n := float32(voxel.SectionHeight)

	faceOf := func(local mgl32.Vec3) (boundaryFace, bool) {
		switch {
		case local.X() <= epsilon:
			return faceWest, true
		case local.X() >= n-epsilon:
			return faceEast, true
		case local.Z() <= epsilon:
			return faceNorth, true
		case local.Z() >= n-epsilon:
			return faceSouth, true
		default:
			return 0, false
		}
	}

	local := func(i uint32) mgl32.Vec3 {
		p := m.Positions[i]
		return mgl32.Vec3{
			p.X() - float32(view.Origin[0]),
			p.Y() - float32(view.Origin[1]),
			p.Z() - float32(view.Origin[2]),
		}
	}

	type edgeKey struct {
		a, b uint32
		face boundaryFace
	}
	seen := make(map[edgeKey]bool)

	baseIndices := append([]uint32(nil), m.Indices...)
	for t := 0; t+2 < len(baseIndices); t += 3 {
		tri := [3]uint32{baseIndices[t], baseIndices[t+1], baseIndices[t+2]}
		edges := [3][2]uint32{{tri[0], tri[1]}, {tri[1], tri[2]}, {tri[2], tri[0]}}

		for _, e := range edges {
			f0, ok0 := faceOf(local(e[0]))
			f1, ok1 := faceOf(local(e[1]))
			if !ok0 || !ok1 || f0 != f1 {
				continue
			}
			a, b := e[0], e[1]
			if a > b {
				a, b = b, a
			}
			key := edgeKey{a, b, f0}
			if seen[key] {
				continue
			}
			seen[key] = true

			appendSkirtQuad(m, e[0], e[1], f0)
		}
	}
}

func appendSkirtQuad(m *Mesh, i0, i1 uint32, face boundaryFace) {
	drop := mgl32.Vec3{0, -skirtDepth, 0}
	outward := skirtNormal[face]

	top0, top1 := m.Positions[i0], m.Positions[i1]
	bot0, bot1 := top0.Add(drop), top1.Add(drop)

	n0 := m.Normals[i0].Mul(1 - skirtBlend).Add(outward.Mul(skirtBlend)).Normalize()
	n1 := m.Normals[i1].Mul(1 - skirtBlend).Add(outward.Mul(skirtBlend)).Normalize()

	base := uint32(len(m.Positions))
	push := func(pos, nrm mgl32.Vec3, src uint32) {
		m.Positions = append(m.Positions, pos)
		m.Normals = append(m.Normals, nrm)
		m.Weights = append(m.Weights, m.Weights[src])
		m.Materials = append(m.Materials, m.Materials[src])
		m.UV = append(m.UV, mgl32.Vec2{m.UV[src].X(), m.UV[src].Y()})
	}
	push(top0, n0, i0)
	push(top1, n1, i1)
	push(bot0, n0, i0)
	push(bot1, n1, i1)

	switch face {
	case faceWest, faceSouth:
		m.Indices = append(m.Indices, base, base+2, base+1, base+1, base+2, base+3)
	default:
		m.Indices = append(m.Indices, base, base+1, base+2, base+1, base+3, base+2)
	}
}
