package mesh

import "github.com/go-gl/mathgl/mgl32"

// MaxBlendMaterials is the number of simultaneous material slots a vertex
// can blend, spec.md §4.C's "up to four active materials" vertex-color
// channel.
const MaxBlendMaterials = 4

// MaterialWeight is the material-blend vertex-color channel spec.md §4.C
// describes: up to four active materials' contribution, normalized to
// sum 1.
type MaterialWeight [MaxBlendMaterials]float32

// MaterialSlots names which palette material each MaterialWeight slot at
// the same vertex index refers to.
type MaterialSlots [MaxBlendMaterials]uint8

// Mesh is the public contract of the Mesh Extractor (spec.md §4.C):
// positions and normals in world space, triangle indices, a
// material-weight vertex-color channel (with the slot-to-material-id
// mapping alongside it), and a UV channel whose x is the atlas index of
// the dominant material and whose y is the supplemented baked-AO scalar
// (SPEC_FULL.md §4).
type Mesh struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	Indices   []uint32
	Weights   []MaterialWeight
	Materials []MaterialSlots
	UV        []mgl32.Vec2
}

// Empty reports whether the mesh has no triangles.
func (m *Mesh) Empty() bool {
	return m == nil || len(m.Indices) == 0
}
