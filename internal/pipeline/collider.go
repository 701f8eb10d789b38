package pipeline

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/voxelforge/bastion/internal/mesh"
	"github.com/voxelforge/bastion/internal/voxel"
)

// ColliderKind distinguishes the placeholder cuboid from the precise
// trimesh (spec.md §4.D Placeholder collider rule).
type ColliderKind uint8

const (
	ColliderCuboid ColliderKind = iota
	ColliderTrimesh
)

// Collider is the physics-facing handle the Chunk Pipeline owns for one
// section. Physics reads it but never mutates it (spec.md §5 Ownership).
type Collider struct {
	Kind  ColliderKind
	Min   mgl64.Vec3
	Max   mgl64.Vec3
	Mesh  *mesh.Mesh // only set when Kind == ColliderTrimesh
}

// colliderEntry tracks one section's collider plus the debounce state
// needed to coalesce rapid repeated edits into a single rebuild (spec.md
// §4.D Collider debounce).
type colliderEntry struct {
	collider    *Collider
	lastEditAt  time.Time
	pendingMesh *mesh.Mesh
	pending     bool
}

func sectionBounds(id voxel.SectionID) (mgl64.Vec3, mgl64.Vec3) {
	min := mgl64.Vec3{
		float64(id.Column[0] * voxel.SectionHeight),
		float64(voxel.ColumnBaseY + id.Y*voxel.SectionHeight),
		float64(id.Column[1] * voxel.SectionHeight),
	}
	max := min.Add(mgl64.Vec3{voxel.SectionHeight, voxel.SectionHeight, voxel.SectionHeight})
	return min, max
}

func sectionCentreRadius(id voxel.SectionID) (mgl64.Vec3, float64) {
	min, max := sectionBounds(id)
	centre := min.Add(max).Mul(0.5)
	const half = voxel.SectionHeight / 2
	radius := mgl64.Vec3{half, half, half}.Len()
	return centre, radius
}

func placeholderCollider(id voxel.SectionID) *Collider {
	min, max := sectionBounds(id)
	return &Collider{Kind: ColliderCuboid, Min: min, Max: max}
}

func trimeshCollider(id voxel.SectionID, m *mesh.Mesh) *Collider {
	min, max := sectionBounds(id)
	return &Collider{Kind: ColliderTrimesh, Min: min, Max: max, Mesh: m}
}
