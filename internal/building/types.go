// Package building implements the Building Grid + Snap Index (spec.md
// §4.E): O(1) cell occupancy lookup for placed pieces, a spatial-hash
// index over their snap points, and the placement-validation pipeline
// that turns a placement request into a new piece plus support-graph
// edges. Everything here runs main-thread-only (spec.md §5 Ownership).
package building

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// PieceID is a placed piece's stable handle. Handles are never reused.
type PieceID = uuid.UUID

// CellPos identifies one cell of the building grid (spec.md §3: integer
// 3-vector), distinct from a voxel.Pos — a grid cell spans CellSize world
// units, not one voxel cell.
type CellPos [3]int32

// State is a piece's physics-simulation state (spec.md §4.G Conversion).
// A piece starts and normally remains Static; the Collapse Engine sets
// each converted member of an unstable cluster to Debris. No code in this
// module assigns StateDynamic.
type State uint8

const (
	StateStatic State = iota
	StateDynamic
	StateDebris
)

// Trajectory is the Collapse Engine's precomputed conversion state for a
// piece belonging to an unstable cluster (spec.md §4.G Precomputation:
// "stored on each piece before conversion so that clients or late
// observers can reproduce the trajectory").
type Trajectory struct {
	ClusterID       uint64
	CenterOfMass    mgl64.Vec3
	LinearVelocity  mgl64.Vec3
	AngularVelocity mgl64.Vec3
	// TimeToCollapse is the seconds remaining until conversion fires,
	// counted down by internal/collapse's Step.
	TimeToCollapse float64
}

// Piece is a placed building piece (spec.md §3 Building piece). SupportsMe
// and ISupport are the two halves of a support-graph edge: a piece q in
// p.SupportsMe means q supports p; a piece q in p.ISupport means p
// supports q. internal/stability walks these lists to propagate
// stability; this package appends to them on placement and removes
// entries from them in Grid.DetachEdges.
type Piece struct {
	ID       PieceID
	Type     string
	Material string
	GridPos  [3]int32
	Rotation uint8 // 0..3, 90° steps about the vertical axis

	Stability float64
	Dirty     bool

	SupportsMe []PieceID
	ISupport   []PieceID

	State      State
	Trajectory *Trajectory
}

// Anchor returns p's world-space anchor point: the centre of its
// footprint's base cell. internal/stability and internal/collapse both
// use this as the single reference point for a piece's position.
func (p Piece) Anchor(cellSize float64) mgl64.Vec3 {
	return worldPos(p.GridPos, cellSize).Add(mgl64.Vec3{cellSize / 2, cellSize / 2, cellSize / 2})
}

// worldPos returns the world-space position of grid cell c, given the
// configured cell size.
func worldPos(c [3]int32, cellSize float64) mgl64.Vec3 {
	return mgl64.Vec3{
		float64(c[0]) * cellSize,
		float64(c[1]) * cellSize,
		float64(c[2]) * cellSize,
	}
}

// rotateSteps rotates v by steps*90° about the vertical (Y) axis. Snap
// point offsets and directions use this so they rotate with the piece;
// occupiedCells rotates the footprint itself by swapping its X/Z extents
// on odd steps.
func rotateSteps(v mgl64.Vec3, steps uint8) mgl64.Vec3 {
	switch steps % 4 {
	case 1:
		return mgl64.Vec3{-v[2], v[1], v[0]}
	case 2:
		return mgl64.Vec3{-v[0], v[1], -v[2]}
	case 3:
		return mgl64.Vec3{v[2], v[1], -v[0]}
	default:
		return v
	}
}
