package collapse

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/voxelforge/bastion/internal/building"
)

// angularVelocityScale converts the raw (unit-ish) direction vector spec.md
// §4.G's cross-product recipe produces into a per-second angular speed.
// The spec leaves the exact scale unspecified ("scaled"); this picks a
// value that reads as a believable tip-and-fall for a single building
// piece rather than a violent spin.
const angularVelocityScale = 1.5

// linearVelocityScale is the equivalent scale applied to the outward
// direction to seed a small initial linear kick, so a promoted cluster
// does not start perfectly at rest before gravity (owned by the external
// physics engine) takes over.
const linearVelocityScale = 0.5

var up = mgl64.Vec3{0, 1, 0}

// precomputeCluster fills in spec.md §4.G's Precomputation for every piece
// in the cluster: a shared center of mass and, per piece, a linear and
// angular velocity plus a time-to-collapse.
//
// The "remaining support" direction is computed once for the whole
// cluster from any surviving external supporter (a piece outside the
// cluster that still supports a cluster member). When no such supporter
// exists — the cluster's entire support was removed at once, as in the
// two-pillars-cut scenario — there is no single external point to react
// away from, so each piece instead reacts away from the cluster's own
// center of mass: the natural reading of spec.md §8 scenario 5, "angular
// velocities point away from the remaining support direction (which is
// zero — so from the bridge's center of mass outward)".
func (e *Engine) precomputeCluster(clusterID uint64, pieceIDs []building.PieceID, now float64) {
	pieces := make([]*building.Piece, 0, len(pieceIDs))
	memberSet := make(map[building.PieceID]bool, len(pieceIDs))
	for _, id := range pieceIDs {
		memberSet[id] = true
	}

	var com mgl64.Vec3
	for _, id := range pieceIDs {
		p, ok := e.grid.Piece(id)
		if !ok {
			continue
		}
		pieces = append(pieces, p)
		com = com.Add(p.Anchor(e.cellSize))
	}
	if len(pieces) == 0 {
		return
	}
	com = com.Mul(1 / float64(len(pieces)))

	externalSupport, haveExternal := e.externalSupportAnchor(pieces, memberSet)

	minTime := -1.0
	for _, p := range pieces {
		mat := e.defs.Materials[p.Material]

		var direction mgl64.Vec3
		if haveExternal {
			direction = com.Sub(externalSupport)
		} else {
			direction = p.Anchor(e.cellSize).Sub(com)
		}
		angular := mgl64.Vec3{}
		linear := mgl64.Vec3{}
		if direction.Len() > 1e-9 {
			dir := direction.Normalize()
			angular = dir.Cross(up).Mul(angularVelocityScale)
			linear = dir.Mul(linearVelocityScale)
		}

		ttc := (p.Stability - mat.MinSupport) / e.decayRate
		if ttc < 0 {
			ttc = 0
		}
		if minTime < 0 || ttc < minTime {
			minTime = ttc
		}

		p.Trajectory = &building.Trajectory{
			ClusterID:       clusterID,
			CenterOfMass:    com,
			LinearVelocity:  linear,
			AngularVelocity: angular,
			TimeToCollapse:  ttc,
		}
	}

	e.pending = append(e.pending, &cluster{
		id:        clusterID,
		pieces:    pieceIDs,
		remaining: minTime,
		createdAt: now,
	})
}

// externalSupportAnchor returns the anchor of a piece outside the cluster
// that still supports one of its members, averaging if more than one such
// supporter exists.
func (e *Engine) externalSupportAnchor(pieces []*building.Piece, memberSet map[building.PieceID]bool) (mgl64.Vec3, bool) {
	var sum mgl64.Vec3
	n := 0
	for _, p := range pieces {
		for _, supporterID := range p.SupportsMe {
			if memberSet[supporterID] {
				continue
			}
			supporter, ok := e.grid.Piece(supporterID)
			if !ok {
				continue
			}
			sum = sum.Add(supporter.Anchor(e.cellSize))
			n++
		}
	}
	if n == 0 {
		return mgl64.Vec3{}, false
	}
	return sum.Mul(1 / float64(n)), true
}
