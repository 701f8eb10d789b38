package building

import (
	"math"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/voxelforge/bastion/internal/voxel"
)

// snapScoreThreshold is the minimum score spec.md §4.E requires a
// candidate snap pair to clear ("above a threshold"); the spec leaves the
// exact value unspecified, so this picks 0.35. With score =
// 0.6*alignment + 0.4*distance_score, a head-on pair (alignment 1) clears
// it anywhere within the snap radius, while an orthogonal pair
// (alignment 0) clears it only within one eighth of the snap radius.
const snapScoreThreshold = 0.35

// Zone is the active build-zone (spec.md §4.E rule 1).
type Zone struct {
	Centre mgl64.Vec3
	Radius float64
}

// Placer runs the placement-validation pipeline against a Grid, a
// SnapIndex and the voxel Store, using a DefinitionTable to resolve piece
// and material behaviour.
type Placer struct {
	Grid       *Grid
	Snaps      *SnapIndex
	Defs       *DefinitionTable
	Store      *voxel.Store
	Zone       Zone
	SnapRadius float64
}

// NewPlacer wires a Placer over grid/snaps/store using defs for piece and
// material lookups. snapRadius is SNAP_RADIUS (spec.md §6, default 0.5).
func NewPlacer(grid *Grid, snaps *SnapIndex, defs *DefinitionTable, store *voxel.Store, zone Zone, snapRadius float64) *Placer {
	return &Placer{Grid: grid, Snaps: snaps, Defs: defs, Store: store, Zone: zone, SnapRadius: snapRadius}
}

// Request describes a candidate placement.
type Request struct {
	Type     string
	Material string
	GridPos  [3]int32
	Rotation uint8
}

// Place runs the four-rule validation pipeline in spec.md §4.E's normative
// order — a request fails with the first matching rule — and, on success,
// applies the side effects: a support-graph edge to every piece whose
// snap was consumed, that piece's dirty flag set, and the new piece's own
// snap points inserted into the index.
func (pl *Placer) Place(req Request) (*Piece, error) {
	def, ok := pl.Defs.Pieces[req.Type]
	if !ok {
		return nil, invalid(ReasonUnknownType)
	}
	if !containsStr(def.MaterialOptions, req.Material) {
		return nil, invalid(ReasonUnknownMaterial)
	}

	candidate := Piece{Type: req.Type, Material: req.Material, GridPos: req.GridPos, Rotation: req.Rotation}
	cells := occupiedCells(candidate, def)

	centre := footprintCentre(cells, pl.Grid.CellSize)
	if centre.Sub(pl.Zone.Centre).Len() > pl.Zone.Radius {
		return nil, invalid(ReasonOutOfZone)
	}

	for _, c := range cells {
		if _, occupied := pl.Grid.At(c); occupied {
			return nil, invalid(ReasonOverlap)
		}
	}

	matches, clearanceOK := pl.evaluateTerrainAndSnaps(candidate, def, cells)
	if !clearanceOK && len(matches) == 0 {
		return nil, invalid(ReasonTerrainClearance)
	}
	if len(matches) == 0 && !def.FreePlacement {
		return nil, invalid(ReasonNoSnap)
	}

	id := uuid.New()
	candidate.ID = id
	placed := pl.Grid.insert(candidate, cells) // insert already marks id dirty

	for _, m := range matches {
		target, ok := pl.Grid.Piece(m.theirs.Piece)
		if !ok {
			continue
		}
		target.ISupport = append(target.ISupport, id)
		placed.SupportsMe = append(placed.SupportsMe, target.ID)
		pl.Grid.MarkDirty(target.ID)
	}

	pl.Snaps.Insert(pl.snapPointsFor(*placed, def))
	return placed, nil
}

type snapMatch struct {
	theirs SnapPoint
	score  float64
}

// evaluateTerrainAndSnaps resolves rules 3 and 4 together: rule 3 allows
// either terrain contact or "the existence of a connecting snap" to pass,
// so the best-scoring snap candidates are computed once and reused to
// decide both rules.
func (pl *Placer) evaluateTerrainAndSnaps(p Piece, def PieceDefinition, cells []CellPos) ([]snapMatch, bool) {
	clearance := TerrainSupported(pl.Store, p, def, pl.Grid.CellSize)
	matches := pl.bestSnapMatches(p, def)
	return matches, clearance
}

// bestSnapMatches scores every candidate pair between p's own (rotated,
// world-placed) snap points and indexed snap points within SnapRadius,
// keeping the single best-scoring, threshold-clearing candidate per mine
// point. Ties on score break on the lowest target piece-id (spec.md
// §4.E).
func (pl *Placer) bestSnapMatches(p Piece, def PieceDefinition) []snapMatch {
	mine := pl.snapPointsFor(p, def)
	var out []snapMatch

	for _, m := range mine {
		candidates := pl.Snaps.Query(m.Position, pl.SnapRadius)
		var best snapMatch
		haveBest := false

		for _, theirs := range candidates {
			if theirs.Piece == p.ID {
				continue
			}
			if !snapCompatible(m, theirs) {
				continue
			}
			d := m.Position.Sub(theirs.Position).Len()
			alignment := math.Max(0, m.Direction.Mul(-1).Dot(theirs.Direction))
			distanceScore := 1 - math.Min(1, d/pl.SnapRadius)
			score := 0.6*alignment + 0.4*distanceScore
			if score < snapScoreThreshold {
				continue
			}
			if !haveBest || score > best.score ||
				(score == best.score && strings.Compare(theirs.Piece.String(), best.theirs.Piece.String()) < 0) {
				best, haveBest = snapMatch{theirs: theirs, score: score}, true
			}
		}
		if haveBest {
			out = append(out, best)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return strings.Compare(out[i].theirs.Piece.String(), out[j].theirs.Piece.String()) < 0
	})
	return out
}

func snapCompatible(mine, theirs SnapPoint) bool {
	if mine.Group != theirs.Group {
		return false
	}
	if len(theirs.Accepts) > 0 && !theirs.Accepts[mine.PieceType] {
		return false
	}
	if len(mine.Accepts) > 0 && !mine.Accepts[theirs.PieceType] {
		return false
	}
	return true
}

// snapPointsFor materializes def's local snap points into world space for
// piece p: rotate the local offset and direction by p.Rotation, then
// translate by p's grid-cell world position.
func (pl *Placer) snapPointsFor(p Piece, def PieceDefinition) []SnapPoint {
	base := worldPos(p.GridPos, pl.Grid.CellSize)
	out := make([]SnapPoint, 0, len(def.SnapPoints))
	for _, sp := range def.SnapPoints {
		out = append(out, SnapPoint{
			Piece:     p.ID,
			PieceType: p.Type,
			Group:     sp.Group,
			Accepts:   sp.Accepts,
			Position:  base.Add(rotateSteps(sp.LocalOffset.Mul(pl.Grid.CellSize), p.Rotation)),
			Direction: rotateSteps(sp.Direction, p.Rotation),
		})
	}
	return out
}

func footprintCentre(cells []CellPos, cellSize float64) mgl64.Vec3 {
	if len(cells) == 0 {
		return mgl64.Vec3{}
	}
	var sum mgl64.Vec3
	for _, c := range cells {
		sum = sum.Add(worldPos([3]int32(c), cellSize))
	}
	return sum.Mul(1 / float64(len(cells)))
}

func containsStr(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
