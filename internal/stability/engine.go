// Package stability implements the Stability Engine (spec.md §4.F): the
// Support Graph propagation that assigns every placed piece a stability
// value and reports pieces that drop below their material's min_support
// to the Collapse Engine. This is the most direct generalization of the
// teacher's redstone package in the module: Node becomes Piece,
// NodeState.Power becomes stability, propagatePower's per-kind adjustment
// becomes the vertical/horizontal loss table, and the graph's directed
// edges gain the supports_me/i_support duality the teacher's circuitry
// graph never needed (it has no back-edges; spec.md §8 I4 requires them).
package stability

import (
	"log/slog"

	"github.com/segmentio/fasthash/fnv1a"

	"github.com/voxelforge/bastion/internal/building"
	"github.com/voxelforge/bastion/internal/voxel"
)

// EdgeKind is the geometric classification spec.md §4.F requires: vertical
// if the supported piece's anchor sits above the supporter's, horizontal
// otherwise. It is derived from the two pieces' grid positions rather
// than stored on the edge, since grid position never changes once a piece
// is placed — recomputing it is always equal to whatever was cached at
// edge-creation time, so no cache is kept.
type EdgeKind uint8

const (
	EdgeHorizontal EdgeKind = iota
	EdgeVertical
)

func edgeKind(supporter, supported building.Piece) EdgeKind {
	if supported.GridPos[1] > supporter.GridPos[1] {
		return EdgeVertical
	}
	return EdgeHorizontal
}

func lossFor(kind EdgeKind, mat building.MaterialDefinition) float64 {
	if kind == EdgeVertical {
		return mat.VerticalLoss
	}
	return mat.HorizontalLoss
}

// stabilityEpsilon is the float64 margin by which a recomputed stability
// value must exceed the stored one before Step counts it as an increase,
// so a cyclic chain of pieces settles instead of requeuing forever on
// vanishingly small deltas.
const stabilityEpsilon = 1e-9

// Engine is the Stability Engine. It runs entirely on the main thread
// (spec.md §5 Ownership) against a *building.Grid it does not own.
type Engine struct {
	log   *slog.Logger
	grid  *building.Grid
	defs  *building.DefinitionTable
	store *voxel.Store

	cellSize      float64
	budgetPerTick int

	queue  []building.PieceID
	queued map[uint64]bool

	unstable map[building.PieceID]bool
}

// Config configures a new Engine.
type Config struct {
	Grid          *building.Grid
	Defs          *building.DefinitionTable
	Store         *voxel.Store
	CellSize      float64
	BudgetPerTick int // spec.md §6 BUDGET_PIECES_PER_TICK, default 50
}

// New returns a ready Engine.
func New(log *slog.Logger, cfg Config) *Engine {
	if log == nil {
		log = slog.Default()
	}
	if cfg.BudgetPerTick <= 0 {
		cfg.BudgetPerTick = 50
	}
	return &Engine{
		log:           log,
		grid:          cfg.Grid,
		defs:          cfg.Defs,
		store:         cfg.Store,
		cellSize:      cfg.CellSize,
		budgetPerTick: cfg.BudgetPerTick,
		queued:        make(map[uint64]bool),
		unstable:      make(map[building.PieceID]bool),
	}
}

// dedupeKey generalizes the teacher's eventDedupeKey (pos/tick/power/kind
// struct key) into a single fnv1a hash of the piece id: a recompute always
// derives a piece's full stability from its current edges, so — unlike the
// teacher's per-field power-delta events — nothing is lost by coalescing on
// identity alone.
func dedupeKey(id building.PieceID) uint64 {
	return fnv1a.HashBytes64(id[:])
}

func (e *Engine) enqueue(id building.PieceID) {
	key := dedupeKey(id)
	if e.queued[key] {
		return
	}
	e.queued[key] = true
	e.queue = append(e.queue, id)
}

func (e *Engine) dequeue() building.PieceID {
	id := e.queue[0]
	e.queue = e.queue[1:]
	delete(e.queued, dedupeKey(id))
	return id
}

// Invalidate resets id's stability to zero and cascades the reset down
// every piece id supports, requeuing all of them. This is how the engine
// handles a decrease (a support edge removed, a piece destroyed beneath
// a stack): the monotonic-max relaxation in Step only ever increases a
// value towards the best incoming edge it can find, so a drop has to be
// forced in before relaxation can re-derive whatever lower (or recovered,
// if another support path exists) value is now correct.
//
// The support graph is not a DAG — two pieces can snap to each other
// (spec.md §9) — so the cascade tracks visited ids the same way Step's
// BFS does via queued, instead of recursing unguarded into a cycle.
func (e *Engine) Invalidate(id building.PieceID) {
	visited := make(map[building.PieceID]bool)
	e.invalidate(id, visited)
}

func (e *Engine) invalidate(id building.PieceID, visited map[building.PieceID]bool) {
	if visited[id] {
		return
	}
	visited[id] = true

	piece, ok := e.grid.Piece(id)
	if !ok {
		return
	}
	piece.Stability = 0
	e.enqueue(id)
	for _, child := range piece.ISupport {
		e.invalidate(child, visited)
	}
}

// Step drains the grid's dirty set into the queue and processes up to
// BudgetPerTick pieces (spec.md §4.F Throttling), returning every piece
// that crossed below its material's min_support during this step. The
// rest of the queue is carried over to the next Step call.
func (e *Engine) Step() []building.PieceID {
	for _, id := range e.grid.DrainDirty() {
		e.enqueue(id)
	}

	var unstableNow []building.PieceID
	processed := 0
	for processed < e.budgetPerTick && len(e.queue) > 0 {
		id := e.dequeue()
		piece, ok := e.grid.Piece(id)
		if !ok {
			continue
		}
		processed++

		mat, ok := e.defs.Materials[piece.Material]
		if !ok {
			e.log.Warn("stability: piece references unknown material", "piece", id, "material", piece.Material)
			continue
		}

		newVal := e.computeStability(*piece, mat)
		old := piece.Stability
		if newVal > old+stabilityEpsilon {
			piece.Stability = newVal
			for _, child := range piece.ISupport {
				e.enqueue(child)
			}
		}

		wasUnstable := e.unstable[id]
		isUnstable := piece.Stability < mat.MinSupport
		switch {
		case isUnstable && !wasUnstable:
			e.unstable[id] = true
			unstableNow = append(unstableNow, id)
		case !isUnstable && wasUnstable:
			delete(e.unstable, id)
		}
	}
	return unstableNow
}

// computeStability applies spec.md §4.F's model: grounded pieces sit at
// their material's max_support; otherwise stability is the best
// (monotonic-max) of every incoming edge's contribution, applying the
// hierarchy-reset rule per edge before the loss factor.
func (e *Engine) computeStability(p building.Piece, mat building.MaterialDefinition) float64 {
	if e.grounded(p, mat) {
		return mat.MaxSupport
	}

	best := 0.0
	for _, supporterID := range p.SupportsMe {
		supporter, ok := e.grid.Piece(supporterID)
		if !ok {
			continue
		}
		supporterMat, ok := e.defs.Materials[supporter.Material]
		if !ok {
			continue
		}
		if e.hierarchyReset(supporterMat, mat) {
			if mat.MaxSupport > best {
				best = mat.MaxSupport
			}
			continue
		}
		kind := edgeKind(*supporter, p)
		value := supporter.Stability * (1 - lossFor(kind, mat))
		if value > best {
			best = value
		}
	}
	return best
}

// hierarchyReset resolves spec.md §9's acknowledged inconsistency in the
// material tier ordering. The spec states the rule as "if tier(v) exceeds
// tier(u), treat v as grounded" but its own worked example ("wood placed
// on stone resets; stone on wood does not") only holds if reset fires
// when the *supported* piece is the weaker material — i.e. tier(v) below
// tier(u) under the ascending-by-strength ordering the spec's Open
// Question names (thatch < wood < hardwood < stone < metal). This
// implementation follows the worked example: a piece resets to its own
// max_support when it is strictly weaker than whatever currently supports
// it, since a light material resting on an overbuilt one is not
// meaningfully constrained by the support chain beneath that.
func (e *Engine) hierarchyReset(supporterMat, supportedMat building.MaterialDefinition) bool {
	return supportedMat.Tier < supporterMat.Tier
}

// grounded reports whether p currently has terrain contact, per the same
// lower-face-corner SDF sample the Building Grid uses during placement
// (spec.md §4.F: "a piece in contact with terrain is grounded"). This is
// re-evaluated every recompute rather than cached, since digging out the
// ground beneath a foundation must be able to un-ground it.
func (e *Engine) grounded(p building.Piece, mat building.MaterialDefinition) bool {
	def, ok := e.defs.Pieces[p.Type]
	if !ok {
		return false
	}
	return building.TerrainSupported(e.store, p, def, e.cellSize)
}
