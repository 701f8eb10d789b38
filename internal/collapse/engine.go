// Package collapse implements the Collapse Engine (spec.md §4.G): it
// clusters the pieces the Stability Engine reports as unstable, precomputes
// each cluster's collapse trajectory, and converts clusters from static to
// dynamic physics bodies once their countdown elapses, under a global
// budget on simultaneously active dynamic bodies.
package collapse

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/voxelforge/bastion/internal/building"
)

// cluster is a group of unstable pieces detected as one mutually
// supporting unit (spec.md §4.G Cluster detection), waiting either on its
// own countdown or on dynamic-body budget.
type cluster struct {
	id        uint64
	pieces    []building.PieceID
	remaining float64 // seconds until conversion fires
	createdAt float64
}

// Config configures a new Engine.
type Config struct {
	Grid     *building.Grid
	Defs     *building.DefinitionTable
	CellSize float64

	// DecayRate is DECAY_RATE (spec.md §4.G): time_to_collapse =
	// (stability - min_support) / DecayRate.
	DecayRate float64
	// MaxSimultaneousDynamic is MAX_SIMULTANEOUS_DYNAMIC_PIECES (spec.md §6).
	MaxSimultaneousDynamic int
	// DespawnDistance is DESPAWN_DISTANCE (spec.md §6).
	DespawnDistance float64
	// SettleTimeout is the countdown in seconds after which an active
	// debris piece is considered settled regardless of its speed
	// (spec.md §4.G, "≈5s").
	SettleTimeout float64
	// LowLinearSpeed and LowAngularSpeed are the thresholds below which a
	// debris piece is considered settled before its timeout expires.
	LowLinearSpeed  float64
	LowAngularSpeed float64
}

func (c Config) withDefaults() Config {
	if c.DecayRate <= 0 {
		c.DecayRate = 10
	}
	if c.MaxSimultaneousDynamic <= 0 {
		c.MaxSimultaneousDynamic = 50
	}
	if c.DespawnDistance <= 0 {
		c.DespawnDistance = 200
	}
	if c.SettleTimeout <= 0 {
		c.SettleTimeout = 5
	}
	if c.LowLinearSpeed <= 0 {
		c.LowLinearSpeed = 0.05
	}
	if c.LowAngularSpeed <= 0 {
		c.LowAngularSpeed = 0.05
	}
	return c
}

type activePiece struct {
	convertedAt float64
	deadline    float64
}

// Engine is the Collapse Engine. It runs on the main thread alongside
// internal/stability (spec.md §5 Ownership) and does not own the Grid it
// operates on.
type Engine struct {
	log      *slog.Logger
	grid     *building.Grid
	defs     *building.DefinitionTable
	cellSize float64

	decayRate       float64
	maxDynamic      int
	despawnDistance float64
	settleTimeout   float64
	lowLinearSpeed  float64
	lowAngularSpeed float64

	clock float64

	nextClusterID uint64
	pending       []*cluster
	// tracked holds every piece already assigned to a pending or active
	// cluster, so a piece the Stability Engine keeps reporting as
	// unstable across several ticks is not re-clustered and
	// re-precomputed every time.
	tracked map[building.PieceID]bool
	active  map[building.PieceID]activePiece
}

// New returns a ready Engine.
func New(log *slog.Logger, cfg Config) *Engine {
	if log == nil {
		log = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &Engine{
		log:             log,
		grid:            cfg.Grid,
		defs:            cfg.Defs,
		cellSize:        cfg.CellSize,
		decayRate:       cfg.DecayRate,
		maxDynamic:      cfg.MaxSimultaneousDynamic,
		despawnDistance: cfg.DespawnDistance,
		settleTimeout:   cfg.SettleTimeout,
		lowLinearSpeed:  cfg.LowLinearSpeed,
		lowAngularSpeed: cfg.LowAngularSpeed,
		tracked:         make(map[building.PieceID]bool),
		active:          make(map[building.PieceID]activePiece),
	}
}

// ReportUnstable clusters newly-unstable pieces via union-find over their
// support-graph edges restricted to the unstable set (spec.md §4.G
// Cluster detection) and precomputes a trajectory for every fresh
// cluster. Pieces already tracked from an earlier report are ignored.
func (e *Engine) ReportUnstable(unstable []building.PieceID) {
	var fresh []building.PieceID
	for _, id := range unstable {
		if !e.tracked[id] {
			fresh = append(fresh, id)
		}
	}
	if len(fresh) == 0 {
		return
	}

	index := make(map[building.PieceID]int64, len(fresh))
	for i, id := range fresh {
		index[id] = int64(i)
	}
	uf := newUnionFind(len(fresh))
	for _, id := range fresh {
		p, ok := e.grid.Piece(id)
		if !ok {
			continue
		}
		for _, other := range p.SupportsMe {
			if j, ok := index[other]; ok {
				uf.union(index[id], j)
			}
		}
		for _, other := range p.ISupport {
			if j, ok := index[other]; ok {
				uf.union(index[id], j)
			}
		}
	}

	groups := make(map[int64][]building.PieceID)
	for _, id := range fresh {
		root := uf.find(index[id])
		groups[root] = append(groups[root], id)
	}

	for _, ids := range groups {
		e.nextClusterID++
		for _, id := range ids {
			e.tracked[id] = true
		}
		e.precomputeCluster(e.nextClusterID, ids, e.clock)
	}
}

// ConversionResult reports a cluster promoted from static to dynamic
// physics during one Step call.
type ConversionResult struct {
	ClusterID uint64
	Pieces    []building.PieceID
}

// Despawned reports a piece resolved immediately by deletion plus
// item-drop because it was beyond DespawnDistance from the viewer when
// its collapse triggered (spec.md §4.G Budget: "skipping physics").
type Despawned struct {
	PieceID  building.PieceID
	Type     string
	Material string
	Position mgl64.Vec3
}

// Step advances the collapse clock by dt seconds. Every pending cluster
// whose countdown has elapsed (or whose min_support has already been
// crossed) either converts to dynamic debris, is despawned immediately if
// beyond DespawnDistance from viewerPos, or waits another tick if the
// dynamic-body budget is currently exhausted (spec.md §4.G Budget:
// "surplus clusters wait").
func (e *Engine) Step(dt float64, viewerPos mgl64.Vec3) ([]ConversionResult, []Despawned) {
	e.clock += dt

	var conversions []ConversionResult
	var despawned []Despawned

	remaining := make([]*cluster, 0, len(e.pending))
	for _, c := range e.pending {
		c.remaining -= dt
		if c.remaining > 0 && !e.anyBelowMinSupport(c) {
			remaining = append(remaining, c)
			continue
		}

		if e.clusterCenterOfMass(c).Sub(viewerPos).Len() > e.despawnDistance {
			despawned = append(despawned, e.despawnCluster(c)...)
			continue
		}

		budget := e.maxDynamic - len(e.active)
		if budget <= 0 {
			c.remaining = 0
			remaining = append(remaining, c)
			continue
		}

		toConvert := c.pieces
		if len(toConvert) > budget {
			// The cluster is larger than the whole dynamic-body budget, or
			// the budget was partly spent by earlier clusters this Step —
			// convert as many pieces as fit and requeue the rest as a
			// smaller cluster instead of gating the entire cluster on a
			// budget it can never satisfy in one piece (spec.md §8 scenario
			// 6, a structure larger than MAX_SIMULTANEOUS_DYNAMIC_PIECES).
			toConvert = append([]building.PieceID(nil), c.pieces[:budget]...)
			leftover := append([]building.PieceID(nil), c.pieces[budget:]...)
			remaining = append(remaining, &cluster{id: c.id, pieces: leftover, remaining: 0, createdAt: c.createdAt})
		}

		e.convertCluster(c.id, toConvert)
		conversions = append(conversions, ConversionResult{ClusterID: c.id, Pieces: toConvert})
	}
	e.pending = remaining

	return conversions, despawned
}

func (e *Engine) anyBelowMinSupport(c *cluster) bool {
	for _, id := range c.pieces {
		p, ok := e.grid.Piece(id)
		if !ok {
			continue
		}
		if mat, ok := e.defs.Materials[p.Material]; ok && p.Stability < mat.MinSupport {
			return true
		}
	}
	return false
}

func (e *Engine) clusterCenterOfMass(c *cluster) mgl64.Vec3 {
	for _, id := range c.pieces {
		if p, ok := e.grid.Piece(id); ok && p.Trajectory != nil {
			return p.Trajectory.CenterOfMass
		}
	}
	return mgl64.Vec3{}
}

// convertCluster promotes every piece in ids from static to dynamic debris
// (spec.md §4.G Conversion): detach its support-graph edges first (spec.md
// §8 I6), set its State to StateDebris, and start its settle-or-timeout
// countdown. It does not set or apply any velocity; the precomputed
// velocities stay on each piece's Trajectory. ids may be a
// strict subset of a cluster's pieces when the dynamic-body budget only
// covers part of it.
func (e *Engine) convertCluster(clusterID uint64, ids []building.PieceID) {
	for _, id := range ids {
		p, ok := e.grid.Piece(id)
		if !ok {
			continue
		}
		e.grid.DetachEdges(id)
		p.State = building.StateDebris
		delete(e.tracked, id)
		e.active[id] = activePiece{convertedAt: e.clock, deadline: e.clock + e.settleTimeout}
	}
	e.log.Info("collapse: cluster converted", "cluster", clusterID, "pieces", len(ids))
}

// despawnCluster resolves every piece in c immediately by deletion,
// skipping physics entirely, and returns the item-drop record each
// piece's removal should produce for the caller to act on.
func (e *Engine) despawnCluster(c *cluster) []Despawned {
	var out []Despawned
	for _, id := range c.pieces {
		p, ok := e.grid.Piece(id)
		if !ok {
			continue
		}
		def := e.defs.Pieces[p.Type]
		pos := p.Anchor(e.cellSize)
		e.grid.DetachEdges(id)
		e.grid.Remove(id, def)
		delete(e.tracked, id)
		out = append(out, Despawned{PieceID: id, Type: p.Type, Material: p.Material, Position: pos})
	}
	e.log.Info("collapse: cluster despawned beyond range", "cluster", c.id, "pieces", len(c.pieces))
	return out
}

// Settled reports whether id's debris piece should stop counting against
// the dynamic-body budget: either its settle timeout elapsed or the
// physics engine reports its speeds have dropped below the settle
// thresholds (spec.md §4.G: "settle-or-timeout countdown"). The physics
// engine is an external collaborator that owns rigid-body velocities
// (spec.md §1), so Settled takes them as input rather than sampling them.
func (e *Engine) Settled(id building.PieceID, linearSpeed, angularSpeed float64) bool {
	a, ok := e.active[id]
	if !ok {
		return true
	}
	if e.clock >= a.deadline || (linearSpeed < e.lowLinearSpeed && angularSpeed < e.lowAngularSpeed) {
		delete(e.active, id)
		return true
	}
	return false
}

// ActiveCount reports how many pieces currently count against
// MaxSimultaneousDynamic.
func (e *Engine) ActiveCount() int {
	return len(e.active)
}

// Pending reports how many clusters are queued waiting on their own
// countdown or on dynamic-body budget.
func (e *Engine) Pending() int {
	return len(e.pending)
}
