// Package engine owns the process-wide singletons spec.md §9 Design
// Notes describes: the Voxel Store, Building Grid, Support Graph and
// task queues are process-wide, with an explicit init(seed, config) /
// teardown() lifecycle, inaccessible before Init and holding no threads
// after Teardown. This generalizes server.Server's construction/Close
// pair from a Minecraft server process to this engine's tick loop.
package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/voxelforge/bastion/internal/building"
	"github.com/voxelforge/bastion/internal/collapse"
	"github.com/voxelforge/bastion/internal/config"
	"github.com/voxelforge/bastion/internal/persist"
	"github.com/voxelforge/bastion/internal/pipeline"
	"github.com/voxelforge/bastion/internal/stability"
	"github.com/voxelforge/bastion/internal/voxel"
	"github.com/voxelforge/bastion/internal/worldgen"
)

var (
	mu      sync.Mutex
	current *Engine
)

// Engine wires every core component together: one Voxel Store, one
// Building Grid + Snap Index, one Stability Engine, one Collapse Engine,
// one Chunk Pipeline, one World Generator, and the Persist store backing
// them all.
type Engine struct {
	Log *slog.Logger

	Store     *voxel.Store
	Generator *worldgen.Generator
	Pipeline  *pipeline.Pipeline

	Grid   *building.Grid
	Snaps  *building.SnapIndex
	Defs   *building.DefinitionTable
	Placer *building.Placer

	Stability *stability.Engine
	Collapse  *collapse.Engine

	Persist *persist.Store

	cfg config.Config
}

// Init constructs the process-wide Engine singleton from cfg and opens
// the save at savePath (created if it does not yet exist). Calling Init
// again before Teardown panics, matching spec.md §9's "not accessible
// before init" — there is exactly one live instance at a time.
func Init(savePath string, cfg config.Config, log *slog.Logger) (*Engine, error) {
	mu.Lock()
	defer mu.Unlock()
	if current != nil {
		panic("engine: Init called twice without an intervening Teardown")
	}
	if log == nil {
		log = slog.Default()
	}

	store := voxel.NewStore(log)
	gen := worldgen.New(worldgen.Config{Seed: cfg.Seed, WaterLevel: cfg.WaterLevel})
	pl := pipeline.New(store, gen, log, pipeline.Config{
		GenerateWorkers:  cfg.GenerateWorkers,
		MeshWorkers:      cfg.MeshWorkers,
		MeshSkirt:        true,
		LODDistance:      cfg.LODDistance,
		UnloadDistance:   cfg.UnloadDistance,
		ColliderDebounce: time.Duration(cfg.ColliderDebounceMS) * time.Millisecond,
	})

	defs := building.DefaultDefinitions()
	applyMaterialOverrides(defs, cfg.Materials)

	grid := building.NewGrid(cfg.CellSize)
	snaps := building.NewSnapIndex(cfg.SnapRadius)
	// The build zone is not a recognized config option (spec.md §6 leaves
	// it to whatever hosts the engine — a per-world or per-plot boundary
	// decided at a higher level than this package). With Radius 0 every
	// placement whose footprint centre is not exactly the origin fails
	// ReasonOutOfZone until the caller sets Placer.Zone themselves; this is
	// deliberate rather than a forgotten default.
	placer := building.NewPlacer(grid, snaps, defs, store, building.Zone{Radius: 0}, cfg.SnapRadius)

	stab := stability.New(log, stability.Config{
		Grid:          grid,
		Defs:          defs,
		Store:         store,
		CellSize:      cfg.CellSize,
		BudgetPerTick: cfg.BudgetPiecesPerTick,
	})
	coll := collapse.New(log, collapse.Config{
		Grid:                   grid,
		Defs:                   defs,
		CellSize:               cfg.CellSize,
		DecayRate:              cfg.DecayRate,
		MaxSimultaneousDynamic: cfg.MaxSimultaneousDynamicPieces,
		DespawnDistance:        cfg.DespawnDistance,
	})

	save, err := persist.Open(savePath)
	if err != nil {
		return nil, fmt.Errorf("engine: init: %w", err)
	}
	if err := bootstrapSave(save, grid, defs, cfg); err != nil {
		save.Close()
		return nil, err
	}

	eng := &Engine{
		Log:       log,
		Store:     store,
		Generator: gen,
		Pipeline:  pl,
		Grid:      grid,
		Snaps:     snaps,
		Defs:      defs,
		Placer:    placer,
		Stability: stab,
		Collapse:  coll,
		Persist:   save,
		cfg:       cfg,
	}
	current = eng
	return eng, nil
}

// Current returns the process-wide Engine singleton, or nil before Init
// or after Teardown.
func Current() *Engine {
	mu.Lock()
	defer mu.Unlock()
	return current
}

// Teardown stops the background worker pool, closes the save file, and
// clears the singleton so the process holds no engine threads afterwards.
func (e *Engine) Teardown() error {
	mu.Lock()
	defer mu.Unlock()

	var err error
	if e.Pipeline != nil {
		err = e.Pipeline.Close()
	}
	if e.Persist != nil {
		if cerr := e.Persist.Close(); err == nil {
			err = cerr
		}
	}
	if current == e {
		current = nil
	}
	return err
}

// TickResult summarizes one call to Tick, for logging and tests.
type TickResult struct {
	Pipeline    pipeline.TickStats
	Unstable    []building.PieceID
	Conversions []collapse.ConversionResult
	Despawned   []collapse.Despawned
}

// Tick runs one frame's worth of work across every main-thread-only
// component, in the dependency order spec.md §2's data flow describes:
// the Chunk Pipeline first (publishes meshes, swaps colliders), then the
// Stability Engine (propagates support, reports newly unstable pieces),
// then the Collapse Engine (clusters and converts them).
func (e *Engine) Tick(dt float64, viewerPos mgl64.Vec3, frustum *pipeline.Frustum) TickResult {
	var res TickResult
	res.Pipeline = e.Pipeline.Tick(viewerPos, frustum)
	res.Unstable = e.Stability.Step()
	e.Collapse.ReportUnstable(res.Unstable)
	res.Conversions, res.Despawned = e.Collapse.Step(dt, viewerPos)
	return res
}

func applyMaterialOverrides(defs *building.DefinitionTable, tiers []config.MaterialTier) {
	for _, t := range tiers {
		defs.AddMaterial(building.MaterialDefinition{
			Material:       t.Material,
			Tier:           t.Tier,
			MaxSupport:     t.MaxSupport,
			MinSupport:     t.MinSupport,
			VerticalLoss:   t.VerticalLoss,
			HorizontalLoss: t.HorizontalLoss,
		})
	}
}

// bootstrapSave writes a fresh header on a brand-new save, or on an
// existing one loads every persisted piece back into grid so a restarted
// process resumes the same building state (spec.md §6
// Persistence). Voxel chunks are loaded lazily by the Chunk Pipeline as
// sections come into view, not eagerly here.
//
// A record only carries the ISupport half of each edge, so a second pass
// over every restored piece rebuilds the SupportsMe back-edges — without
// it, spec.md §8 I4 ("for every edge (u→v), v∈u.i_support AND
// u∈v.supports_me") would not hold after a reload, and
// stability.computeStability, which walks SupportsMe to find a piece's
// supporters, would see every restored piece as unsupported the moment it
// is next dirtied. Every restored piece is then marked dirty so the
// Stability Engine re-derives its stability from the now-complete graph
// on the first tick rather than trusting the persisted value forever.
func bootstrapSave(store *persist.Store, grid *building.Grid, defs *building.DefinitionTable, cfg config.Config) error {
	header, ok, err := store.ReadHeader()
	if err != nil {
		return fmt.Errorf("engine: read save header: %w", err)
	}
	if !ok {
		return store.WriteHeader(persist.Header{Version: persist.FormatVersion, Seed: cfg.Seed})
	}
	if header.Seed != cfg.Seed {
		return fmt.Errorf("engine: save seed %d does not match configured seed %d", header.Seed, cfg.Seed)
	}

	records, err := store.LoadAllPieces()
	if err != nil {
		return fmt.Errorf("engine: load pieces: %w", err)
	}

	restored := make([]building.PieceID, 0, len(records))
	for _, rec := range records {
		def, ok := defs.Pieces[rec.Type]
		if !ok {
			continue
		}
		grid.Restore(building.Piece{
			ID:        rec.ID,
			Type:      rec.Type,
			Material:  rec.Material,
			GridPos:   rec.Position,
			Rotation:  rec.Rotation,
			Stability: rec.Stability,
			ISupport:  rec.ConnectedTo,
		}, def)
		restored = append(restored, rec.ID)
	}

	for _, id := range restored {
		p, ok := grid.Piece(id)
		if !ok {
			continue
		}
		for _, childID := range p.ISupport {
			child, ok := grid.Piece(childID)
			if !ok {
				continue
			}
			child.SupportsMe = append(child.SupportsMe, id)
		}
	}
	for _, id := range restored {
		grid.MarkDirty(id)
	}
	return nil
}
