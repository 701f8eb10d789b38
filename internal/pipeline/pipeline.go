// Package pipeline implements the Chunk Pipeline (spec.md §4.D): the
// background generation/meshing worker pool and the single-threaded
// main-tick step that consumes their output, publishes meshes, swaps
// colliders under the anti-fall-through invariant, and culls the draw set.
package pipeline

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/voxelforge/bastion/internal/mesh"
	"github.com/voxelforge/bastion/internal/voxel"
)

// Generator is the World Generator dependency the pipeline's generation
// workers call. internal/worldgen.Generator satisfies it.
type Generator interface {
	Generate(id voxel.SectionID) *voxel.Section
}

// Pipeline is the Chunk Pipeline. A nil *Pipeline is not usable; construct
// one with New.
type Pipeline struct {
	log   *slog.Logger
	cfg   Config
	store *voxel.Store
	gen   Generator

	meshSkirt bool

	genQueue  chan generationTask
	meshQueue chan meshTask
	completed chan completion

	closing chan struct{}
	eg      *errgroup.Group

	mu       sync.Mutex
	queued   map[voxel.SectionID]taskKind
	meshes   map[voxel.SectionID]*mesh.Mesh
	colliers map[voxel.SectionID]*colliderEntry
	visible  map[voxel.SectionID]bool
}

// New starts the pipeline's background worker pool and returns a ready
// Pipeline. Call Close to drain and stop it.
func New(store *voxel.Store, gen Generator, log *slog.Logger, cfg Config) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	cfg = cfg.withDefaults()

	p := &Pipeline{
		log:      log,
		cfg:      cfg,
		store:     store,
		gen:       gen,
		meshSkirt: cfg.MeshSkirt,
		genQueue:  make(chan generationTask, cfg.QueueSize),
		meshQueue: make(chan meshTask, cfg.QueueSize),
		completed: make(chan completion, cfg.QueueSize),
		closing:   make(chan struct{}),
		queued:    make(map[voxel.SectionID]taskKind),
		meshes:    make(map[voxel.SectionID]*mesh.Mesh),
		colliers:  make(map[voxel.SectionID]*colliderEntry),
		visible:   make(map[voxel.SectionID]bool),
	}

	p.eg = &errgroup.Group{}
	for i := 0; i < cfg.GenerateWorkers; i++ {
		p.eg.Go(p.generatorWorker)
	}
	for i := 0; i < cfg.MeshWorkers; i++ {
		p.eg.Go(p.meshWorker)
	}
	return p
}

// Close signals every worker to stop, drains both queues so no goroutine
// is left blocked trying to send a completion, and waits for the pool to
// exit.
func (p *Pipeline) Close() error {
	close(p.closing)
	return p.eg.Wait()
}

// EnqueueGenerate schedules a generation task for id, following the
// teacher's generateChunkAsync shape: try the buffered channel first,
// fall back to a blocking goroutine send (recording backpressure) if the
// queue is momentarily full, and never enqueue once closing.
func (p *Pipeline) EnqueueGenerate(id voxel.SectionID) {
	p.enqueue(id, kindGenerate)
}

// EnqueueMesh schedules a mesh task for id.
func (p *Pipeline) EnqueueMesh(id voxel.SectionID) {
	p.enqueue(id, kindMesh)
}

func (p *Pipeline) enqueue(id voxel.SectionID, kind taskKind) {
	p.mu.Lock()
	if _, already := p.queued[id]; already {
		p.mu.Unlock()
		return
	}
	p.queued[id] = kind
	p.mu.Unlock()

	select {
	case <-p.closing:
		p.unmark(id)
		return
	default:
	}

	switch kind {
	case kindGenerate:
		select {
		case p.genQueue <- generationTask{id: id}:
		case <-p.closing:
			p.unmark(id)
		default:
			go p.blockingSend(func() { p.genQueue <- generationTask{id: id} })
			p.log.Warn("pipeline: generate queue saturated", "queued_tasks", len(p.genQueue), "capacity", cap(p.genQueue))
		}
	case kindMesh:
		select {
		case p.meshQueue <- meshTask{id: id}:
		case <-p.closing:
			p.unmark(id)
		default:
			go p.blockingSend(func() { p.meshQueue <- meshTask{id: id} })
			p.log.Warn("pipeline: mesh queue saturated", "queued_tasks", len(p.meshQueue), "capacity", cap(p.meshQueue))
		}
	}
}

func (p *Pipeline) blockingSend(send func()) {
	done := make(chan struct{})
	go func() {
		send()
		close(done)
	}()
	select {
	case <-done:
	case <-p.closing:
	}
}

func (p *Pipeline) unmark(id voxel.SectionID) {
	p.mu.Lock()
	delete(p.queued, id)
	p.mu.Unlock()
}

func (p *Pipeline) publish(c completion) {
	select {
	case p.completed <- c:
	case <-p.closing:
	}
}

// noteEdit marks id as freshly edited, for the collider debounce window.
func (p *Pipeline) noteEdit(id voxel.SectionID, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.colliers[id]
	if !ok {
		e = &colliderEntry{}
		p.colliers[id] = e
	}
	e.lastEditAt = now
}
