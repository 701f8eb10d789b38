package pipeline

import (
	"time"

	"github.com/voxelforge/bastion/internal/mesh"
	"github.com/voxelforge/bastion/internal/voxel"
)

// Config tunes the pipeline's worker pool and LOD policy. The zero value
// is usable; withDefaults fills in spec.md §6's suggested defaults.
type Config struct {
	GenerateWorkers int
	MeshWorkers     int
	QueueSize       int

	// ColliderDebounce coalesces repeated edits to the same section within
	// this window into a single collider rebuild (spec.md §4.D, 50-100ms).
	ColliderDebounce time.Duration

	// LODDistance is the distance beyond which collider rebuilds are
	// suppressed while the visual mesh keeps updating.
	LODDistance float64
	// UnloadDistance is the distance beyond which a section's mesh and
	// collider are dropped entirely.
	UnloadDistance float64

	// MeshSkirt enables the supplemented chunk-border skirt on every
	// extracted mesh (mesh.WithSkirt).
	MeshSkirt bool
}

func (c Config) withDefaults() Config {
	if c.GenerateWorkers == 0 {
		c.GenerateWorkers = 4
	}
	if c.MeshWorkers == 0 {
		c.MeshWorkers = 4
	}
	if c.QueueSize == 0 {
		c.QueueSize = 256
	}
	if c.ColliderDebounce == 0 {
		c.ColliderDebounce = 75 * time.Millisecond
	}
	if c.LODDistance == 0 {
		c.LODDistance = 128
	}
	if c.UnloadDistance == 0 {
		c.UnloadDistance = 256
	}
	return c
}

type generationTask struct {
	id voxel.SectionID
}

type meshTask struct {
	id voxel.SectionID
}

type taskKind uint8

const (
	kindGenerate taskKind = iota
	kindMesh
)

// completion is what a background worker publishes to the main-thread
// completion queue (spec.md §5 Suspension points).
type completion struct {
	kind taskKind
	id   voxel.SectionID
	mesh *mesh.Mesh // set for kindMesh completions
	err  error
}
