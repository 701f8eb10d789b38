package pipeline

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/voxelforge/bastion/internal/mesh"
	"github.com/voxelforge/bastion/internal/voxel"
)

// TickStats summarizes what one Tick call did, mainly for tests and
// diagnostics logging.
type TickStats struct {
	Completed   int
	Meshed      int
	Failed      int
	NewlyQueued int
	Visible     int
}

// Tick runs the main-thread step (spec.md §4.D Per-tick ordering): drain
// completions, publish meshes and schedule colliders, drain the Store's
// dirty set into fresh mesh tasks, then recompute the frustum-culled
// visible set. viewerPos is used for the LOD/unload distance policy.
func (p *Pipeline) Tick(viewerPos mgl64.Vec3, frustum *Frustum) TickStats {
	now := time.Now()
	var stats TickStats

	var newlyMeshed []voxel.SectionID
draining:
	for {
		select {
		case c := <-p.completed:
			stats.Completed++
			if c.err != nil {
				stats.Failed++
				p.log.Warn("pipeline: task failed, will retry", "section", c.id.String(), "error", c.err)
				if c.kind == kindMesh {
					p.EnqueueMesh(c.id)
				}
				continue
			}
			if c.kind == kindMesh {
				p.mu.Lock()
				p.meshes[c.id] = c.mesh
				p.mu.Unlock()
				p.store.ClearSectionDirty(c.id)
				newlyMeshed = append(newlyMeshed, c.id)
				stats.Meshed++
			}
		default:
			break draining
		}
	}

	for _, id := range newlyMeshed {
		p.scheduleCollider(id, now)
	}
	p.applyPendingColliders(now)

	for _, id := range p.store.DrainDirty() {
		p.mu.Lock()
		_, queued := p.queued[id]
		p.mu.Unlock()
		if queued {
			continue
		}
		p.noteEdit(id, now)
		p.EnqueueMesh(id)
		stats.NewlyQueued++
	}

	p.updateVisible(viewerPos, frustum, now)
	p.mu.Lock()
	stats.Visible = len(p.visible)
	p.mu.Unlock()
	return stats
}

// scheduleCollider installs a placeholder cuboid the instant a mesh is
// ready if none exists yet (the anti-fall-through invariant never leaves
// a visible chunk with zero collider even for an instant) and records the
// trimesh as pending a debounced swap.
func (p *Pipeline) scheduleCollider(id voxel.SectionID, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.colliers[id]
	if !ok {
		entry = &colliderEntry{}
		p.colliers[id] = entry
	}
	if entry.collider == nil {
		entry.collider = placeholderCollider(id)
	}
	entry.pendingMesh = p.meshes[id]
	entry.pending = true
	if entry.lastEditAt.IsZero() {
		entry.lastEditAt = now
	}
}

// applyPendingColliders swaps every pending cuboid for its trimesh once
// the debounce window has elapsed since the section's last edit (spec.md
// §4.D Collider debounce).
func (p *Pipeline) applyPendingColliders(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, entry := range p.colliers {
		if !entry.pending {
			continue
		}
		if now.Sub(entry.lastEditAt) < p.cfg.ColliderDebounce {
			continue
		}
		entry.collider = trimeshCollider(id, entry.pendingMesh)
		entry.pending = false
		entry.pendingMesh = nil
	}
}

// updateVisible recomputes the frustum-culled draw set and applies the
// LOD/unload distance policy: within LODDistance colliders rebuild
// normally; beyond it collider rebuilds are suppressed (but the visual
// mesh keeps updating via the normal completion path above); beyond
// UnloadDistance the section's mesh and collider are dropped.
func (p *Pipeline) updateVisible(viewerPos mgl64.Vec3, frustum *Frustum, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	visible := make(map[voxel.SectionID]bool, len(p.visible))
	for id := range p.meshes {
		centre, radius := sectionCentreRadius(id)
		dist := centre.Sub(viewerPos).Len()

		if dist > p.cfg.UnloadDistance {
			delete(p.meshes, id)
			delete(p.colliers, id)
			continue
		}
		if !frustum.Intersects(centre, radius) {
			continue
		}
		visible[id] = true

		if _, ok := p.colliers[id]; !ok {
			p.colliers[id] = &colliderEntry{collider: placeholderCollider(id), lastEditAt: now}
		}
		if dist > p.cfg.LODDistance {
			// Collider rebuilds suppressed at this range: clear any
			// pending swap so applyPendingColliders leaves the existing
			// collider (cuboid or stale trimesh) alone.
			p.colliers[id].pending = false
		}
	}
	p.visible = visible
}

// VisualMesh returns the currently published visual mesh for id, if any.
func (p *Pipeline) VisualMesh(id voxel.SectionID) (*mesh.Mesh, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.meshes[id]
	return m, ok
}

// ColliderFor returns the currently installed collider for id, if any.
func (p *Pipeline) ColliderFor(id voxel.SectionID) (*Collider, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.colliers[id]
	if !ok || e.collider == nil {
		return nil, false
	}
	return e.collider, true
}

// Visible reports whether id is currently in the frustum-culled draw set.
func (p *Pipeline) Visible(id voxel.SectionID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible[id]
}
