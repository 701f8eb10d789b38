package worldgen

import (
	"math"

	"github.com/voxelforge/bastion/internal/voxel"
)

// WaterLevel is the default world Y below which empty, surface-reachable
// cells are flagged as the Water material (spec.md §4.B, §6).
const WaterLevel = 32

// Config tunes the generator. The zero value is usable and applies the
// defaults spec.md §6 documents.
type Config struct {
	Seed       int64
	WaterLevel int32
	// CaveCheeseThreshold (tau1) and CaveSpaghettiThreshold (tau2) gate the
	// two cave noise masks in spec.md §4.B.
	CaveCheeseThreshold    float64
	CaveSpaghettiThreshold float64
}

func (c Config) withDefaults() Config {
	if c.WaterLevel == 0 {
		c.WaterLevel = WaterLevel
	}
	if c.CaveCheeseThreshold == 0 {
		c.CaveCheeseThreshold = 0.6
	}
	if c.CaveSpaghettiThreshold == 0 {
		c.CaveSpaghettiThreshold = 0.05
	}
	return c
}

// Generator deterministically populates chunk sections from a seed,
// grounded on server/world/generator/pmgen.Generator's shape: a cached
// noise source plus pure per-section output, no mutable cross-call state.
type Generator struct {
	cfg Config

	heightNoise *noise2
	cheeseNoise *noise3
	spagNoiseA  *noise3
	spagNoiseB  *noise3
}

// New returns a Generator for the given seed and config.
func New(cfg Config) *Generator {
	cfg = cfg.withDefaults()
	return &Generator{
		cfg:         cfg,
		heightNoise: newNoise2(cfg.Seed, 4, 0.5, 1.0/128),
		cheeseNoise: newNoise3(cfg.Seed+1, 1.0/24),
		spagNoiseA:  newNoise3(cfg.Seed+2, 1.0/20),
		spagNoiseB:  newNoise3(cfg.Seed+3, 1.0/20),
	}
}

// Generate populates the section at id, a pure function of (id, seed) per
// spec.md §4.B Determinism: identical inputs yield bit-identical output
// across runs and threads, since every sample below is a closed-form hash
// of (seed, coordinates) with no shared mutable state.
func (g *Generator) Generate(id voxel.SectionID) *voxel.Section {
	baseX := id.Column[0] * voxel.SectionHeight
	baseZ := id.Column[1] * voxel.SectionHeight
	baseY := voxel.ColumnBaseY + id.Y*voxel.SectionHeight

	// Precompute the heightmap and column-open-to-surface flags once per
	// (x, z) column rather than once per cell.
	var height [voxel.SectionHeight][voxel.SectionHeight]int32
	for lx := 0; lx < voxel.SectionHeight; lx++ {
		for lz := 0; lz < voxel.SectionHeight; lz++ {
			wx := float64(baseX) + float64(lx)
			wz := float64(baseZ) + float64(lz)
			height[lx][lz] = g.heightAt(wx, wz)
		}
	}

	return voxel.BuildSection(func(lx, ly, lz uint8) voxel.Cell {
		wx := baseX + int32(lx)
		wy := baseY + int32(ly)
		wz := baseZ + int32(lz)
		h := height[lx][lz]
		return g.classify(wx, wy, wz, h)
	})
}

// heightAt samples the macro-relief heightmap at a world (x, z) column.
func (g *Generator) heightAt(x, z float64) int32 {
	base := 48.0
	amplitude := 24.0
	return int32(math.Round(base + g.heightNoise.at(x, z)*amplitude))
}

func (g *Generator) classify(x, y, z int32, height int32) voxel.Cell {
	if y <= 4 {
		return g.bedrockOrStone(x, y, z, height)
	}

	solid := y <= height
	if solid && g.cavedOut(x, y, z) {
		solid = false
	}

	if !solid {
		if y < g.cfg.WaterLevel && g.surfaceReachable(y, height) {
			return voxel.Cell{Material: MaterialWater, Density: -1}
		}
		return voxel.Cell{Material: MaterialAir, Density: int16(clampDensity((y - height) * 8))}
	}

	depth := height - y
	switch {
	case depth == 0 && withinShoreline(height, g.cfg.WaterLevel):
		return voxel.Cell{Material: MaterialSand, Density: int16(clampDensity(-(depth + 1) * 8))}
	case depth == 0:
		return voxel.Cell{Material: MaterialGrass, Density: int16(clampDensity(-(depth + 1) * 8))}
	case depth >= 1 && depth <= 3:
		return voxel.Cell{Material: MaterialDirt, Density: int16(clampDensity(-(depth + 1) * 8))}
	default:
		return voxel.Cell{Material: MaterialStone, Density: int16(clampDensity(-(depth + 1) * 8))}
	}
}

// bedrockOrStone implements the Y<=4 bedrock ramp: Y=0 is always bedrock,
// Y=1..4 is bedrock with probability 1-Y/5, else stone. The "probability"
// is a deterministic hash draw, never math/rand, so generation stays
// bit-identical across threads.
func (g *Generator) bedrockOrStone(x, y, z int32, height int32) voxel.Cell {
	if y > height {
		return voxel.Cell{Material: MaterialAir, Density: int16(clampDensity((y - height) * 8))}
	}
	if y == 0 {
		return voxel.Cell{Material: MaterialBedrock, Density: -64}
	}
	if y >= 1 && y <= 4 {
		threshold := 1 - float64(y)/5
		draw := (hashToUnit(g.cfg.Seed+97, int64(x), int64(y), int64(z)) + 1) / 2
		if draw < threshold {
			return voxel.Cell{Material: MaterialBedrock, Density: -64}
		}
	}
	return voxel.Cell{Material: MaterialStone, Density: -64}
}

// cavedOut reports whether (x,y,z) is masked out by either cave noise
// pass, never below WaterLevel+8 (spec.md §4.B: caves never undercut the
// shallow water table).
func (g *Generator) cavedOut(x, y, z int32) bool {
	if y < g.cfg.WaterLevel+8 {
		return false
	}
	fx, fy, fz := float64(x), float64(y), float64(z)
	cheese := g.cheeseNoise.at(fx, fy, fz)
	if cheese > g.cfg.CaveCheeseThreshold {
		return true
	}
	spaghetti := g.spagNoiseA.at(fx, fy, fz) * g.spagNoiseB.at(fx*1.3, fy, fz*1.3)
	return math.Abs(spaghetti) < g.cfg.CaveSpaghettiThreshold
}

// surfaceReachable approximates spec.md §4.B's "reachable to the surface"
// rule without consulting neighbouring sections (generation must stay a
// pure function of this section alone): an empty cell below the water
// level counts as open water whenever it sits at or above the local
// terrain height, i.e. nothing solid is generated directly above it in
// this same column.
func (g *Generator) surfaceReachable(y, height int32) bool {
	return y >= height
}

func withinShoreline(height, waterLevel int32) bool {
	const band = 2
	return height >= waterLevel-band && height <= waterLevel+band
}

func clampDensity(v int32) int32 {
	if v > 127 {
		return 127
	}
	if v < -127 {
		return -127
	}
	return v
}
