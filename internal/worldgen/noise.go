package worldgen

import "math"

// noise2 and noise3 are deterministic, seed-keyed gradient-ish noise
// sources. They are written from scratch in the idiom visible at
// server/world/generator/pmgen/generator.go's call site
// (newSimplex(r, octaves, persistence, scale)) rather than copied from it,
// since the teacher's own simplex/rand subpackages were not retrieved with
// the rest of the corpus.
type noise2 struct {
	seed       int64
	octaves    int
	persistence float64
	scale      float64
}

func newNoise2(seed int64, octaves int, persistence, scale float64) *noise2 {
	return &noise2{seed: seed, octaves: octaves, persistence: persistence, scale: scale}
}

func (n *noise2) at(x, z float64) float64 {
	var total, amplitude, freq, max float64
	amplitude = 1
	freq = n.scale
	for o := 0; o < n.octaves; o++ {
		total += lattice2(n.seed+int64(o)*7919, x*freq, z*freq) * amplitude
		max += amplitude
		amplitude *= n.persistence
		freq *= 2
	}
	if max == 0 {
		return 0
	}
	return total / max
}

type noise3 struct {
	seed  int64
	scale float64
}

func newNoise3(seed int64, scale float64) *noise3 {
	return &noise3{seed: seed, scale: scale}
}

func (n *noise3) at(x, y, z float64) float64 {
	return lattice3(n.seed, x*n.scale, y*n.scale, z*n.scale)
}

// lattice2 and lattice3 compute smoothly interpolated value noise over an
// integer lattice whose corners are hashed deterministically from seed.
func lattice2(seed int64, x, z float64) float64 {
	x0, z0 := math.Floor(x), math.Floor(z)
	x1, z1 := x0+1, z0+1
	tx, tz := smooth(x-x0), smooth(z-z0)

	v00 := hashToUnit(seed, int64(x0), int64(z0), 0)
	v10 := hashToUnit(seed, int64(x1), int64(z0), 0)
	v01 := hashToUnit(seed, int64(x0), int64(z1), 0)
	v11 := hashToUnit(seed, int64(x1), int64(z1), 0)

	a := lerp(v00, v10, tx)
	b := lerp(v01, v11, tx)
	return lerp(a, b, tz)
}

func lattice3(seed int64, x, y, z float64) float64 {
	x0, y0, z0 := math.Floor(x), math.Floor(y), math.Floor(z)
	tx, ty, tz := smooth(x-x0), smooth(y-y0), smooth(z-z0)

	c := func(dx, dy, dz int64) float64 {
		return hashToUnit(seed, int64(x0)+dx, int64(y0)+dy, int64(z0)+dz)
	}
	v000, v100 := c(0, 0, 0), c(1, 0, 0)
	v010, v110 := c(0, 1, 0), c(1, 1, 0)
	v001, v101 := c(0, 0, 1), c(1, 0, 1)
	v011, v111 := c(0, 1, 1), c(1, 1, 1)

	x00 := lerp(v000, v100, tx)
	x10 := lerp(v010, v110, tx)
	x01 := lerp(v001, v101, tx)
	x11 := lerp(v011, v111, tx)
	y0i := lerp(x00, x10, ty)
	y1i := lerp(x01, x11, ty)
	return lerp(y0i, y1i, tz)
}

func smooth(t float64) float64 { return t * t * t * (t*(t*6-15) + 10) }

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

// hashToUnit deterministically hashes (seed, x, y, z) to a float64 in
// [-1, 1] using a SplitMix64-style integer hash, giving bit-identical
// results across runs and threads (spec.md §4.B Determinism).
func hashToUnit(seed, x, y, z int64) float64 {
	h := uint64(seed)
	h = mixIn(h, uint64(x))
	h = mixIn(h, uint64(y))
	h = mixIn(h, uint64(z))
	h = splitMix64(h)
	return (float64(h>>11) / float64(1<<53))*2 - 1
}

func mixIn(h, v uint64) uint64 {
	h ^= v
	h *= 0x9E3779B97F4A7C15
	return h
}

func splitMix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	return x ^ (x >> 31)
}
