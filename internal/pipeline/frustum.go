package pipeline

import "github.com/go-gl/mathgl/mgl64"

// Plane is a half-space ax+by+cz+d>=0, with Normal already normalized.
type Plane struct {
	Normal mgl64.Vec3
	D      float64
}

func (p Plane) distance(point mgl64.Vec3) float64 {
	return p.Normal.Dot(point) + p.D
}

// Frustum is the view frustum the Chunk Pipeline culls sections against
// in step 4 of the per-tick ordering (spec.md §4.D).
type Frustum struct {
	Planes [6]Plane
}

// FrustumFromViewProjection extracts the six frustum planes from a
// combined view-projection matrix using the standard Gribb-Hartmann
// method. mathgl's Mat4 is stored column-major, so row i is
// (m[i], m[i+4], m[i+8], m[i+12]).
func FrustumFromViewProjection(vp mgl64.Mat4) *Frustum {
	row := func(i int) mgl64.Vec4 {
		return mgl64.Vec4{vp[i], vp[i+4], vp[i+8], vp[i+12]}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	combine := func(a, b mgl64.Vec4, sign float64) Plane {
		v := a.Add(b.Mul(sign))
		n := mgl64.Vec3{v[0], v[1], v[2]}
		length := n.Len()
		if length == 0 {
			return Plane{Normal: mgl64.Vec3{0, 1, 0}, D: 0}
		}
		return Plane{Normal: n.Mul(1 / length), D: v[3] / length}
	}

	return &Frustum{Planes: [6]Plane{
		combine(r3, r0, 1),  // left
		combine(r3, r0, -1), // right
		combine(r3, r1, 1),  // bottom
		combine(r3, r1, -1), // top
		combine(r3, r2, 1),  // near
		combine(r3, r2, -1), // far
	}}
}

// Intersects reports whether the sphere at centre with the given radius is
// at least partially inside the frustum. A nil Frustum always intersects,
// so callers with no active viewer see every section.
func (f *Frustum) Intersects(centre mgl64.Vec3, radius float64) bool {
	if f == nil {
		return true
	}
	for _, p := range f.Planes {
		if p.distance(centre) < -radius {
			return false
		}
	}
	return true
}
