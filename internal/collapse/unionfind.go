package collapse

import "github.com/brentp/intintmap"

// unionFind is a union-find over dense local indices (0..n-1), backed by
// an open-addressed int64 map rather than a plain Go slice/map, matching
// the engine's general preference for intintmap on hot per-tick lookups
// (the same tradeoff internal/voxel makes for its palette lookup). A
// local index absent from parent is its own root.
type unionFind struct {
	parent *intintmap.Map
}

func newUnionFind(n int) *unionFind {
	return &unionFind{parent: intintmap.New(n+1, 0.6)}
}

func (u *unionFind) find(x int64) int64 {
	p, ok := u.parent.Get(x)
	if !ok || p == x {
		return x
	}
	root := u.find(p)
	u.parent.Put(x, root)
	return root
}

func (u *unionFind) union(a, b int64) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent.Put(ra, rb)
	}
}
