package mesh

// Option configures a single Extract call.
type Option func(*config)

type config struct {
	skirt bool
	ao    bool
}

func defaultConfig() config {
	return config{skirt: false, ao: true}
}

// WithSkirt enables the supplemented chunk-border skirt: a thin vertical
// curtain of extra triangles dropped skirtDepth (half a cell) below every
// mesh edge that lies on one of the section's four vertical boundary
// faces, grounded on original_source/src/voxel/skirt.rs. It hides the rare
// sub-pixel crack that LOD or floating-point rounding can otherwise expose
// at chunk seams, appending geometry without changing the existing
// triangles.
func WithSkirt(enabled bool) Option {
	return func(c *config) { c.skirt = enabled }
}

// WithAO toggles the supplemented baked ambient-occlusion scalar packed
// into UV.y, grounded on original_source/src/voxel/baked_ao.rs. Enabled
// by default.
func WithAO(enabled bool) Option {
	return func(c *config) { c.ao = enabled }
}
