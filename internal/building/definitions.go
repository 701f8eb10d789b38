package building

import "github.com/go-gl/mathgl/mgl64"

// SnapPointDef is one of a piece type's advertised local snap points
// (spec.md §3 Snap-point record).
type SnapPointDef struct {
	LocalOffset mgl64.Vec3
	Direction   mgl64.Vec3
	Group       uint8
	// Accepts is the set of piece-type identifiers this snap point will
	// pair with. A nil/empty set accepts every type.
	Accepts map[string]bool
}

// PieceDefinition is the plain data-table entry spec.md §9 Design Notes
// prescribes in place of inheritance: "piece-type → PieceDefinition
// {dimensions, snap_points, material_options, base_stability, …}".
type PieceDefinition struct {
	Type            string
	Dimensions      [3]int32 // footprint in grid cells, at rotation 0
	SnapPoints      []SnapPointDef
	MaterialOptions []string
	BaseStability   float64
	// FreePlacement lets this piece type satisfy validation rule 4
	// without a matched snap pair (e.g. ground-anchored foundations).
	FreePlacement bool
}

// MaterialDefinition is the material half of the same table (spec.md §4.F
// Model): max/min support and the two loss factors, plus a tier used by
// the hierarchy-reset rule.
type MaterialDefinition struct {
	Material       string
	Tier           int
	MaxSupport     float64
	MinSupport     float64
	VerticalLoss   float64
	HorizontalLoss float64
}

// DefinitionTable holds the piece-type and material tables the engine is
// configured with. A zero DefinitionTable is usable but empty; use
// DefaultDefinitions for the built-in catalog.
type DefinitionTable struct {
	Pieces    map[string]PieceDefinition
	Materials map[string]MaterialDefinition
}

func NewDefinitionTable() *DefinitionTable {
	return &DefinitionTable{
		Pieces:    make(map[string]PieceDefinition),
		Materials: make(map[string]MaterialDefinition),
	}
}

func (t *DefinitionTable) AddPiece(def PieceDefinition) {
	t.Pieces[def.Type] = def
}

func (t *DefinitionTable) AddMaterial(def MaterialDefinition) {
	t.Materials[def.Material] = def
}

// DefaultDefinitions resolves spec.md §9's open material-tier question
// (thatch/wood/hardwood/stone/metal ordering is repository-inconsistent)
// with the ordering thatch < wood < hardwood < stone < metal, and seeds a
// small starter catalog of foundation/wall/beam piece types. Callers are
// expected to load their own catalog from data files (per the Design
// Notes' "loaded at startup from data files") and these are a reasonable
// default when none is supplied.
func DefaultDefinitions() *DefinitionTable {
	t := NewDefinitionTable()

	t.AddMaterial(MaterialDefinition{Material: "thatch", Tier: 0, MaxSupport: 40, MinSupport: 8, VerticalLoss: 0.35, HorizontalLoss: 0.55})
	t.AddMaterial(MaterialDefinition{Material: "wood", Tier: 1, MaxSupport: 100, MinSupport: 15, VerticalLoss: 0.11, HorizontalLoss: 0.40})
	t.AddMaterial(MaterialDefinition{Material: "hardwood", Tier: 2, MaxSupport: 150, MinSupport: 20, VerticalLoss: 0.15, HorizontalLoss: 0.35})
	t.AddMaterial(MaterialDefinition{Material: "stone", Tier: 3, MaxSupport: 300, MinSupport: 40, VerticalLoss: 0.08, HorizontalLoss: 0.22})
	t.AddMaterial(MaterialDefinition{Material: "metal", Tier: 4, MaxSupport: 500, MinSupport: 60, VerticalLoss: 0.04, HorizontalLoss: 0.12})

	up := mgl64.Vec3{0, 1, 0}
	down := mgl64.Vec3{0, -1, 0}
	west := mgl64.Vec3{-1, 0, 0}
	east := mgl64.Vec3{1, 0, 0}

	t.AddPiece(PieceDefinition{
		Type:            "foundation",
		Dimensions:      [3]int32{1, 1, 1},
		MaterialOptions: []string{"wood", "hardwood", "stone", "metal"},
		BaseStability:   0,
		FreePlacement:   true,
		SnapPoints: []SnapPointDef{
			{LocalOffset: mgl64.Vec3{0.5, 1, 0.5}, Direction: up, Group: 0},
		},
	})
	t.AddPiece(PieceDefinition{
		Type:            "wall",
		Dimensions:      [3]int32{1, 1, 1},
		MaterialOptions: []string{"thatch", "wood", "hardwood", "stone", "metal"},
		BaseStability:   0,
		SnapPoints: []SnapPointDef{
			{LocalOffset: mgl64.Vec3{0.5, 0, 0.5}, Direction: down, Group: 0},
			{LocalOffset: mgl64.Vec3{0.5, 1, 0.5}, Direction: up, Group: 0},
		},
	})
	t.AddPiece(PieceDefinition{
		Type:            "beam",
		Dimensions:      [3]int32{1, 1, 1},
		MaterialOptions: []string{"wood", "hardwood", "stone", "metal"},
		BaseStability:   0,
		SnapPoints: []SnapPointDef{
			{LocalOffset: mgl64.Vec3{0, 0.5, 0.5}, Direction: west, Group: 1},
			{LocalOffset: mgl64.Vec3{1, 0.5, 0.5}, Direction: east, Group: 1},
		},
	})
	return t
}
