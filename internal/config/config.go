// Package config loads the engine's TOML configuration file (spec.md §6
// Configuration), following the load-or-create pattern of the teacher's
// server/whitelist.go: read the file if present, write a file populated
// with defaults if not, and keep the in-memory copy authoritative once
// loaded.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml"
)

// MaterialTier is one entry of the material-tier and loss table (spec.md
// §6: "material-tier and material-loss tables"). Tier resolves the §9
// Open Question ordering (thatch < wood < hardwood < stone < metal, see
// DESIGN.md); MaxSupport/MinSupport/VerticalLoss/HorizontalLoss feed
// internal/building.MaterialDefinition directly.
type MaterialTier struct {
	Material       string  `toml:"material"`
	Tier           int     `toml:"tier"`
	MaxSupport     float64 `toml:"max_support"`
	MinSupport     float64 `toml:"min_support"`
	VerticalLoss   float64 `toml:"vertical_loss"`
	HorizontalLoss float64 `toml:"horizontal_loss"`
}

// Config is every option spec.md §6 recognizes.
type Config struct {
	Seed int64 `toml:"seed"`

	CellSize            float64 `toml:"cell_size"`
	SnapRadius          float64 `toml:"snap_radius"`
	WaterLevel          int32   `toml:"water_level"`
	ColliderDebounceMS  int     `toml:"collider_debounce_ms"`
	BudgetPiecesPerTick int     `toml:"budget_pieces_per_tick"`

	MaxSimultaneousDynamicPieces int     `toml:"max_simultaneous_dynamic_pieces"`
	DecayRate                    float64 `toml:"decay_rate"`
	LODDistance                  float64 `toml:"lod_distance"`
	UnloadDistance               float64 `toml:"unload_distance"`
	DespawnDistance              float64 `toml:"despawn_distance"`

	GenerateWorkers int `toml:"generate_workers"`
	MeshWorkers     int `toml:"mesh_workers"`

	Materials []MaterialTier `toml:"materials"`
}

// Default returns the recognized options at the values spec.md §6 states
// (CELL_SIZE 2.0, SNAP_RADIUS 0.5, WATER_LEVEL 32, COLLIDER_DEBOUNCE_MS in
// 50-100, BUDGET_PIECES_PER_TICK 50, MAX_SIMULTANEOUS_DYNAMIC_PIECES 50)
// plus the material-tier table DESIGN.md resolves the Open Question with.
func Default() Config {
	return Config{
		CellSize:                     2.0,
		SnapRadius:                   0.5,
		WaterLevel:                   32,
		ColliderDebounceMS:           75,
		BudgetPiecesPerTick:          50,
		MaxSimultaneousDynamicPieces: 50,
		DecayRate:                    10,
		LODDistance:                  128,
		UnloadDistance:               256,
		DespawnDistance:              200,
		GenerateWorkers:              4,
		MeshWorkers:                  4,
		Materials: []MaterialTier{
			{Material: "thatch", Tier: 0, MaxSupport: 40, MinSupport: 8, VerticalLoss: 0.35, HorizontalLoss: 0.55},
			{Material: "wood", Tier: 1, MaxSupport: 100, MinSupport: 15, VerticalLoss: 0.11, HorizontalLoss: 0.40},
			{Material: "hardwood", Tier: 2, MaxSupport: 150, MinSupport: 20, VerticalLoss: 0.15, HorizontalLoss: 0.35},
			{Material: "stone", Tier: 3, MaxSupport: 300, MinSupport: 40, VerticalLoss: 0.08, HorizontalLoss: 0.22},
			{Material: "metal", Tier: 4, MaxSupport: 500, MinSupport: 60, VerticalLoss: 0.04, HorizontalLoss: 0.12},
		},
	}
}

// Load reads the config file at path, creating it populated with Default
// values if it does not exist yet.
func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := Default()
			return cfg, save(path, cfg)
		}
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}

func save(path string, cfg Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0777); err != nil {
			return fmt.Errorf("config: create directory: %w", err)
		}
	}
	encoded, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.WriteFile(path, encoded, 0644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
