// Command inspect_palette is an offline diagnostic: given a save file and
// a section id, it dumps that section's palette and packed-index width
// without booting the rest of the engine.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/voxelforge/bastion/internal/persist"
	"github.com/voxelforge/bastion/internal/voxel"
)

func main() {
	savePath := flag.String("save", "", "path to the world save directory")
	x := flag.Int("x", 0, "chunk column X")
	z := flag.Int("z", 0, "chunk column Z")
	y := flag.Int("y", 0, "section Y index within the column (0-3)")
	flag.Parse()

	if *savePath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect_palette -save <path> -x <x> -z <z> -y <y>")
		os.Exit(2)
	}

	store, err := persist.Open(*savePath)
	if err != nil {
		slog.Error("open save", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	pos := voxel.ColumnPos{int32(*x), int32(*z)}
	col, ok, err := store.LoadColumn(pos)
	if err != nil {
		slog.Error("load column", "column", pos, "error", err)
		os.Exit(1)
	}
	if !ok {
		fmt.Printf("column %s is not persisted (never modified since generation)\n", pos)
		return
	}
	if *y < 0 || *y >= voxel.SectionsPerColumn {
		fmt.Fprintf(os.Stderr, "y must be in [0, %d)\n", voxel.SectionsPerColumn)
		os.Exit(2)
	}

	sec := col.Sections[*y]
	materials := make(map[uint8]int)
	for cx := uint8(0); cx < voxel.SectionHeight; cx++ {
		for cy := uint8(0); cy < voxel.SectionHeight; cy++ {
			for cz := uint8(0); cz < voxel.SectionHeight; cz++ {
				materials[sec.At(cx, cy, cz).Material]++
			}
		}
	}

	fmt.Printf("section %s y=%d: palette size=%d, index width=%d bits, dirty=%v\n",
		pos, *y, sec.PaletteSize(), sec.IndexWidth(), sec.Dirty())
	for m, count := range materials {
		fmt.Printf("  material %3d: %5d cells\n", m, count)
	}
}
