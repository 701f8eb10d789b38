package persist

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/voxelforge/bastion/internal/voxel"
)

// FormatVersion is the versioned on-disk header (spec.md §6 Persistence:
// "versioned header"). Bump this whenever encodeColumn/decodeColumn or
// encodePiece/decodePiece change shape.
const FormatVersion uint32 = 1

// Header is the save's versioned header, persisted once per world.
type Header struct {
	Version uint32
	Seed    int64
}

func encodeHeader(h Header) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, h.Version)
	binary.Write(&buf, binary.LittleEndian, h.Seed)
	return buf.Bytes()
}

func decodeHeader(data []byte) (Header, error) {
	if len(data) < 12 {
		return Header{}, fmt.Errorf("persist: header truncated (%d bytes)", len(data))
	}
	r := bytes.NewReader(data)
	var h Header
	binary.Read(r, binary.LittleEndian, &h.Version)
	binary.Read(r, binary.LittleEndian, &h.Seed)
	return h, nil
}

// run is one run of the RLE Y-column stream: length identical cells in a
// row, walking Y from the bottom of the column to the top.
type run struct {
	length   uint16
	material uint8
	density  int16
}

// encodeColumn serializes col as spec.md §6 describes: "a run-length-
// encoded Y-column stream plus per-palette deltas". The palette delta for
// each section is the sorted list of distinct materials it holds, written
// immediately before that section's contribution to the RLE stream — a
// reader can therefore validate a section's palette shape without
// decoding the run list, even though the runs themselves carry raw
// material bytes rather than palette-relative indices.
func encodeColumn(col *voxel.Column) []byte {
	var buf bytes.Buffer
	for _, sec := range col.Sections {
		palette := sectionPalette(sec)
		binary.Write(&buf, binary.LittleEndian, uint16(len(palette)))
		buf.Write(palette)

		runs := rleSection(sec)
		binary.Write(&buf, binary.LittleEndian, uint32(len(runs)))
		for _, r := range runs {
			binary.Write(&buf, binary.LittleEndian, r.length)
			buf.WriteByte(r.material)
			binary.Write(&buf, binary.LittleEndian, r.density)
		}
	}
	return buf.Bytes()
}

// decodeColumn reconstructs a column from encodeColumn's output.
// pos is only used to stamp the resulting Column's Pos field.
func decodeColumn(pos voxel.ColumnPos, data []byte) (*voxel.Column, error) {
	r := bytes.NewReader(data)
	col := &voxel.Column{Pos: pos}

	for y := 0; y < voxel.SectionsPerColumn; y++ {
		var paletteLen uint16
		if err := binary.Read(r, binary.LittleEndian, &paletteLen); err != nil {
			return nil, fmt.Errorf("persist: decode column: palette length: %w", err)
		}
		palette := make([]byte, paletteLen)
		if _, err := r.Read(palette); err != nil {
			return nil, fmt.Errorf("persist: decode column: palette bytes: %w", err)
		}

		var runCount uint32
		if err := binary.Read(r, binary.LittleEndian, &runCount); err != nil {
			return nil, fmt.Errorf("persist: decode column: run count: %w", err)
		}

		cells := make([]voxel.Cell, 0, voxel.SectionHeight*voxel.SectionHeight*voxel.SectionHeight)
		for i := uint32(0); i < runCount; i++ {
			var rn run
			if err := binary.Read(r, binary.LittleEndian, &rn.length); err != nil {
				return nil, fmt.Errorf("persist: decode column: run length: %w", err)
			}
			mat, err := r.ReadByte()
			if err != nil {
				return nil, fmt.Errorf("persist: decode column: run material: %w", err)
			}
			rn.material = mat
			if err := binary.Read(r, binary.LittleEndian, &rn.density); err != nil {
				return nil, fmt.Errorf("persist: decode column: run density: %w", err)
			}
			for n := uint16(0); n < rn.length; n++ {
				cells = append(cells, voxel.Cell{Material: rn.material, Density: rn.density})
			}
		}
		col.Sections[y] = sectionFromCells(cells)
	}
	return col, nil
}

// sectionPalette returns the sorted, deduplicated set of materials sec
// currently holds, sampled by walking every one of its cells, constant
// sections included.
func sectionPalette(sec *voxel.Section) []byte {
	seen := make(map[uint8]bool)
	for x := uint8(0); x < voxel.SectionHeight; x++ {
		for y := uint8(0); y < voxel.SectionHeight; y++ {
			for z := uint8(0); z < voxel.SectionHeight; z++ {
				seen[sec.At(x, y, z).Material] = true
			}
		}
	}
	out := make([]byte, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// rleSection walks sec Y-major (matching a Y-column stream: X and Z outer,
// Y inner) and collapses consecutive identical cells into runs.
func rleSection(sec *voxel.Section) []run {
	var runs []run
	for x := uint8(0); x < voxel.SectionHeight; x++ {
		for z := uint8(0); z < voxel.SectionHeight; z++ {
			var cur run
			has := false
			for y := uint8(0); y < voxel.SectionHeight; y++ {
				c := sec.At(x, y, z)
				if has && cur.material == c.Material && cur.density == c.Density && cur.length < 65535 {
					cur.length++
					continue
				}
				if has {
					runs = append(runs, cur)
				}
				cur = run{length: 1, material: c.Material, density: c.Density}
				has = true
			}
			if has {
				runs = append(runs, cur)
			}
		}
	}
	return runs
}

// sectionFromCells rebuilds a Section from a flat, X-outer/Z-middle/Y-inner
// cell list of exactly SectionHeight^3 entries, the inverse of rleSection's
// walk order.
func sectionFromCells(cells []voxel.Cell) *voxel.Section {
	if len(cells) == 0 {
		return voxel.NewSection(voxel.Air.Material, voxel.Air.Density)
	}
	sec := voxel.NewSection(cells[0].Material, cells[0].Density)
	i := 0
	for x := uint8(0); x < voxel.SectionHeight; x++ {
		for z := uint8(0); z < voxel.SectionHeight; z++ {
			for y := uint8(0); y < voxel.SectionHeight; y++ {
				sec.Set(x, y, z, cells[i])
				i++
			}
		}
	}
	return sec
}
