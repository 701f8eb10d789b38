package building

import (
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/go-gl/mathgl/mgl64"
)

// SnapPoint is one live, placed instance of a piece type's SnapPointDef,
// positioned and oriented in world space.
type SnapPoint struct {
	Piece     PieceID
	PieceType string
	Group     uint8
	Accepts   map[string]bool
	Position  mgl64.Vec3
	Direction mgl64.Vec3
}

// SnapIndex is the spatial hash over live snap points (spec.md §3:
// "indexed in a spatial hash keyed by world-space cell, with cell size
// equal to or smaller than the grid cell size"). Keys are xxhash.Sum64 of
// the quantized cell coordinate, grounded on the arena+ID indexing style
// of redstone.Graph — here generalized into a world-wide hash bucket
// rather than a single chunk-local map, since snap points are not
// confined to one chunk.
type SnapIndex struct {
	CellSize float64
	buckets  map[uint64][]SnapPoint
}

// NewSnapIndex returns an empty index. cellSize must be <= the Grid's
// CellSize (spec.md §3).
func NewSnapIndex(cellSize float64) *SnapIndex {
	return &SnapIndex{CellSize: cellSize, buckets: make(map[uint64][]SnapPoint)}
}

func (idx *SnapIndex) quantize(pos mgl64.Vec3) CellPos {
	return CellPos{
		int32(math.Floor(pos[0] / idx.CellSize)),
		int32(math.Floor(pos[1] / idx.CellSize)),
		int32(math.Floor(pos[2] / idx.CellSize)),
	}
}

func (idx *SnapIndex) hashOf(c CellPos) uint64 {
	var buf [12]byte
	putInt32(buf[0:4], c[0])
	putInt32(buf[4:8], c[1])
	putInt32(buf[8:12], c[2])
	return xxhash.Sum64(buf[:])
}

func putInt32(dst []byte, v int32) {
	u := uint32(v)
	dst[0] = byte(u)
	dst[1] = byte(u >> 8)
	dst[2] = byte(u >> 16)
	dst[3] = byte(u >> 24)
}

// Insert adds p's live snap points to the index.
func (idx *SnapIndex) Insert(points []SnapPoint) {
	for _, p := range points {
		key := idx.hashOf(idx.quantize(p.Position))
		idx.buckets[key] = append(idx.buckets[key], p)
	}
}

// RemovePiece drops every snap point belonging to id. Callers pass the
// points that were inserted for id (the index does not maintain a
// reverse piece→point list, matching a spatial hash's bucket-only shape).
func (idx *SnapIndex) RemovePiece(id PieceID, points []SnapPoint) {
	for _, p := range points {
		key := idx.hashOf(idx.quantize(p.Position))
		bucket := idx.buckets[key]
		for i, sp := range bucket {
			if sp.Piece == id {
				bucket = append(bucket[:i], bucket[i+1:]...)
				break
			}
		}
		if len(bucket) == 0 {
			delete(idx.buckets, key)
		} else {
			idx.buckets[key] = bucket
		}
	}
}

// Query returns every indexed snap point within radius of pos, scanning
// every bucket within int(radius/CellSize)+1 cells of pos's own cell on
// each axis (a 5x5x5 block when radius equals CellSize), since a point
// just across a bucket boundary can still be within radius.
func (idx *SnapIndex) Query(pos mgl64.Vec3, radius float64) []SnapPoint {
	centre := idx.quantize(pos)
	span := int32(radius/idx.CellSize) + 1

	var out []SnapPoint
	for dx := -span; dx <= span; dx++ {
		for dy := -span; dy <= span; dy++ {
			for dz := -span; dz <= span; dz++ {
				c := CellPos{centre[0] + dx, centre[1] + dy, centre[2] + dz}
				for _, sp := range idx.buckets[idx.hashOf(c)] {
					if sp.Position.Sub(pos).Len() <= radius {
						out = append(out, sp)
					}
				}
			}
		}
	}
	return out
}
