package voxel

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// dirtySet is a set of SectionID, keyed by a 64-bit hash of the id rather
// than the id struct itself. Hashing first avoids the three-field struct
// comparison Go's builtin map would otherwise do on every insert during a
// write burst (e.g. a world-gen pass touching thousands of sections).
type dirtySet struct {
	entries map[uint64]SectionID
}

func newDirtySet() *dirtySet {
	return &dirtySet{entries: make(map[uint64]SectionID)}
}

func hashSectionID(id SectionID) uint64 {
	var buf [12]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(id.Column[0]))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(id.Column[1]))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(id.Y))
	return xxhash.Sum64(buf[:])
}

func (d *dirtySet) add(id SectionID) {
	d.entries[hashSectionID(id)] = id
}

// drain empties the set and returns every id it held, in no particular
// order (callers that need determinism sort the result themselves).
func (d *dirtySet) drain() []SectionID {
	if len(d.entries) == 0 {
		return nil
	}
	out := make([]SectionID, 0, len(d.entries))
	for _, id := range d.entries {
		out = append(out, id)
	}
	d.entries = make(map[uint64]SectionID)
	return out
}
