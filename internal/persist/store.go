// Package persist implements the on-disk save format from spec.md §6
// Persistence: a versioned header, a run-length-encoded Y-column stream
// per modified chunk, and a tuple per placed piece. It is backed by
// goleveldb, following server/world/world.go's StoreColumn/saveChunk
// pattern generalized from Minecraft's column format to this engine's
// section layout. Unmodified chunks are never written — spec.md requires
// they regenerate deterministically from (section_id, seed) instead.
package persist

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/df-mc/goleveldb/leveldb"
	"github.com/df-mc/goleveldb/leveldb/opt"

	"github.com/voxelforge/bastion/internal/building"
	"github.com/voxelforge/bastion/internal/voxel"
)

// ErrCorrupt reports a read failure against a record that should have
// decoded cleanly (spec.md §7 Kind::Corrupt): "fatal for the affected
// save and must not corrupt live in-memory state; the remainder of the
// world continues."
var ErrCorrupt = errors.New("persist: corrupt record")

const (
	headerKey = "header"
	columnPfx = "col/"
	piecePfx  = "piece/"
)

// Store is the leveldb-backed save file.
type Store struct {
	db *leveldb.DB
}

// Open opens (creating if absent) the leveldb database at path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, fmt.Errorf("persist: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// WriteHeader persists the save's version and world seed. Called once,
// the first time a new save is created.
func (s *Store) WriteHeader(h Header) error {
	return s.db.Put([]byte(headerKey), encodeHeader(h), nil)
}

// ReadHeader reads the save's header. ok is false for a save that has
// never had WriteHeader called (a brand-new world).
func (s *Store) ReadHeader() (h Header, ok bool, err error) {
	data, err := s.db.Get([]byte(headerKey), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return Header{}, false, nil
	}
	if err != nil {
		return Header{}, false, fmt.Errorf("persist: read header: %w", err)
	}
	h, err = decodeHeader(data)
	if err != nil {
		return Header{}, false, fmt.Errorf("%w: header: %v", ErrCorrupt, err)
	}
	return h, true, nil
}

func columnKey(pos voxel.ColumnPos) []byte {
	buf := make([]byte, len(columnPfx)+8)
	copy(buf, columnPfx)
	binary.LittleEndian.PutUint32(buf[len(columnPfx):], uint32(pos[0]))
	binary.LittleEndian.PutUint32(buf[len(columnPfx)+4:], uint32(pos[1]))
	return buf
}

// SaveColumn persists col. Callers are expected to call this only for
// columns with at least one modified section (spec.md §6: "Unmodified
// chunks are never persisted").
func (s *Store) SaveColumn(col *voxel.Column) error {
	if err := s.db.Put(columnKey(col.Pos), encodeColumn(col), nil); err != nil {
		return fmt.Errorf("persist: save column %s: %w", col.Pos, err)
	}
	return nil
}

// LoadColumn reads back a previously saved column. ok is false if pos was
// never saved (the caller should regenerate it from the seed instead).
func (s *Store) LoadColumn(pos voxel.ColumnPos) (col *voxel.Column, ok bool, err error) {
	data, err := s.db.Get(columnKey(pos), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("persist: load column %s: %w", pos, err)
	}
	col, err = decodeColumn(pos, data)
	if err != nil {
		return nil, false, fmt.Errorf("%w: column %s: %v", ErrCorrupt, pos, err)
	}
	return col, true, nil
}

func pieceKey(id building.PieceID) []byte {
	buf := make([]byte, len(piecePfx)+len(id))
	copy(buf, piecePfx)
	copy(buf[len(piecePfx):], id[:])
	return buf
}

// SavePiece persists a single placed piece's tuple.
func (s *Store) SavePiece(rec PieceRecord) error {
	if err := s.db.Put(pieceKey(rec.ID), encodePiece(rec), nil); err != nil {
		return fmt.Errorf("persist: save piece %s: %w", rec.ID, err)
	}
	return nil
}

// DeletePiece removes a piece's persisted record, e.g. after destruction
// or collapse despawn.
func (s *Store) DeletePiece(id building.PieceID) error {
	if err := s.db.Delete(pieceKey(id), nil); err != nil {
		return fmt.Errorf("persist: delete piece %s: %w", id, err)
	}
	return nil
}

// LoadAllPieces returns every persisted piece tuple, for rebuilding the
// Building Grid on world load.
func (s *Store) LoadAllPieces() ([]PieceRecord, error) {
	iter := s.db.NewIterator(nil, nil)
	defer iter.Release()

	var out []PieceRecord
	prefix := []byte(piecePfx)
	for iter.Next() {
		key := iter.Key()
		if len(key) < len(prefix) || string(key[:len(prefix)]) != piecePfx {
			continue
		}
		rec, err := decodePiece(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("%w: piece at key %x: %v", ErrCorrupt, key, err)
		}
		out = append(out, rec)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("persist: iterate pieces: %w", err)
	}
	return out, nil
}
