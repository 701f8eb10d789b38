package persist

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/voxelforge/bastion/internal/building"
)

// PieceRecord is the on-disk tuple spec.md §6 specifies for a placed
// piece: "(piece_type, material, position, rotation, stability,
// connected_to[])". ConnectedTo is the piece's ISupport list (the pieces
// it supports) — the half of the support graph a reload restores
// directly; internal/engine's bootstrapSave rebuilds the SupportsMe half
// in a second pass over the restored pieces.
type PieceRecord struct {
	ID          building.PieceID
	Type        string
	Material    string
	Position    [3]int32
	Rotation    uint8
	Stability   float64
	ConnectedTo []building.PieceID
}

func encodePiece(r PieceRecord) []byte {
	var buf bytes.Buffer
	buf.Write(r.ID[:])
	writeString(&buf, r.Type)
	writeString(&buf, r.Material)
	binary.Write(&buf, binary.LittleEndian, r.Position)
	buf.WriteByte(r.Rotation)
	binary.Write(&buf, binary.LittleEndian, r.Stability)
	binary.Write(&buf, binary.LittleEndian, uint32(len(r.ConnectedTo)))
	for _, id := range r.ConnectedTo {
		buf.Write(id[:])
	}
	return buf.Bytes()
}

func decodePiece(data []byte) (PieceRecord, error) {
	r := bytes.NewReader(data)
	var rec PieceRecord

	if _, err := readFull(r, rec.ID[:]); err != nil {
		return PieceRecord{}, fmt.Errorf("persist: decode piece: id: %w", err)
	}
	var err error
	if rec.Type, err = readString(r); err != nil {
		return PieceRecord{}, fmt.Errorf("persist: decode piece: type: %w", err)
	}
	if rec.Material, err = readString(r); err != nil {
		return PieceRecord{}, fmt.Errorf("persist: decode piece: material: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &rec.Position); err != nil {
		return PieceRecord{}, fmt.Errorf("persist: decode piece: position: %w", err)
	}
	rotation, err := r.ReadByte()
	if err != nil {
		return PieceRecord{}, fmt.Errorf("persist: decode piece: rotation: %w", err)
	}
	rec.Rotation = rotation
	if err := binary.Read(r, binary.LittleEndian, &rec.Stability); err != nil {
		return PieceRecord{}, fmt.Errorf("persist: decode piece: stability: %w", err)
	}
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return PieceRecord{}, fmt.Errorf("persist: decode piece: connected_to length: %w", err)
	}
	rec.ConnectedTo = make([]building.PieceID, n)
	for i := range rec.ConnectedTo {
		if _, err := readFull(r, rec.ConnectedTo[i][:]); err != nil {
			return PieceRecord{}, fmt.Errorf("persist: decode piece: connected_to[%d]: %w", i, err)
		}
	}
	return rec, nil
}

// PieceFromGrid builds the persisted tuple for a live piece.
func PieceFromGrid(p building.Piece) PieceRecord {
	return PieceRecord{
		ID:          p.ID,
		Type:        p.Type,
		Material:    p.Material,
		Position:    p.GridPos,
		Rotation:    p.Rotation,
		Stability:   p.Stability,
		ConnectedTo: append([]building.PieceID(nil), p.ISupport...),
	}
}

func writeString(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.LittleEndian, uint16(len(s)))
	buf.WriteString(s)
}

func readString(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := readFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func readFull(r *bytes.Reader, b []byte) (int, error) {
	total := 0
	for total < len(b) {
		n, err := r.Read(b[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
