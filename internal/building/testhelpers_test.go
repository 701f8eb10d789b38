package building

import "github.com/google/uuid"

// newTestID returns a deterministic PieceID for test fixtures so
// assertions can compare IDs without relying on uuid.New()'s randomness.
func newTestID(n byte) PieceID {
	var id uuid.UUID
	id[len(id)-1] = n
	return id
}
