package building

import "fmt"

// Reason identifies which placement-validation rule rejected a request
// (spec.md §4.E, §7: "PlacementInvalid must include the specific clause
// that failed, for user feedback and for tests").
type Reason uint8

const (
	ReasonUnknown Reason = iota
	ReasonOutOfZone
	ReasonOverlap
	ReasonTerrainClearance
	ReasonNoSnap
	ReasonUnknownType
	ReasonUnknownMaterial
)

func (r Reason) String() string {
	switch r {
	case ReasonOutOfZone:
		return "outside build zone"
	case ReasonOverlap:
		return "overlaps an existing piece"
	case ReasonTerrainClearance:
		return "insufficient terrain clearance"
	case ReasonNoSnap:
		return "no matching snap point"
	case ReasonUnknownType:
		return "unknown piece type"
	case ReasonUnknownMaterial:
		return "unknown material for piece type"
	default:
		return "unknown reason"
	}
}

// InvalidPlacementError is the PlacementInvalid{reason} error kind from
// spec.md §7.
type InvalidPlacementError struct {
	Reason Reason
}

func (e *InvalidPlacementError) Error() string {
	return fmt.Sprintf("building: placement invalid: %s", e.Reason)
}

func invalid(reason Reason) error {
	return &InvalidPlacementError{Reason: reason}
}
