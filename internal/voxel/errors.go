package voxel

import "errors"

// Kind identifies the category of a voxel-store failure, following the
// design-level taxonomy of spec.md §7.
type Kind uint8

const (
	KindNone Kind = iota
	// KindNotLoaded indicates a read targeted a section that has not been
	// loaded (or generated) yet.
	KindNotLoaded
	// KindInputIncomplete indicates a padded-view read could not source
	// all six neighbours.
	KindInputIncomplete
)

// ErrNotLoaded is returned by Read and ReadPaddedSection when the targeted
// section has not been loaded.
var ErrNotLoaded = errors.New("voxel: section not loaded")

// ErrInputIncomplete is returned by ReadPaddedSection when one or more of the
// six neighbouring sections needed to build the padded view are missing.
var ErrInputIncomplete = errors.New("voxel: padded view input incomplete")

// KindOf classifies err against the taxonomy above, returning KindNone for
// any error (including nil) that isn't one of the two sentinels.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrNotLoaded):
		return KindNotLoaded
	case errors.Is(err, ErrInputIncomplete):
		return KindInputIncomplete
	default:
		return KindNone
	}
}
