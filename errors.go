package nucleation

import "errors"

// Sentinel errors for the core model. Callers match them with errors.Is;
// wrapped messages carry the offending field, region or coordinate.
var (
	// ErrBlockStateParse is returned for block-state string grammar violations.
	ErrBlockStateParse = errors.New("bad block state")

	// ErrBitsTooWide is returned when a packed index width exceeds 32 bits.
	ErrBitsTooWide = errors.New("bits per entry too wide")

	// ErrBitPackUnderflow is returned when a packed long array is too short
	// for the requested index count.
	ErrBitPackUnderflow = errors.New("packed long array too short")
)
