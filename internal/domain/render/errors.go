package render

import "errors"

// Sentinel kinds for render geometry errors.
var (
	ErrEmptyPalette   = errors.New("palette has no colors")
	ErrInvalidColor   = errors.New("invalid palette color")
	ErrDuplicateColor = errors.New("duplicate palette color")
	ErrLengthMismatch = errors.New("points and labels differ in length")
)
