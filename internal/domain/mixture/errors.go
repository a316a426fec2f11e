package mixture

import "errors"

// Sentinel kinds for mixture fitting errors.
var (
	ErrInvalidClusterCount = errors.New("invalid cluster count")
	ErrNoPoints            = errors.New("no points to fit")
	ErrDimensionMismatch   = errors.New("points have inconsistent dimensions")
	// ErrDegenerateComponent marks a component whose responsibility mass collapsed.
	// It is recovered in place by re-seeding and only appears in logs.
	ErrDegenerateComponent = errors.New("degenerate mixture component")
)
