package record

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for record handling. These allow errors.Is/As from callers.
var (
	ErrSchema     = errors.New("schema error")
	ErrCoordinate = errors.New("coordinate error")
	ErrEmpty      = errors.New("empty record set")
)

// CoordinateError reports the first row whose latitude or longitude is not a
// finite number. It unwraps to ErrCoordinate.
type CoordinateError struct {
	Row   int
	Field string
	Value any
}

func (e *CoordinateError) Error() string {
	return fmt.Sprintf("invalid coordinates found: row %d field %q value %v", e.Row, e.Field, e.Value)
}

// Unwrap exposes the sentinel kind.
func (e *CoordinateError) Unwrap() error { return ErrCoordinate }
