package clustering

import "errors"

// ErrInvalidParams marks run parameters that cannot be satisfied.
var ErrInvalidParams = errors.New("invalid clustering parameters")
