package model

import "errors"

// Sentinel kinds shared by the service and its transports.
var (
	ErrTooManyRecords = errors.New("too many records")
	ErrBackpressure   = errors.New("backpressure")
	ErrJobNotFound    = errors.New("job not found")
	ErrUnavailable    = errors.New("service unavailable")
)
