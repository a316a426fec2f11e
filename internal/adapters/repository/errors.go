package repository

import "errors"

// Sentinel kinds for job store errors.
var (
	ErrNotFound      = errors.New("job not found")
	ErrExists        = errors.New("job already exists")
	ErrFull          = errors.New("job store full of unfinished jobs")
	ErrInvalidLimit  = errors.New("invalid list limit")
	ErrInvalidStatus = errors.New("invalid job state transition")
)
