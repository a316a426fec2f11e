package loadgen

import "errors"

// Sentinel errors for load runs.
var (
	ErrUnhealthy        = errors.New("service unhealthy")
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrVerification     = errors.New("verification failed")
	ErrJobFailed        = errors.New("job failed")
)
