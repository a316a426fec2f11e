package worker

import (
	"time"

	"github.com/okian/geocluster/pkg/logger"
)

// Option applies a configuration option to a Pool.
type Option func(*Pool)

// WithWorkerCount sets the number of workers; values below 1 select runtime.NumCPU().
func WithWorkerCount(n int) Option {
	return func(p *Pool) {
		p.workerCount = n
	}
}

// WithJobTimeout bounds how long a single job may run. Zero disables the bound.
func WithJobTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d >= 0 {
			p.jobTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the pool and its workers.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}
