package service

import (
	"time"

	"github.com/okian/geocluster/internal/domain/mixture"
	"github.com/okian/geocluster/internal/domain/render"
	"github.com/okian/geocluster/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of job workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many request ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithResultCapacity sets how many jobs the job store keeps.
func WithResultCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.resultCapacity = n
		}
	}
}

// WithMaxRecords rejects batches larger than n.
func WithMaxRecords(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRecords = n
		}
	}
}

// WithJobTimeout bounds a single asynchronous job.
func WithJobTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.jobTimeout = d
		}
	}
}

// WithFitterOptions configures the mixture fitter.
func WithFitterOptions(opts ...mixture.Option) Option {
	return func(s *Service) {
		s.fitterOpts = append(s.fitterOpts, opts...)
	}
}

// WithRenderOptions configures the render payload builder.
func WithRenderOptions(opts ...render.Option) Option {
	return func(s *Service) {
		s.renderOpts = append(s.renderOpts, opts...)
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
