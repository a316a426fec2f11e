package mixture

import "github.com/okian/geocluster/pkg/logger"

// Option applies a configuration option to the Fitter.
type Option func(*Fitter)

// WithMaxIterations caps the number of EM iterations.
func WithMaxIterations(n int) Option {
	return func(f *Fitter) {
		if n > 0 {
			f.maxIterations = n
		}
	}
}

// WithTolerance sets the log-likelihood improvement below which EM stops.
func WithTolerance(tol float64) Option {
	return func(f *Fitter) {
		if tol > 0 {
			f.tolerance = tol
		}
	}
}

// WithSeed sets the seed of the k-means++ random source.
func WithSeed(seed int64) Option {
	return func(f *Fitter) {
		f.seed = seed
	}
}

// WithRegularization sets the multiple of the identity added to every covariance.
func WithRegularization(reg float64) Option {
	return func(f *Fitter) {
		if reg > 0 {
			f.regularization = reg
		}
	}
}

// WithWorkers sets how many goroutines evaluate E-step chunks. Values below 2
// keep the E-step on the calling goroutine.
func WithWorkers(n int) Option {
	return func(f *Fitter) {
		if n > 0 {
			f.workers = n
		}
	}
}

// WithChunkSize sets the number of points per E-step chunk.
func WithChunkSize(n int) Option {
	return func(f *Fitter) {
		if n > 0 {
			f.chunkSize = n
		}
	}
}

// WithLogger sets the logger used for convergence and degeneracy diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(f *Fitter) {
		if l != nil {
			f.logger = l
		}
	}
}
