// Package mixture fits full-covariance Gaussian mixture models with
// Expectation-Maximization seeded by k-means++.
package mixture

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/okian/geocluster/pkg/logger"
)

// Default fitting configuration constants.
const (
	DefaultMaxIterations  = 100
	DefaultTolerance      = 1e-6
	DefaultSeed           = 42
	DefaultRegularization = 1e-6
	defaultChunkSize      = 4096
	// collapseMass is the responsibility mass below which a component is re-seeded.
	collapseMass = 1e-10
)

// Fitter runs EM over a point set.
type Fitter struct {
	maxIterations  int
	tolerance      float64
	seed           int64
	regularization float64
	workers        int
	chunkSize      int
	logger         logger.Logger
}

// NewFitter creates a Fitter with configuration options.
func NewFitter(opts ...Option) *Fitter {
	f := &Fitter{
		maxIterations:  DefaultMaxIterations,
		tolerance:      DefaultTolerance,
		seed:           DefaultSeed,
		regularization: DefaultRegularization,
		workers:        1,
		chunkSize:      defaultChunkSize,
		logger:         logger.Nop(),
	}

	// Apply all options
	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Seed returns k-means++ initial means using the fitter's seed.
func (f *Fitter) Seed(points [][]float64, k int) ([][]float64, error) {
	rng := rand.New(rand.NewSource(f.seed)) //nolint:gosec // deterministic seed for reproducible clustering
	return SeedPlusPlus(points, k, rng)
}

// Fit seeds k means with k-means++ and runs EM from them.
func (f *Fitter) Fit(ctx context.Context, points [][]float64, k int) (*Model, error) {
	if err := checkPoints(points); err != nil {
		return nil, err
	}
	means, err := f.Seed(points, k)
	if err != nil {
		return nil, err
	}
	return f.FitFrom(ctx, points, means)
}

// FitFrom runs EM starting from the given means. Reaching the iteration cap is
// not an error: the last model is returned with Converged=false.
func (f *Fitter) FitFrom(ctx context.Context, points [][]float64, means [][]float64) (*Model, error) {
	if err := checkPoints(points); err != nil {
		return nil, err
	}
	k := len(means)
	if k < 1 || k > len(points) {
		return nil, fmt.Errorf("%w: k=%d with %d points", ErrInvalidClusterCount, k, len(points))
	}

	initCov := f.initialCovariance(points)
	m := &Model{
		Means:          make([][]float64, k),
		Covariances:    make([]*mat.SymDense, k),
		Weights:        make([]float64, k),
		regularization: f.regularization,
	}
	for j := range means {
		m.Means[j] = clonePoint(means[j])
		m.Covariances[j] = mat.NewSymDense(initCov.SymmetricDim(), nil)
		m.Covariances[j].CopySym(initCov)
		m.Weights[j] = 1 / float64(k)
	}
	if err := m.prepare(); err != nil {
		return nil, err
	}

	resp := make([][]float64, len(points))
	for i := range resp {
		resp[i] = make([]float64, k)
	}

	prev := f.expectation(points, m, resp)
	ll := prev
	for iter := 1; iter <= f.maxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("mixture fit stopped after %d iterations: %w", iter-1, err)
		}
		reseeded := f.maximization(ctx, points, resp, m, initCov)
		if err := m.prepare(); err != nil {
			return nil, err
		}
		ll = f.expectation(points, m, resp)
		m.Iterations = iter

		if reseeded > 0 {
			// the likelihood jump after a re-seed says nothing about convergence
			m.Reseeds += reseeded
			prev = ll
			continue
		}
		if ll-prev < f.tolerance {
			m.Converged = true
			break
		}
		prev = ll
	}
	m.LogLikelihood = ll

	f.logger.Debug(ctx, "mixture fitted",
		logger.Int("k", k),
		logger.Int("points", len(points)),
		logger.Int("iterations", m.Iterations),
		logger.Bool("converged", m.Converged),
		logger.Int("reseeds", m.Reseeds),
		logger.Float64("logLikelihood", ll),
	)
	return m, nil
}

// initialCovariance returns the identity scaled by the mean per-axis variance
// of the whole point set, or the identity when that variance is not positive.
func (f *Fitter) initialCovariance(points [][]float64) *mat.SymDense {
	d := len(points[0])
	variance := 0.0
	if len(points) > 1 {
		col := make([]float64, len(points))
		for a := 0; a < d; a++ {
			for i, p := range points {
				col[i] = p[a]
			}
			variance += stat.Variance(col, nil)
		}
		variance /= float64(d)
	}
	if !(variance > 0) || math.IsInf(variance, 0) {
		variance = 1
	}
	cov := mat.NewSymDense(d, nil)
	for a := 0; a < d; a++ {
		cov.SetSym(a, a, variance)
	}
	return cov
}

// expectation fills resp with posterior responsibilities and returns the total
// log-likelihood. Points are split into fixed chunks; each chunk owns its rows
// and its partial sum, and partials are added in chunk order after the barrier,
// so the result does not depend on scheduling.
func (f *Fitter) expectation(points [][]float64, m *Model, resp [][]float64) float64 {
	n := len(points)
	chunks := (n + f.chunkSize - 1) / f.chunkSize
	partial := make([]float64, chunks)

	run := func(c int) {
		lo := c * f.chunkSize
		hi := min(lo+f.chunkSize, n)
		partial[c] = estimateChunk(points[lo:hi], resp[lo:hi], m)
	}

	if f.workers < 2 || chunks < 2 {
		for c := 0; c < chunks; c++ {
			run(c)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(f.workers)
		for c := 0; c < chunks; c++ {
			g.Go(func() error {
				run(c)
				return nil
			})
		}
		_ = g.Wait()
	}

	var ll float64
	for _, p := range partial {
		ll += p
	}
	return ll
}

func estimateChunk(points [][]float64, resp [][]float64, m *Model) float64 {
	logp := make([]float64, m.K())
	var ll float64
	for i, x := range points {
		m.logJoint(x, logp)
		lse := floats.LogSumExp(logp)
		if math.IsInf(lse, -1) || math.IsNaN(lse) {
			for j := range resp[i] {
				resp[i][j] = 1 / float64(len(resp[i]))
			}
			continue
		}
		for j, v := range logp {
			resp[i][j] = math.Exp(v - lse)
		}
		ll += lse
	}
	return ll
}

// maximization re-estimates weights, means and covariances from resp. It
// returns how many collapsed components were re-seeded.
func (f *Fitter) maximization(ctx context.Context, points [][]float64, resp [][]float64, m *Model, initCov *mat.SymDense) int {
	n := len(points)
	k := m.K()
	d := len(points[0])

	mass := make([]float64, k)
	for i := range resp {
		for j, r := range resp[i] {
			mass[j] += r
		}
	}

	reseeded := 0
	diff := make([]float64, d)
	for j := 0; j < k; j++ {
		if mass[j] < collapseMass {
			idx := farthestPoint(points, m.Means, j)
			m.Means[j] = clonePoint(points[idx])
			m.Covariances[j].CopySym(initCov)
			m.Weights[j] = 1 / float64(k)
			reseeded++
			f.logger.Debug(ctx, "re-seeded collapsed component",
				logger.Int("component", j),
				logger.Int("point", idx),
				logger.Float64("mass", mass[j]),
				logger.Error(ErrDegenerateComponent),
			)
			continue
		}

		mean := make([]float64, d)
		for i, p := range points {
			floats.AddScaled(mean, resp[i][j], p)
		}
		floats.Scale(1/mass[j], mean)

		scatter := make([]float64, d*d)
		for i, p := range points {
			r := resp[i][j]
			floats.SubTo(diff, p, mean)
			for a := 0; a < d; a++ {
				for b := 0; b < d; b++ {
					scatter[a*d+b] += r * diff[a] * diff[b]
				}
			}
		}

		cov := mat.NewSymDense(d, nil)
		for a := 0; a < d; a++ {
			for b := a; b < d; b++ {
				v := 0.5 * (scatter[a*d+b] + scatter[b*d+a]) / mass[j]
				if a == b {
					v += f.regularization
				}
				cov.SetSym(a, b, v)
			}
		}

		m.Means[j] = mean
		m.Covariances[j] = cov
		m.Weights[j] = mass[j] / float64(n)
	}

	if reseeded > 0 {
		floats.Scale(1/floats.Sum(m.Weights), m.Weights)
	}
	return reseeded
}

// farthestPoint returns the index of the point whose nearest other mean is
// farthest away. The first such point wins ties.
func farthestPoint(points [][]float64, means [][]float64, skip int) int {
	best, bestDist := 0, -1.0
	for i, p := range points {
		nearest := math.Inf(1)
		for l, mu := range means {
			if l == skip {
				continue
			}
			if d := sqDist(p, mu); d < nearest {
				nearest = d
			}
		}
		if nearest > bestDist {
			best, bestDist = i, nearest
		}
	}
	return best
}

func checkPoints(points [][]float64) error {
	if len(points) == 0 {
		return ErrNoPoints
	}
	d := len(points[0])
	if d == 0 {
		return ErrDimensionMismatch
	}
	for _, p := range points {
		if len(p) != d {
			return ErrDimensionMismatch
		}
	}
	return nil
}

func normalize(logp []float64) {
	lse := floats.LogSumExp(logp)
	if math.IsInf(lse, -1) || math.IsNaN(lse) {
		for j := range logp {
			logp[j] = 1 / float64(len(logp))
		}
		return
	}
	for j, v := range logp {
		logp[j] = math.Exp(v - lse)
	}
}
