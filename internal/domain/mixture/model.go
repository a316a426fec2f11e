package mixture

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// maxRegularizationSteps bounds how many times the ridge is grown by 10x when a
// covariance fails its Cholesky factorization.
const maxRegularizationSteps = 12

// Model is a fitted full-covariance Gaussian mixture.
type Model struct {
	Means       [][]float64
	Covariances []*mat.SymDense
	Weights     []float64

	// Diagnostics; they never affect labels.
	LogLikelihood float64
	Iterations    int
	Converged     bool
	Reseeds       int

	regularization float64
	components     []*distmv.Normal
}

// K returns the number of components.
func (m *Model) K() int { return len(m.Means) }

// prepare factorizes every covariance into a density. A matrix that is not
// positive definite gets a growing ridge until it factorizes.
func (m *Model) prepare() error {
	if len(m.components) != len(m.Means) {
		m.components = make([]*distmv.Normal, len(m.Means))
	}
	for j := range m.Means {
		normal, ok := distmv.NewNormal(m.Means[j], m.Covariances[j], nil)
		ridge := m.regularization * scaleOf(m.Covariances[j])
		for step := 0; !ok && step < maxRegularizationSteps; step++ {
			addDiagonal(m.Covariances[j], ridge)
			ridge *= 10
			normal, ok = distmv.NewNormal(m.Means[j], m.Covariances[j], nil)
		}
		if !ok {
			return fmt.Errorf("%w: covariance %d is not positive definite", ErrDegenerateComponent, j)
		}
		m.components[j] = normal
	}
	return nil
}

// logJoint fills dst[j] with log(weight_j) + log N(x | mean_j, cov_j).
func (m *Model) logJoint(x, dst []float64) {
	for j, c := range m.components {
		dst[j] = math.Log(m.Weights[j]) + c.LogProb(x)
	}
}

// Responsibilities returns the posterior probability of each component for x.
func (m *Model) Responsibilities(x []float64) []float64 {
	out := make([]float64, m.K())
	m.logJoint(x, out)
	normalize(out)
	return out
}

// Predict labels every point with its most probable component. Ties go to the
// lowest component index.
func (m *Model) Predict(points [][]float64) []int {
	labels := make([]int, len(points))
	logp := make([]float64, m.K())
	for i, x := range points {
		m.logJoint(x, logp)
		best := 0
		for j := 1; j < len(logp); j++ {
			if logp[j] > logp[best] {
				best = j
			}
		}
		labels[i] = best
	}
	return labels
}

func addDiagonal(s *mat.SymDense, v float64) {
	n := s.SymmetricDim()
	for i := 0; i < n; i++ {
		s.SetSym(i, i, s.At(i, i)+v)
	}
}

// scaleOf returns max(1, mean diagonal) so the ridge tracks the data scale.
func scaleOf(s *mat.SymDense) float64 {
	n := s.SymmetricDim()
	var tr float64
	for i := 0; i < n; i++ {
		tr += s.At(i, i)
	}
	if avg := tr / float64(n); avg > 1 {
		return avg
	}
	return 1
}
