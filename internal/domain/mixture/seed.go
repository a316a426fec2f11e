package mixture

import (
	"fmt"
	"math/rand"
)

// SeedPlusPlus picks k initial means from points with k-means++: the first
// uniformly at random, each following one with probability proportional to its
// squared distance to the nearest mean chosen so far.
func SeedPlusPlus(points [][]float64, k int, rng *rand.Rand) ([][]float64, error) {
	if len(points) == 0 {
		return nil, ErrNoPoints
	}
	if k < 1 || k > len(points) {
		return nil, fmt.Errorf("%w: k=%d with %d points", ErrInvalidClusterCount, k, len(points))
	}

	means := make([][]float64, 0, k)
	means = append(means, clonePoint(points[rng.Intn(len(points))]))

	// nearest[i] tracks the squared distance from point i to its closest mean.
	nearest := make([]float64, len(points))
	for i, p := range points {
		nearest[i] = sqDist(p, means[0])
	}

	for len(means) < k {
		var total float64
		for _, d := range nearest {
			total += d
		}

		next := -1
		if total > 0 {
			target := rng.Float64() * total
			var acc float64
			for i, d := range nearest {
				if d == 0 {
					continue
				}
				acc += d
				next = i
				if acc > target {
					break
				}
			}
		} else {
			// every point coincides with a chosen mean
			next = rng.Intn(len(points))
		}

		chosen := clonePoint(points[next])
		means = append(means, chosen)
		for i, p := range points {
			if d := sqDist(p, chosen); d < nearest[i] {
				nearest[i] = d
			}
		}
	}
	return means, nil
}

func sqDist(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

func clonePoint(p []float64) []float64 {
	out := make([]float64, len(p))
	copy(out, p)
	return out
}
