// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package similarity

import (
	"errors"
	"math"
	"math/rand"
)

// KMeansConfig controls clustering. Zero values select the defaults.
type KMeansConfig struct {
	// Seed makes clustering reproducible (default 42).
	Seed int64
	// Restarts is the number of k-means++ initializations tried; the run
	// with the lowest inertia wins (default 10).
	Restarts int
	// MaxIterations bounds Lloyd iterations per run (default 300).
	MaxIterations int
}

func (c KMeansConfig) withDefaults() KMeansConfig {
	if c.Seed == 0 {
		c.Seed = 42
	}
	if c.Restarts <= 0 {
		c.Restarts = 10
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = 300
	}
	return c
}

// ErrBadInput is returned for empty input, k outside [1, len(points)] or
// points of differing dimension.
var ErrBadInput = errors.New("kmeans: invalid input")

// KMeans clusters points into k groups and returns the centroids. The same
// input and seed always produce the same centroids.
func KMeans(points [][]float64, k int, cfg KMeansConfig) ([][]float64, error) {
	if len(points) == 0 || k < 1 || k > len(points) {
		return nil, ErrBadInput
	}
	dim := len(points[0])
	for _, p := range points {
		if len(p) != dim || dim == 0 {
			return nil, ErrBadInput
		}
	}
	cfg = cfg.withDefaults()
	rng := rand.New(rand.NewSource(cfg.Seed))

	var best [][]float64
	bestInertia := math.Inf(1)
	for run := 0; run < cfg.Restarts; run++ {
		centroids := seedPlusPlus(points, k, rng)
		centroids, inertia := lloyd(points, centroids, cfg.MaxIterations)
		if inertia < bestInertia {
			best, bestInertia = centroids, inertia
		}
	}
	return best, nil
}

// seedPlusPlus picks initial centroids with k-means++ weighting.
func seedPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(points[rng.Intn(len(points))]))

	dist := make([]float64, len(points))
	for len(centroids) < k {
		var total float64
		for i, p := range points {
			d := math.Inf(1)
			for _, c := range centroids {
				if sd := squaredDistance(p, c); sd < d {
					d = sd
				}
			}
			dist[i] = d
			total += d
		}

		next := len(points) - 1
		if total > 0 {
			target := rng.Float64() * total
			for i, d := range dist {
				target -= d
				if target <= 0 {
					next = i
					break
				}
			}
		} else {
			next = rng.Intn(len(points))
		}
		centroids = append(centroids, clone(points[next]))
	}
	return centroids
}

// lloyd alternates assignment and update steps until assignments settle.
func lloyd(points, centroids [][]float64, maxIter int) ([][]float64, float64) {
	k, dim := len(centroids), len(points[0])
	assign := make([]int, len(points))
	for i := range assign {
		assign[i] = -1
	}

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, p := range points {
			c := nearest(p, centroids)
			if c != assign[i] {
				assign[i] = c
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, p := range points {
			c := assign[i]
			counts[c]++
			for j, v := range p {
				sums[c][j] += v
			}
		}
		for c := range centroids {
			// An emptied cluster keeps its previous centroid.
			if counts[c] == 0 {
				continue
			}
			for j := range sums[c] {
				sums[c][j] /= float64(counts[c])
			}
			centroids[c] = sums[c]
		}
	}

	var inertia float64
	for i, p := range points {
		inertia += squaredDistance(p, centroids[assign[i]])
	}
	return centroids, inertia
}

func nearest(p []float64, centroids [][]float64) int {
	best, idx := math.Inf(1), 0
	for c, centroid := range centroids {
		if d := squaredDistance(p, centroid); d < best {
			best, idx = d, c
		}
	}
	return idx
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
