package cluster

import (
	"math"

	kmath "github.com/Siddhant-K-code/minelab/pkg/math"
	"github.com/Siddhant-K-code/minelab/pkg/types"
)

// SilhouetteSampleSize caps the points scored by Silhouette. Larger inputs
// are scored on an evenly strided subset of this size, which keeps the cost
// bounded and the result deterministic.
const SilhouetteSampleSize = 2000

// Silhouette returns the mean silhouette coefficient of a labelling.
//
// For point i in cluster A, a(i) is the mean distance to the other members of A
// and b(i) the smallest mean distance to the members of another non-empty cluster.
// s(i) = (b-a)/max(a,b). Points in singleton clusters score 0, and the score is 0
// when fewer than two clusters are non-empty. Above SilhouetteSampleSize points
// the score is that of the strided sample.
func Silhouette(points []types.Point, assignments []int, k int) float64 {
	return silhouette(points, assignments, k, 1)
}

func (e *Engine) silhouetteConcurrent(points []types.Point, assignments []int, k int) float64 {
	return silhouette(points, assignments, k, e.cfg.Workers)
}

func silhouette(points []types.Point, assignments []int, k, workers int) float64 {
	if len(points) > SilhouetteSampleSize {
		points, assignments = strided(points, assignments, SilhouetteSampleSize)
	}

	n := len(points)
	if n < 2 || k < 2 {
		return 0
	}

	sizes := make([]int, k)
	for _, c := range assignments {
		sizes[c]++
	}
	nonEmpty := 0
	for _, s := range sizes {
		if s > 0 {
			nonEmpty++
		}
	}
	if nonEmpty < 2 {
		return 0
	}

	scores := make([]float64, n)

	forEachChunk(n, workers, func(_, start, end int) {
		sums := make([]float64, k)
		for i := start; i < end; i++ {
			own := assignments[i]
			if sizes[own] < 2 {
				scores[i] = 0
				continue
			}

			for c := range sums {
				sums[c] = 0
			}
			for j := 0; j < n; j++ {
				if j == i {
					continue
				}
				sums[assignments[j]] += kmath.Distance(points[i], points[j])
			}

			a := sums[own] / float64(sizes[own]-1)
			b := math.Inf(1)
			for c := 0; c < k; c++ {
				if c == own || sizes[c] == 0 {
					continue
				}
				if mean := sums[c] / float64(sizes[c]); mean < b {
					b = mean
				}
			}

			denom := math.Max(a, b)
			if denom == 0 {
				scores[i] = 0
				continue
			}
			scores[i] = (b - a) / denom
		}
	})

	// Summed in index order so the result does not depend on the worker count.
	var total float64
	for _, s := range scores {
		total += s
	}

	score := total / float64(n)
	if score > 1 {
		score = 1
	} else if score < -1 {
		score = -1
	}
	return score
}

// strided picks m evenly spaced points, always including the first.
func strided(points []types.Point, assignments []int, m int) ([]types.Point, []int) {
	n := len(points)
	sp := make([]types.Point, m)
	sa := make([]int, m)
	for i := 0; i < m; i++ {
		j := i * n / m
		sp[i] = points[j]
		sa[i] = assignments[j]
	}
	return sp, sa
}
