// Package projection reduces high-dimensional vectors with principal component analysis.
package projection

import (
	"math"

	"github.com/Siddhant-K-code/minelab/pkg/errors"
	kmath "github.com/Siddhant-K-code/minelab/pkg/math"
	"github.com/Siddhant-K-code/minelab/pkg/types"
)

const (
	maxPowerIterations = 1000
	tolerance          = 1e-12
)

// Project computes the top components principal axes of vectors and projects
// every row onto them. Axes are found by power iteration on the covariance
// matrix with deflation, and each axis is signed so its largest loading is positive.
func Project(vectors [][]float64, components int) (*types.Projection, error) {
	if len(vectors) < 2 {
		return nil, errors.InvalidParameter("vectors", "need at least 2 vectors, got %d", len(vectors))
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, errors.InvalidParameter("vectors", "vectors have no dimensions")
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, errors.InvalidParameter("vectors", "vector %d has dimension %d, want %d", i, len(v), dim)
		}
		if !kmath.AllFinite(v) {
			return nil, errors.Computation("pca", "vector %d has non-finite values", i)
		}
	}
	if components < 1 || components > dim {
		return nil, errors.InvalidParameter("components", "must be in [1, %d], got %d", dim, components)
	}

	mean := columnMean(vectors, dim)
	centered := make([][]float64, len(vectors))
	for i, v := range vectors {
		row := make([]float64, dim)
		for d := range row {
			row[d] = v[d] - mean[d]
		}
		centered[i] = row
	}

	cov := covariance(centered, dim)
	var trace float64
	for d := 0; d < dim; d++ {
		trace += cov[d][d]
	}
	if !kmath.Finite(trace) {
		return nil, errors.Computation("pca", "non-finite total variance")
	}

	axes := make([][]float64, 0, components)
	variances := make([]float64, 0, components)

	for c := 0; c < components; c++ {
		axis, lambda := dominant(cov, axes)
		if !kmath.AllFinite(axis) || !kmath.Finite(lambda) {
			return nil, errors.Computation("pca", "component %d did not converge to a finite axis", c)
		}
		normalizeSign(axis)
		axes = append(axes, axis)
		variances = append(variances, lambda)
		deflate(cov, axis, lambda)
	}

	ratios := make([]float64, components)
	cumulative := make([]float64, components)
	var running float64
	for c, lambda := range variances {
		if trace > 0 {
			ratios[c] = lambda / trace
		}
		running += ratios[c]
		cumulative[c] = running
	}

	coords := make([][]float64, len(centered))
	for i, row := range centered {
		out := make([]float64, components)
		for c, axis := range axes {
			out[c] = kmath.Dot(row, axis)
		}
		coords[i] = out
	}

	return &types.Projection{
		Components:             axes,
		ExplainedVariance:      variances,
		ExplainedVarianceRatio: ratios,
		CumulativeRatio:        cumulative,
		Mean:                   mean,
		Coordinates:            coords,
	}, nil
}

// ToPoints maps the first three projected coordinates of each row to a Point,
// padding missing components with 0.
func ToPoints(p *types.Projection) []types.Point {
	points := make([]types.Point, len(p.Coordinates))
	for i, row := range p.Coordinates {
		for d := 0; d < 3 && d < len(row); d++ {
			points[i][d] = row[d]
		}
	}
	return points
}

func columnMean(vectors [][]float64, dim int) []float64 {
	mean := make([]float64, dim)
	for _, v := range vectors {
		for d := range mean {
			mean[d] += v[d]
		}
	}
	inv := 1.0 / float64(len(vectors))
	for d := range mean {
		mean[d] *= inv
	}
	return mean
}

// covariance returns the sample covariance of already-centered rows.
func covariance(centered [][]float64, dim int) [][]float64 {
	cov := make([][]float64, dim)
	for i := range cov {
		cov[i] = make([]float64, dim)
	}
	for _, row := range centered {
		for i := 0; i < dim; i++ {
			if row[i] == 0 {
				continue
			}
			for j := i; j < dim; j++ {
				cov[i][j] += row[i] * row[j]
			}
		}
	}
	inv := 1.0 / float64(len(centered)-1)
	for i := 0; i < dim; i++ {
		for j := i; j < dim; j++ {
			cov[i][j] *= inv
			cov[j][i] = cov[i][j]
		}
	}
	return cov
}

// dominant finds the leading eigenpair of the symmetric matrix m, keeping the
// axis orthogonal to prev.
func dominant(m [][]float64, prev [][]float64) ([]float64, float64) {
	dim := len(m)

	// Start from the heaviest column; it is never orthogonal to the leading axis
	// unless that column is zero.
	v := make([]float64, dim)
	best := -1.0
	for j := 0; j < dim; j++ {
		var norm float64
		for i := 0; i < dim; i++ {
			norm += m[i][j] * m[i][j]
		}
		if norm > best {
			best = norm
			for i := 0; i < dim; i++ {
				v[i] = m[i][j]
			}
		}
	}
	orthogonalize(v, prev)
	if kmath.NormalizeInPlace(v) == 0 {
		return basisComplement(prev, dim), 0
	}

	next := make([]float64, dim)
	for iter := 0; iter < maxPowerIterations; iter++ {
		multiply(next, m, v)
		orthogonalize(next, prev)
		if kmath.NormalizeInPlace(next) == 0 {
			return basisComplement(prev, dim), 0
		}

		delta := math.Abs(math.Abs(kmath.Dot(next, v)) - 1)
		copy(v, next)
		if delta < tolerance {
			break
		}
	}

	multiply(next, m, v)
	lambda := kmath.Dot(v, next)
	if lambda < 0 {
		lambda = 0
	}
	return v, lambda
}

// basisComplement returns the first standard basis vector that survives
// orthogonalisation against prev.
func basisComplement(prev [][]float64, dim int) []float64 {
	for d := 0; d < dim; d++ {
		v := make([]float64, dim)
		v[d] = 1
		orthogonalize(v, prev)
		if kmath.NormalizeInPlace(v) > 1e-9 {
			return v
		}
	}
	return make([]float64, dim)
}

func multiply(dst []float64, m [][]float64, v []float64) {
	for i, row := range m {
		dst[i] = kmath.Dot(row, v)
	}
}

// orthogonalize removes the projection of v onto each unit axis in prev.
func orthogonalize(v []float64, prev [][]float64) {
	for _, axis := range prev {
		d := kmath.Dot(v, axis)
		for i := range v {
			v[i] -= d * axis[i]
		}
	}
}

func deflate(m [][]float64, axis []float64, lambda float64) {
	for i := range m {
		for j := range m[i] {
			m[i][j] -= lambda * axis[i] * axis[j]
		}
	}
}

func normalizeSign(axis []float64) {
	maxIdx := 0
	for i, x := range axis {
		if math.Abs(x) > math.Abs(axis[maxIdx]) {
			maxIdx = i
		}
	}
	if axis[maxIdx] < 0 {
		for i := range axis {
			axis[i] = -axis[i]
		}
	}
}
